package chainsync

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/moneytrackio/conseil/paginate"
	"github.com/moneytrackio/conseil/store"
	"github.com/moneytrackio/conseil/tezos"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.Out = discardWriter{}
	return logrus.NewEntry(l)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// fakeRPC serves canned JSON responses keyed by exact command string,
// simulating the node over the Get/GetBlockAt/GetAllAccountIdsForBlock
// surface chainsync.RPC requires.
type fakeRPC struct {
	byCommand map[string]string
	head      tezos.BlockData
	accounts  map[tezos.BlockHash][]tezos.AccountId
}

func (f *fakeRPC) Get(ctx context.Context, command string) ([]byte, error) {
	s, ok := f.byCommand[command]
	if !ok {
		return nil, fmt.Errorf("no fixture for command %q", command)
	}
	return []byte(s), nil
}

func (f *fakeRPC) GetHead(ctx context.Context) (tezos.BlockData, error) { return f.head, nil }

func (f *fakeRPC) GetBlockAt(ctx context.Context, ref tezos.BlockHash, offset tezos.Option[tezos.Offset]) (tezos.BlockData, error) {
	raw, err := f.Get(ctx, tezos.BlockAncestorPath(ref, offset))
	if err != nil {
		return tezos.BlockData{}, err
	}
	var bd tezos.BlockData
	if err := json.Unmarshal(raw, &bd); err != nil {
		return tezos.BlockData{}, err
	}
	return bd, nil
}

func (f *fakeRPC) GetAllAccountIdsForBlock(ctx context.Context, hash tezos.BlockHash) ([]tezos.AccountId, error) {
	return f.accounts[hash], nil
}

func blockJSON(hash string, level int) string {
	return fmt.Sprintf(`{"level":%d,"hash":"%s"}`, level, hash)
}

func newFixture() *fakeRPC {
	head := tezos.BlockData{Hash: "H10", Level: 10}
	byCommand := map[string]string{
		"blocks/H10~0":                       blockJSON("H10", 10),
		"blocks/H10~1":                       blockJSON("H9", 9),
		"blocks/H10/operations":               `[[]]`,
		"blocks/H9/operations":                `[[]]`,
		"blocks/H10/votes/current_quorum":    `null`,
		"blocks/H10/votes/current_proposal":  `null`,
		"blocks/H9/votes/current_quorum":     `null`,
		"blocks/H9/votes/current_proposal":   `null`,
	}
	return &fakeRPC{byCommand: byCommand, head: head, accounts: map[tezos.BlockHash][]tezos.AccountId{}}
}

func TestGetBlocksAssemblesPageInLevelOrder(t *testing.T) {
	f := newFixture()
	e := New(f, store.NewMemory(), Config{BlockPageSize: 10, BlockOperationsConcurrencyLevel: 4, AccountConcurrencyLevel: 4}, discardLog())

	results, err := e.GetBlocks(context.Background(), "H10", 10, paginate.Range{Start: 9, End: 10}, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.EqualValues(t, "H9", results[0].Action.Block().Data.Hash)
	require.EqualValues(t, "H10", results[1].Action.Block().Data.Hash)
}

func TestSyncFromLastIndexedEmptyWhenUpToDate(t *testing.T) {
	f := newFixture()
	db := store.NewMemory()
	db.Seed("H10", 10, false)
	e := New(f, db, Config{BlockPageSize: 10, BlockOperationsConcurrencyLevel: 4, AccountConcurrencyLevel: 4}, discardLog())

	pages, count, err := e.SyncFromLastIndexed(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.Empty(t, pages)
}

func TestSyncFromLastIndexedBootstrapsFromLevelOne(t *testing.T) {
	f := newFixture()
	db := store.NewMemory()
	e := New(f, db, Config{BlockPageSize: 10, BlockOperationsConcurrencyLevel: 4, AccountConcurrencyLevel: 4}, discardLog())

	pages, count, err := e.SyncFromLastIndexed(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 10, count)
	require.Len(t, pages, 1)
}

func TestGetBlocksFailsOnForkLevelMismatch(t *testing.T) {
	f := newFixture()
	// Node's view of the old boundary (offset head.level-storedMax=1)
	// reports level 8, not 9: store and node disagree about what level
	// is actually at that position.
	f.byCommand["blocks/H10~1"] = blockJSON("N8", 8)

	db := store.NewMemory()
	db.Seed("S9", 9, false)
	e := New(f, db, Config{BlockPageSize: 10, BlockOperationsConcurrencyLevel: 4, AccountConcurrencyLevel: 4}, discardLog())

	results, err := e.GetBlocks(context.Background(), "H10", 10, paginate.Range{Start: 10, End: 10}, true)
	require.Error(t, err)
	require.True(t, tezos.Is(err, tezos.KindForkInconsistency))
	require.Empty(t, results)
}

func TestGetBlocksSkipsFollowWhenHashesAgree(t *testing.T) {
	f := newFixture() // fixture's blocks/H10~1 already resolves to H9 at level 9

	db := store.NewMemory()
	db.Seed("H9", 9, false)
	e := New(f, db, Config{BlockPageSize: 10, BlockOperationsConcurrencyLevel: 4, AccountConcurrencyLevel: 4}, discardLog())

	results, err := e.GetBlocks(context.Background(), "H10", 10, paginate.Range{Start: 10, End: 10}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	_, ok := results[0].Action.(tezos.WriteBlock)
	require.True(t, ok)
}

func TestGetBlocksEmitsWriteAndMakeValidBlockOnForkDetected(t *testing.T) {
	f := newFixture()
	// Node's boundary block at level 9 now reports hash N9, disagreeing
	// with the store's stale S9 at the same level.
	f.byCommand["blocks/H10~1"] = blockJSON("N9", 9)
	f.byCommand["blocks/N9~1"] = blockJSON("N8", 8)

	db := store.NewMemory()
	db.Seed("S9", 9, false)
	db.Seed("N8", 8, false) // already valid ancestor: Follow stops here

	e := New(f, db, Config{BlockPageSize: 10, BlockOperationsConcurrencyLevel: 4, AccountConcurrencyLevel: 4}, discardLog())

	results, err := e.GetBlocks(context.Background(), "H10", 10, paginate.Range{Start: 10, End: 10}, true)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.EqualValues(t, "H10", results[0].Action.Block().Data.Hash)
	_, ok0 := results[0].Action.(tezos.WriteBlock)
	require.True(t, ok0)
	require.EqualValues(t, "N9", results[1].Action.Block().Data.Hash)
	_, ok1 := results[1].Action.(tezos.WriteAndMakeValidBlock)
	require.True(t, ok1)
}

func TestBuildPagesScopesFollowForkToFirstPageOnly(t *testing.T) {
	f := newFixture()
	f.head = tezos.BlockData{Hash: "H12", Level: 12}
	f.byCommand["blocks/H12~0"] = blockJSON("H12", 12)
	f.byCommand["blocks/H12~1"] = blockJSON("H11", 11)
	f.byCommand["blocks/H12~2"] = blockJSON("S10", 10) // agrees with store: no fork work
	for _, h := range []string{"H12", "H11"} {
		f.byCommand["blocks/"+h+"/operations"] = `[[]]`
		f.byCommand["blocks/"+h+"/votes/current_quorum"] = `null`
		f.byCommand["blocks/"+h+"/votes/current_proposal"] = `null`
	}

	db := store.NewMemory()
	db.Seed("S10", 10, false)
	e := New(f, db, Config{BlockPageSize: 1, BlockOperationsConcurrencyLevel: 4, AccountConcurrencyLevel: 4}, discardLog())

	pages, count, err := e.SyncFromLastIndexed(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, pages, 2)

	for i, p := range pages {
		results, err := p(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)
		if i == 0 {
			// A PreCheck on any later page would need this fixture again
			// and fail without it.
			delete(f.byCommand, "blocks/H12~2")
		}
	}
}
