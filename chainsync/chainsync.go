// Package chainsync implements ChainSyncEngine (spec §4.3), the
// top-level orchestrator: it compares the store's highest indexed
// level against the node's head, partitions the gap into pages, and
// for each page fetches block data, then operations and votes in
// parallel, joins them into Blocks, applies the Michelson
// transformer, resolves touched account ids, and optionally appends a
// ForkFollower backfill.
package chainsync

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/moneytrackio/conseil/accountrefs"
	"github.com/moneytrackio/conseil/decode"
	"github.com/moneytrackio/conseil/fetch"
	"github.com/moneytrackio/conseil/fork"
	"github.com/moneytrackio/conseil/michelson"
	"github.com/moneytrackio/conseil/paginate"
	"github.com/moneytrackio/conseil/store"
	"github.com/moneytrackio/conseil/tezos"
)

// RPC is the subset of rpc.Client the engine needs: the raw Get escape
// hatch for its DataFetcher instances, plus the typed calls
// AccountReferenceExtractor and ForkFollower bind to directly.
type RPC interface {
	accountrefs.Source
	fork.BlockSource

	GetHead(ctx context.Context) (tezos.BlockData, error)
	Get(ctx context.Context, command string) ([]byte, error)
}

// Config carries the tunables named in spec §5/§6 that govern how a
// page is fetched.
type Config struct {
	BlockPageSize                   int
	BlockOperationsConcurrencyLevel int
	AccountConcurrencyLevel         int
}

// Engine is ChainSyncEngine.
type Engine struct {
	rpc RPC
	db  store.Reader
	cfg Config
	log *logrus.Entry
}

// New constructs an Engine.
func New(rpc RPC, db store.Reader, cfg Config, log *logrus.Entry) *Engine {
	return &Engine{rpc: rpc, db: db, cfg: cfg, log: log}
}

// head pins the reference block a page of offsets is computed against.
type head struct {
	hash  tezos.BlockHash
	level int
}

// Page is one lazy unit of work produced by SyncFromLastIndexed/
// SyncLatest: calling it performs the actual fetch. This is the
// "lazy task" of spec §4.3 expressed as a Go closure, a pull-style
// iterator a driver loop calls sequentially to preserve write
// ordering (spec §5).
type Page func(ctx context.Context) (tezos.BlockFetchingResults, error)

// SyncFromLastIndexed implements spec §4.3's first operation: it
// queries the store's highest indexed level and the node's head, and
// returns one lazy Page per sub-range of the gap between them, plus the
// total level count covered.
func (e *Engine) SyncFromLastIndexed(ctx context.Context, followFork bool) ([]Page, int, error) {
	storedMax, err := e.db.FetchMaxLevel(ctx)
	if err != nil {
		return nil, 0, err
	}

	h, err := e.fetchHead(ctx)
	if err != nil {
		return nil, 0, err
	}

	if storedMax >= h.level {
		return nil, 0, nil
	}

	bootstrapping := storedMax < 0
	start := storedMax + 1
	count := h.level - storedMax
	if bootstrapping {
		start = 1
		count = h.level
	}

	return e.buildPages(h, paginate.Range{Start: start, End: h.level}, followFork), count, nil
}

// SyncLatest implements spec §4.3's second operation: like
// SyncFromLastIndexed, but the range is the last depth levels (or
// everything, if depth is None) ending at head, and startHash overrides
// HEAD as the reference block.
func (e *Engine) SyncLatest(ctx context.Context, depth tezos.Option[int], startHash tezos.Option[tezos.BlockHash], followFork bool) ([]Page, int, error) {
	var h head
	if hash, ok := startHash.Get(); ok {
		data, err := e.rpc.GetBlockAt(ctx, hash, tezos.None[tezos.Offset]())
		if err != nil {
			return nil, 0, err
		}
		h = head{hash: data.Hash, level: data.Level}
	} else {
		var err error
		h, err = e.fetchHead(ctx)
		if err != nil {
			return nil, 0, err
		}
	}

	start := 1
	if d, ok := depth.Get(); ok {
		start = h.level - d + 1
		if start < 1 {
			start = 1
		}
	}

	r := paginate.Range{Start: start, End: h.level}
	return e.buildPages(h, r, followFork), r.Len(), nil
}

func (e *Engine) buildPages(h head, r paginate.Range, followFork bool) []Page {
	ranges := paginate.Partition(r, e.cfg.BlockPageSize)
	pages := make([]Page, len(ranges))
	for i, pr := range ranges {
		pr := pr
		isFirstPage := i == 0
		pages[i] = func(ctx context.Context) (tezos.BlockFetchingResults, error) {
			return e.GetBlocks(ctx, h.hash, h.level, pr, followFork && isFirstPage)
		}
	}
	return pages
}

func (e *Engine) fetchHead(ctx context.Context) (head, error) {
	data, err := e.rpc.GetHead(ctx)
	if err != nil {
		return head{}, err
	}
	return head{hash: data.Hash, level: data.Level}, nil
}

// GetBlocks implements the per-page fetch-join-transform pipeline of
// spec §4.3. refHash/refLevel pin the block the offsets in levelRange
// are computed against. followFork is only honored for the first page
// of a sync cycle (buildPages clears it for every later page), so
// ForkFollower.PreCheck and Follow run at most once per cycle.
func (e *Engine) GetBlocks(ctx context.Context, refHash tezos.BlockHash, refLevel int, levelRange paginate.Range, followFork bool) (tezos.BlockFetchingResults, error) {
	if levelRange.Empty() {
		return nil, nil
	}

	var forkPrefix []tezos.BlockAction
	var follower *fork.Follower
	var disagreeingHash tezos.BlockHash
	needFork := false

	if followFork {
		storedMax, err := e.db.FetchMaxLevel(ctx)
		if err != nil {
			return nil, err
		}
		if storedMax >= 0 {
			boundaryOffset := refLevel - storedMax
			if boundaryOffset > 0 {
				follower = fork.New(e.rpc, e.db, e.log)
				needed, disagreeing, err := follower.PreCheck(ctx, refHash, boundaryOffset)
				if err != nil {
					// ForkInconsistencyError: fail before any block is
					// fetched, so the cycle produces no BlockActions.
					return nil, err
				}
				if needed {
					needFork = true
					disagreeingHash = disagreeing.Hash
					forkPrefix = append(forkPrefix, tezos.WriteAndMakeValidBlock{B: tezos.Block{Data: disagreeing}})
				}
			}
		}
	}

	levels := make([]int, 0, levelRange.Len())
	for lvl := levelRange.Start; lvl <= levelRange.End; lvl++ {
		levels = append(levels, lvl)
	}

	blockPairs, err := fetch.Fetch(ctx, e.rpc.Get, blockFetcher{refHash: refHash, refLevel: refLevel}, levels, e.cfg.BlockOperationsConcurrencyLevel)
	if err != nil {
		return nil, err
	}

	var hashes []tezos.BlockHash
	for _, p := range blockPairs {
		if !p.Out.IsGenesis() {
			hashes = append(hashes, p.Out.Hash)
		}
	}

	var opsPairs []fetch.Pair[tezos.BlockHash, []tezos.OperationsGroup]
	var votesPairs []fetch.Pair[tezos.BlockHash, tezos.CurrentVotes]

	err = fetch.Tupled(
		func() error {
			var err error
			opsPairs, err = fetch.Fetch(ctx, e.rpc.Get, operationsFetcher{}, hashes, e.cfg.BlockOperationsConcurrencyLevel)
			return err
		},
		func() error {
			var err error
			votesPairs, err = fetch.FetchMerge(ctx, e.rpc.Get, quorumFetcher{}, proposalFetcher{}, mergeVotes, hashes, e.cfg.BlockOperationsConcurrencyLevel)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	opsByHash := make(map[tezos.BlockHash][]tezos.OperationsGroup, len(opsPairs))
	for _, p := range opsPairs {
		opsByHash[p.In] = p.Out
	}
	votesByHash := make(map[tezos.BlockHash]tezos.CurrentVotes, len(votesPairs))
	for _, p := range votesPairs {
		votesByHash[p.In] = p.Out
	}

	actions := make([]tezos.BlockAction, 0, len(blockPairs))
	for _, bp := range blockPairs {
		data := bp.Out
		b := tezos.Block{Data: data}
		if !data.IsGenesis() {
			b.Operations = opsByHash[data.Hash]
			b.Votes = votesByHash[data.Hash]
		}
		b = michelson.Transform(e.log, b)
		actions = append(actions, tezos.WriteBlock{B: b})
	}

	results, _, err := accountrefs.ExtractAll(ctx, e.rpc, actions)
	if err != nil {
		return nil, err
	}

	if needFork {
		// Follow walks backward from the disagreeing block itself, not
		// from refHash: the new range [levelRange.Start, levelRange.End]
		// is always fresh ground covered by this page's own WriteBlocks
		// above, so only levels older than the disagreeing block (the
		// previously-stored region a reorg may have invalidated) are in
		// scope here.
		forkActions, err := follower.Follow(ctx, disagreeingHash, levelRange.Len())
		if err != nil {
			return nil, err
		}
		forkPrefix = append(forkPrefix, forkActions...)

		forkResults, _, err := accountrefs.ExtractAll(ctx, e.rpc, forkPrefix)
		if err != nil {
			return nil, err
		}
		results = append(results, forkResults...)
	}

	return results, nil
}

func mergeVotes(q tezos.Option[int], p tezos.Option[tezos.ProtocolId]) tezos.CurrentVotes {
	return tezos.CurrentVotes{Quorum: q, ActiveProposal: p}
}

type blockFetcher struct {
	refHash  tezos.BlockHash
	refLevel int
}

func (f blockFetcher) Command(level int) string {
	offset := tezos.Offset(f.refLevel - level)
	return tezos.BlockAncestorPath(f.refHash, tezos.Some(offset))
}

func (f blockFetcher) Decode(raw []byte) (tezos.BlockData, error) {
	return decode.BlockData(raw)
}

type operationsFetcher struct{}

func (operationsFetcher) Command(hash tezos.BlockHash) string {
	return "blocks/" + string(hash) + "/operations"
}

func (operationsFetcher) Decode(raw []byte) ([]tezos.OperationsGroup, error) {
	return decode.Operations(raw)
}

type quorumFetcher struct{}

func (quorumFetcher) Command(hash tezos.BlockHash) string {
	return "blocks/" + string(hash) + "/votes/current_quorum"
}

func (quorumFetcher) Decode(raw []byte) (tezos.Option[int], error) {
	return decode.OptionalInt(raw)
}

type proposalFetcher struct{}

func (proposalFetcher) Command(hash tezos.BlockHash) string {
	return "blocks/" + string(hash) + "/votes/current_proposal"
}

func (proposalFetcher) Decode(raw []byte) (tezos.Option[tezos.ProtocolId], error) {
	return decode.OptionalProtocol(raw)
}
