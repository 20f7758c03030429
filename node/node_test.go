package node

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/moneytrackio/conseil/chainsync"
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

func TestRunOnceWritesEveryPageInOrder(t *testing.T) {
	sink := store.NewMemory()
	n := &Node{Sink: sink, log: discardLog()}

	var calls []int
	pages := []chainsync.Page{
		func(ctx context.Context) (tezos.BlockFetchingResults, error) {
			calls = append(calls, 1)
			return tezos.BlockFetchingResults{{Action: tezos.WriteBlock{B: tezos.Block{Data: tezos.BlockData{Hash: "A", Level: 1}}}}}, nil
		},
		func(ctx context.Context) (tezos.BlockFetchingResults, error) {
			calls = append(calls, 2)
			return tezos.BlockFetchingResults{{Action: tezos.WriteBlock{B: tezos.Block{Data: tezos.BlockData{Hash: "B", Level: 2}}}}}, nil
		},
	}

	written, err := n.RunOnce(context.Background(), pages)
	require.NoError(t, err)
	require.Equal(t, 2, written)
	require.Equal(t, []int{1, 2}, calls)
	require.Len(t, sink.WriteCalls(), 2)
}

func TestRunOnceStopsOnFirstPageError(t *testing.T) {
	sink := store.NewMemory()
	n := &Node{Sink: sink, log: discardLog()}

	pages := []chainsync.Page{
		func(ctx context.Context) (tezos.BlockFetchingResults, error) {
			return nil, tezos.WithKind(tezos.KindTransport, errTest)
		},
		func(ctx context.Context) (tezos.BlockFetchingResults, error) {
			t.Fatal("second page must not run after first failed")
			return nil, nil
		},
	}

	_, err := n.RunOnce(context.Background(), pages)
	require.Error(t, err)
}

var errTest = testError("boom")

type testError string

func (e testError) Error() string { return string(e) }
