// Package node wires rpc.Client, a store.Sink, and chainsync.Engine
// into a runnable process: it owns the single-goroutine driver loop
// that pulls pages sequentially and writes each to the sink in order
// (spec §5: "the consumer is responsible for driving pages
// sequentially"), and listens for OS shutdown signals to shut down the
// RPC handler.
package node

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/moneytrackio/conseil/chainsync"
	"github.com/moneytrackio/conseil/rpc"
	"github.com/moneytrackio/conseil/store"
	"github.com/moneytrackio/conseil/tezos"
)

// Node bundles the constructed collaborators one run of `conseil sync`
// needs.
type Node struct {
	RPC    *rpc.Client
	Engine *chainsync.Engine
	Sink   store.Sink
	log    *logrus.Entry
}

// New constructs a Node from its already-built collaborators.
func New(rpcClient *rpc.Client, engine *chainsync.Engine, sink store.Sink, log *logrus.Entry) *Node {
	return &Node{RPC: rpcClient, Engine: engine, Sink: sink, log: log}
}

// RunOnce drives every page returned by pager to completion, writing
// each page's results to the sink in order before requesting the next
// one — this is the sequential "consumer drives pages" loop spec §5
// requires, expressed as a plain for-range over Go closures rather
// than a generator.
func (n *Node) RunOnce(ctx context.Context, pages []chainsync.Page) (int, error) {
	written := 0
	for i, page := range pages {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		results, err := page(ctx)
		if err != nil {
			return written, err
		}
		if len(results) == 0 {
			continue
		}
		if err := n.Sink.Write(ctx, results); err != nil {
			return written, err
		}
		written += len(results)
		n.log.WithField("page", i+1).WithField("of", len(pages)).WithField("blocks", len(results)).Info("node: page written")
	}
	return written, nil
}

// RunForever repeatedly calls SyncFromLastIndexed and drives each batch
// of pages to completion, sleeping between cycles when there was
// nothing new to index, until ctx is cancelled (typically by a signal
// installed via WithSignalHandling) or an unrecoverable error occurs.
// idleWait is invoked (and must itself respect ctx) whenever a cycle
// indexes nothing, letting the caller pick a polling cadence without
// this package depending on a timer/ticker policy.
func (n *Node) RunForever(ctx context.Context, followFork bool, idleWait func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		pages, count, err := n.Engine.SyncFromLastIndexed(ctx, followFork)
		if err != nil {
			if tezos.Is(err, tezos.KindShutdown) {
				return nil
			}
			return err
		}

		if count == 0 {
			if err := idleWait(ctx); err != nil {
				return nil
			}
			continue
		}

		if _, err := n.RunOnce(ctx, pages); err != nil {
			if tezos.Is(err, tezos.KindShutdown) {
				return nil
			}
			return err
		}
	}
}

// WithSignalHandling returns a context cancelled on SIGINT/SIGTERM (the
// signal also shuts down the RPC handler) and a cleanup func that stops
// the signal relay and cancels the context; the cleanup func does not
// shut down the RPC handler. Callers should defer the returned func.
func (n *Node) WithSignalHandling(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			n.log.WithField("signal", sig.String()).Info("node: shutdown signal received")
			n.RPC.Handler().Shutdown()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
