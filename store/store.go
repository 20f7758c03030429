// Package store defines the persistence interface the synchronization
// engine consumes (spec §6): four reads plus a write sink. The
// relational implementation behind this interface is explicitly out of
// scope (spec §1) — this package only types the boundary and, for
// tests, provides an in-memory fake.
package store

import (
	"context"

	"github.com/moneytrackio/conseil/tezos"
)

// MaxLevelSentinel is returned by Reader.FetchMaxLevel when the store
// is empty (spec §4.3, §9: "the one documented -1 from fetchMaxLevel").
const MaxLevelSentinel = -1

// StoredBlock is the minimal shape fetchLatestBlock needs to expose:
// enough for ForkFollower's pre-check to compare against the node.
type StoredBlock struct {
	Hash  tezos.BlockHash
	Level int
}

// Reader is the read side of the persistence interface consumed by the
// core, spec §6: "fetchMaxLevel, fetchLatestBlock, blockExists,
// blockIsInInvalidatedState... the only read dependencies."
type Reader interface {
	// FetchMaxLevel returns the highest indexed level, or
	// MaxLevelSentinel if the store is empty.
	FetchMaxLevel(ctx context.Context) (int, error)

	// FetchLatestBlock returns the highest indexed block, if any.
	FetchLatestBlock(ctx context.Context) (tezos.Option[StoredBlock], error)

	// BlockExists reports whether hash is present in the store,
	// regardless of its invalidated flag.
	BlockExists(ctx context.Context, hash tezos.BlockHash) (bool, error)

	// BlockIsInInvalidatedState reports whether the stored block with
	// this hash is flagged invalidated. Must reflect committed state,
	// not pending writes (spec §9), or ForkFollower's classifier will
	// emit incorrect actions.
	BlockIsInInvalidatedState(ctx context.Context, hash tezos.BlockHash) (bool, error)
}

// Sink is the write side: the engine hands it a BlockFetchingResults
// stream; the sink is the sole writer and is assumed to serialize its
// own writes (spec §5).
type Sink interface {
	Write(ctx context.Context, results tezos.BlockFetchingResults) error
}
