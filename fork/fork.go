// Package fork implements ForkFollower (spec §4.4): invoked when the
// highest indexed block's hash disagrees with the node's block at the
// same level, it walks backward from a reference block (chainsync
// passes the disagreeing block) by increasing offset,
// classifying each ancestor, and stops at the first already-valid
// ancestor. Grounded on the reorg-detection shape used across the
// retrieval pack's chain indexers (hash-compare the stored chain
// against freshly fetched headers, one level at a time, and log loudly
// the moment a mismatch is found).
package fork

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/moneytrackio/conseil/store"
	"github.com/moneytrackio/conseil/tezos"
)

// BlockSource is the subset of the RPC client ForkFollower needs: one
// block lookup by offset from a reference hash.
type BlockSource interface {
	GetBlockAt(ctx context.Context, ref tezos.BlockHash, offset tezos.Option[tezos.Offset]) (tezos.BlockData, error)
}

// Follower drives the protocol described in spec §4.4 against a
// BlockSource and a store.Reader.
type Follower struct {
	rpc BlockSource
	db  store.Reader
	log *logrus.Entry
}

// New constructs a Follower.
func New(rpc BlockSource, db store.Reader, log *logrus.Entry) *Follower {
	return &Follower{rpc: rpc, db: db, log: log}
}

// Follow walks backward from refHash by increasing offset starting at
// 1, up to and including maxOffset, classifying each ancestor. It
// returns BlockAction values (without operations/votes populated — the
// caller assembles those the same way it does for a normal page) in
// increasing-offset order, i.e. reverse-chronological (newest/smallest-
// offset first). Genesis-guarding is the caller's responsibility:
// chainsync.GetBlocks only calls Follow when the store already holds
// indexed blocks (storedMax >= 0).
func (f *Follower) Follow(ctx context.Context, refHash tezos.BlockHash, maxOffset int) ([]tezos.BlockAction, error) {
	cache, _ := lru.New[tezos.BlockHash, invalidatedState](maxOffsetCacheSize(maxOffset))

	var actions []tezos.BlockAction
	for k := 1; k <= maxOffset; k++ {
		block, err := f.rpc.GetBlockAt(ctx, refHash, tezos.Some(tezos.Offset(k)))
		if err != nil {
			return nil, err
		}

		state, err := f.lookup(ctx, cache, block.Hash)
		if err != nil {
			return nil, err
		}

		switch {
		case state.exists && !state.invalidated:
			// Reached a valid ancestor: stop, nothing to emit.
			return actions, nil

		case state.exists && state.invalidated:
			actions = append(actions, tezos.RevalidateBlock{B: tezos.Block{Data: block}})

		case !state.exists && !state.invalidated:
			actions = append(actions, tezos.WriteAndMakeValidBlock{B: tezos.Block{Data: block}})

		default: // !exists && invalidated: impossible by construction
			f.log.WithField("hash", block.Hash).WithField("offset", k).
				Error("fork follower: block absent locally yet flagged invalidated")
			return actions, tezos.WithKind(tezos.KindImpossibleState,
				fmt.Errorf("block %s is absent but marked invalidated", block.Hash))
		}
	}
	return actions, nil
}

// PreCheck compares the node's block at refHash~maxOffset against the
// store's latest block, per spec §4.4. It returns true and the node's
// block at that position if fork-following work is needed (hashes
// disagree) — that block is the "originally-disagreeing block" the
// caller must prepend to Follow's result as a WriteAndMakeValidBlock —
// or false if the store already agrees with the node (no work needed).
// A missing latest block logs a warning and asks the caller to proceed
// with Follow directly.
func (f *Follower) PreCheck(ctx context.Context, refHash tezos.BlockHash, maxOffset int) (bool, tezos.BlockData, error) {
	nodeBlock, err := f.rpc.GetBlockAt(ctx, refHash, tezos.Some(tezos.Offset(maxOffset)))
	if err != nil {
		return false, tezos.BlockData{}, err
	}

	latest, err := f.db.FetchLatestBlock(ctx)
	if err != nil {
		return false, tezos.BlockData{}, err
	}
	stored, ok := latest.Get()
	if !ok {
		f.log.Warn("fork follower: store reports no latest block, proceeding with fork-follow directly")
		return true, nodeBlock, nil
	}

	if stored.Level != nodeBlock.Level {
		return false, tezos.BlockData{}, tezos.Errorf(tezos.KindForkInconsistency,
			"mismatched levels: store=%d node=%d", stored.Level, nodeBlock.Level)
	}
	if stored.Hash == nodeBlock.Hash {
		return false, tezos.BlockData{}, nil
	}
	return true, nodeBlock, nil
}

type invalidatedState struct {
	exists      bool
	invalidated bool
}

func (f *Follower) lookup(ctx context.Context, cache *lru.Cache[tezos.BlockHash, invalidatedState], hash tezos.BlockHash) (invalidatedState, error) {
	if cache != nil {
		if s, ok := cache.Get(hash); ok {
			return s, nil
		}
	}

	exists, err := f.db.BlockExists(ctx, hash)
	if err != nil {
		return invalidatedState{}, err
	}
	invalidated, err := f.db.BlockIsInInvalidatedState(ctx, hash)
	if err != nil {
		return invalidatedState{}, err
	}
	s := invalidatedState{exists: exists, invalidated: invalidated}
	if cache != nil {
		cache.Add(hash, s)
	}
	return s, nil
}

func maxOffsetCacheSize(maxOffset int) int {
	if maxOffset < 1 {
		return 1
	}
	return maxOffset
}
