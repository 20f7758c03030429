// Package accountrefs implements AccountReferenceExtractor (spec §4.6):
// for every BlockAction produced by a sync page, determine the set of
// account ids its block touched, so downstream fetches (account
// snapshots, manager keys) know what to fetch next. A RevalidateBlock
// never touches new accounts — its block was already indexed — so it
// short-circuits without issuing an RPC call.
package accountrefs

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/moneytrackio/conseil/tezos"
)

// Source is the subset of rpc.Client this package needs.
type Source interface {
	GetAllAccountIdsForBlock(ctx context.Context, hash tezos.BlockHash) ([]tezos.AccountId, error)
}

// Extract resolves one BlockAction into a BlockActionResult. Genesis
// blocks and RevalidateBlock actions never reach the network: both are
// known in advance to touch nothing new.
func Extract(ctx context.Context, rpc Source, action tezos.BlockAction) (tezos.BlockActionResult, error) {
	if _, revalidate := action.(tezos.RevalidateBlock); revalidate {
		return tezos.BlockActionResult{Action: action}, nil
	}

	b := action.Block()
	if b.Data.IsGenesis() {
		return tezos.BlockActionResult{Action: action}, nil
	}

	ids, err := rpc.GetAllAccountIdsForBlock(ctx, b.Data.Hash)
	if err != nil {
		return tezos.BlockActionResult{}, err
	}
	return tezos.BlockActionResult{Action: action, AccountIds: ids}, nil
}

// ExtractAll resolves every action in actions, preserving order, and
// returns the deduplicated union of all touched account ids alongside
// the per-block results. The per-block AccountIds are not deduplicated.
// chainsync.GetBlocks ignores the union, and no account fetch is made
// from it.
func ExtractAll(ctx context.Context, rpc Source, actions []tezos.BlockAction) (tezos.BlockFetchingResults, []tezos.AccountId, error) {
	results := make(tezos.BlockFetchingResults, 0, len(actions))
	touched := mapset.NewThreadUnsafeSet[tezos.AccountId]()

	for _, action := range actions {
		r, err := Extract(ctx, rpc, action)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, r)
		for _, id := range r.AccountIds {
			touched.Add(id)
		}
	}

	return results, touched.ToSlice(), nil
}
