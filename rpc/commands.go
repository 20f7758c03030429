package rpc

import (
	"context"
	"fmt"

	"github.com/moneytrackio/conseil/decode"
	"github.com/moneytrackio/conseil/tezos"
)

// Client layers the typed Tezos RPC commands named in spec §6 on top of
// the generic Handler. This is the thin "capability" surface the
// fetch.Fetcher implementations in package chainsync bind to (through
// Get) — its typed methods return decoded
// domain values, not raw JSON, but does none of the orchestration
// (concurrency, batching, merging) that lives in package fetch.
type Client struct {
	h *Handler
}

// NewClient wraps an existing Handler.
func NewClient(h *Handler) *Client { return &Client{h: h} }

// Handler exposes the underlying transport, e.g. for Shutdown.
func (c *Client) Handler() *Handler { return c.h }

// Get issues a raw GET against command and returns the sanitized
// response body undecoded. Package chainsync uses this as the
// fetch.Issuer bound into its DataFetcher instances, which decode
// responses themselves via package decode.
func (c *Client) Get(ctx context.Context, command string) ([]byte, error) {
	return c.h.Get(ctx, command)
}

// GetHead fetches the node's current chain head.
func (c *Client) GetHead(ctx context.Context) (tezos.BlockData, error) {
	return c.GetBlockAt(ctx, tezos.Head, tezos.None[tezos.Offset]())
}

// GetBlockAt fetches the BlockData for ref at the given offset (None
// addresses ref itself via the empty-offset "~" form, spec §6).
func (c *Client) GetBlockAt(ctx context.Context, ref tezos.BlockHash, offset tezos.Option[tezos.Offset]) (tezos.BlockData, error) {
	path := tezos.BlockAncestorPath(ref, offset)
	raw, err := c.h.Get(ctx, path)
	if err != nil {
		return tezos.BlockData{}, err
	}
	return decode.BlockData(raw)
}

// GetOperations fetches and flattens the nested [[OperationsGroup]]
// response for hash. Genesis never reaches this call (callers must
// consult BlockData.IsGenesis first, spec §9); a 404 from the node is
// nonetheless treated as an empty result for safety.
func (c *Client) GetOperations(ctx context.Context, hash tezos.BlockHash) ([]tezos.OperationsGroup, error) {
	raw, err := c.h.Get(ctx, fmt.Sprintf("blocks/%s/operations", hash))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decode.Operations(raw)
}

// GetAllAccountIdsForBlock fetches the full contract id listing for a
// block (used by AccountReferenceExtractor). Genesis 404s are treated
// as empty.
func (c *Client) GetAllAccountIdsForBlock(ctx context.Context, hash tezos.BlockHash) ([]tezos.AccountId, error) {
	raw, err := c.h.Get(ctx, fmt.Sprintf("blocks/%s/context/contracts", hash))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decode.AccountIds(raw)
}

// GetAccount fetches one account's state as of block hash.
func (c *Client) GetAccount(ctx context.Context, hash tezos.BlockHash, id tezos.AccountId) (tezos.Account, error) {
	raw, err := c.h.Get(ctx, fmt.Sprintf("blocks/%s/context/contracts/%s", hash, id))
	if err != nil {
		return tezos.Account{}, err
	}
	acct, err := decode.Account(raw)
	if err != nil {
		return tezos.Account{}, err
	}
	acct.BlockId = hash
	return acct, nil
}

// GetManagerKey fetches the manager_key sub-resource for id.
func (c *Client) GetManagerKey(ctx context.Context, hash tezos.BlockHash, id tezos.AccountId) (string, error) {
	raw, err := c.h.Get(ctx, fmt.Sprintf("blocks/%s/context/contracts/%s/manager_key", hash, id))
	if err != nil {
		return "", err
	}
	return decode.ManagerKey(raw)
}

// GetCurrentQuorum fetches the votes/current_quorum sub-resource.
func (c *Client) GetCurrentQuorum(ctx context.Context, ref tezos.BlockHash, offset tezos.Option[tezos.Offset]) (tezos.Option[int], error) {
	path := tezos.BlockAncestorPath(ref, offset) + "/votes/current_quorum"
	raw, err := c.h.Get(ctx, path)
	if err != nil {
		return tezos.None[int](), err
	}
	return decode.OptionalInt(raw)
}

// GetCurrentProposal fetches the votes/current_proposal sub-resource.
func (c *Client) GetCurrentProposal(ctx context.Context, ref tezos.BlockHash, offset tezos.Option[tezos.Offset]) (tezos.Option[tezos.ProtocolId], error) {
	path := tezos.BlockAncestorPath(ref, offset) + "/votes/current_proposal"
	raw, err := c.h.Get(ctx, path)
	if err != nil {
		return tezos.None[tezos.ProtocolId](), err
	}
	return decode.OptionalProtocol(raw)
}

// GetBakingRights fetches the baking_rights sub-resource for hash.
func (c *Client) GetBakingRights(ctx context.Context, hash tezos.BlockHash) ([]tezos.BakingRight, error) {
	raw, err := c.h.Get(ctx, fmt.Sprintf("blocks/%s/helpers/baking_rights", hash))
	if err != nil {
		return nil, err
	}
	return decode.BakingRights(raw)
}

// GetEndorsingRights fetches the endorsing_rights sub-resource for hash.
func (c *Client) GetEndorsingRights(ctx context.Context, hash tezos.BlockHash) ([]tezos.EndorsingRight, error) {
	raw, err := c.h.Get(ctx, fmt.Sprintf("blocks/%s/helpers/endorsing_rights", hash))
	if err != nil {
		return nil, err
	}
	return decode.EndorsingRights(raw)
}
