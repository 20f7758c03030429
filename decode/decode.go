// Package decode turns the sanitized JSON bytes package rpc receives
// from the node into the domain types in package tezos (spec §2's
// "Decoders" component, §4.1/§6's JSON normalization step). Decoding
// failures are fail-fast DecodeErrors; nothing here recovers from a
// malformed document — that is the fetch/page layer's job.
package decode

import (
	"bytes"
	"encoding/json"

	"github.com/moneytrackio/conseil/tezos"
)

// managerPubkeyLegacy is the pre-Babylon field name normalized to
// managerPubkey before decoding operations, per spec §6.
var managerPubkeyLegacy = []byte(`"manager_pubkey"`)
var managerPubkeyCurrent = []byte(`"managerPubkey"`)

// normalize renames the legacy manager_pubkey field across the whole
// document. A plain byte replace is safe here because the field name
// only ever appears as a JSON object key, never inside a Michelson
// string/bytes literal (those are base58/hex content, not field names).
func normalize(raw []byte) []byte {
	return bytes.ReplaceAll(raw, managerPubkeyLegacy, managerPubkeyCurrent)
}

func unmarshal(raw []byte, v interface{}) error {
	if err := json.Unmarshal(normalize(raw), v); err != nil {
		return tezos.WithKind(tezos.KindDecode, err)
	}
	return nil
}

// BlockData decodes a single "blocks/{hash}[~offset]" response.
func BlockData(raw []byte) (tezos.BlockData, error) {
	var b tezos.BlockData
	if err := unmarshal(raw, &b); err != nil {
		return tezos.BlockData{}, err
	}
	return b, nil
}

// Operations decodes and flattens the nested [[OperationsGroup]] shape
// returned by "blocks/{hash}/operations" (one outer slice per
// validation pass).
func Operations(raw []byte) ([]tezos.OperationsGroup, error) {
	var passes [][]tezos.OperationsGroup
	if err := unmarshal(raw, &passes); err != nil {
		return nil, err
	}
	var flat []tezos.OperationsGroup
	for _, pass := range passes {
		flat = append(flat, pass...)
	}
	return flat, nil
}

// AccountIds decodes "blocks/{hash}/context/contracts".
func AccountIds(raw []byte) ([]tezos.AccountId, error) {
	var ids []tezos.AccountId
	if err := unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Account decodes "blocks/{hash}/context/contracts/{id}".
func Account(raw []byte) (tezos.Account, error) {
	var a tezos.Account
	if err := unmarshal(raw, &a); err != nil {
		return tezos.Account{}, err
	}
	return a, nil
}

// ManagerKey decodes "blocks/{hash}/context/contracts/{id}/manager_key",
// which is either a bare JSON string or an object carrying one
// depending on protocol version.
func ManagerKey(raw []byte) (string, error) {
	var asString string
	if err := json.Unmarshal(normalize(raw), &asString); err == nil {
		return asString, nil
	}
	var asObject struct {
		Key string `json:"key"`
	}
	if err := unmarshal(raw, &asObject); err != nil {
		return "", err
	}
	return asObject.Key, nil
}

// OptionalInt decodes an Option[Int] sub-resource such as
// votes/current_quorum, where the node returns JSON null for absence.
func OptionalInt(raw []byte) (tezos.Option[int], error) {
	var opt tezos.Option[int]
	if err := unmarshal(raw, &opt); err != nil {
		return tezos.None[int](), err
	}
	return opt, nil
}

// OptionalProtocol decodes an Option[ProtocolId] sub-resource such as
// votes/current_proposal.
func OptionalProtocol(raw []byte) (tezos.Option[tezos.ProtocolId], error) {
	var opt tezos.Option[tezos.ProtocolId]
	if err := unmarshal(raw, &opt); err != nil {
		return tezos.None[tezos.ProtocolId](), err
	}
	return opt, nil
}

// BakingRights decodes "blocks/{hash}/helpers/baking_rights".
func BakingRights(raw []byte) ([]tezos.BakingRight, error) {
	var rights []tezos.BakingRight
	if err := unmarshal(raw, &rights); err != nil {
		return nil, err
	}
	return rights, nil
}

// EndorsingRights decodes "blocks/{hash}/helpers/endorsing_rights".
func EndorsingRights(raw []byte) ([]tezos.EndorsingRight, error) {
	var rights []tezos.EndorsingRight
	if err := unmarshal(raw, &rights); err != nil {
		return nil, err
	}
	return rights, nil
}

// BallotVotes decodes "blocks/{hash}/votes/ballot_list".
func BallotVotes(raw []byte) ([]tezos.BallotVote, error) {
	var votes []tezos.BallotVote
	if err := unmarshal(raw, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

// Proposals decodes "blocks/{hash}/votes/proposals".
func Proposals(raw []byte) ([]tezos.Proposal, error) {
	var proposals []tezos.Proposal
	if err := unmarshal(raw, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

// BakerRolls decodes "blocks/{hash}/votes/listings".
func BakerRolls(raw []byte) ([]tezos.BakerRoll, error) {
	var rolls []tezos.BakerRoll
	if err := unmarshal(raw, &rolls); err != nil {
		return nil, err
	}
	return rolls, nil
}
