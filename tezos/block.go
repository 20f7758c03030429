package tezos

import "time"

// BlockData carries the header-level fields of a block, decoded from
// the node's response and immutable thereafter. Level 0 is genesis;
// genesis has no operations or accounts fetchable from the node.
type BlockData struct {
	Level          int        `json:"level"`
	Hash           BlockHash  `json:"hash"`
	Predecessor    BlockHash  `json:"predecessor"`
	Timestamp      time.Time  `json:"timestamp"`
	Protocol       ProtocolId `json:"protocol"`
	ChainId        string     `json:"chain_id"`
	OperationsHash string     `json:"operations_hash"`
	Fitness        []string   `json:"fitness"`
	Context        string     `json:"context"`
	Signature      string     `json:"signature"`
	ValidationPass int        `json:"validation_pass"`
	Priority       int        `json:"priority"`

	Metadata BlockMetadata `json:"metadata"`
}

// IsGenesis is the single predicate gating every sub-resource call, per
// spec §9: "a single predicate isGenesis(block) := block.level == 0
// gates every sub-resource call; all consumers must consult it rather
// than relying on the node's 404."
func (b BlockData) IsGenesis() bool { return b.Level == 0 }

// BlockMetadata carries the per-block metadata fields named in spec §3.
type BlockMetadata struct {
	Cycle                   int              `json:"cycle"`
	CyclePosition           int              `json:"cycle_position"`
	VotingPeriod            int              `json:"voting_period"`
	VotingPeriodPosition    int              `json:"voting_period_position"`
	Baker                   AccountId        `json:"baker"`
	ConsumedGas             string           `json:"consumed_gas"`
	PeriodKind              string           `json:"period_kind"`
	CurrentExpectedQuorum int            `json:"current_expected_quorum"`
	ActiveProposal        ProtocolId     `json:"active_proposal"`
	NonceHash             Option[string] `json:"nonce_hash"`
	ExpectedCommitment    bool           `json:"expected_commitment"`
}

// CurrentVotes is the (quorum, active proposal) pair exposed by the
// votes sub-resources, defaulting to (None, None) for genesis.
type CurrentVotes struct {
	Quorum         Option[int]
	ActiveProposal Option[ProtocolId]
}

// Block is a fully assembled block: header data, its operation groups,
// and the current votes observed alongside it.
type Block struct {
	Data       BlockData
	Operations []OperationsGroup
	Votes      CurrentVotes
}

// BlockReference tags an account snapshot with the block that observed
// it.
type BlockReference struct {
	Hash  BlockHash
	Level int
}

// OperationsGroup is a batch of operations sharing a signature and
// branch, the transport unit for mempool and block inclusion.
type OperationsGroup struct {
	Protocol  ProtocolId         `json:"protocol"`
	ChainId   string             `json:"chain_id"`
	Hash      OperationGroupHash `json:"hash"`
	Branch    BlockHash          `json:"branch"`
	Signature string             `json:"signature"`
	Contents  []Operation        `json:"contents"`
}
