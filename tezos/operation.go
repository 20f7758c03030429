package tezos

import "encoding/json"

func jsonMarshalString(s string) ([]byte, error) { return json.Marshal(s) }

// OperationKind is the closed set of operation kinds a block's contents
// may carry (spec §3).
type OperationKind string

const (
	OpTransaction               OperationKind = "transaction"
	OpOrigination               OperationKind = "origination"
	OpDelegation                OperationKind = "delegation"
	OpReveal                    OperationKind = "reveal"
	OpEndorsement               OperationKind = "endorsement"
	OpBallot                    OperationKind = "ballot"
	OpProposals                 OperationKind = "proposals"
	OpSeedNonceRevelation       OperationKind = "seed_nonce_revelation"
	OpActivateAccount           OperationKind = "activate_account"
	OpDoubleBakingEvidence      OperationKind = "double_baking_evidence"
	OpDoubleEndorsementEvidence OperationKind = "double_endorsement_evidence"
)

// Operation is one entry in an OperationsGroup's Contents. Only the
// kind-dependent fields relevant to indexing are modeled; anything the
// node returns beyond these is preserved in Raw for downstream callers
// that need it (e.g. the metadata/display layer).
type Operation struct {
	Kind OperationKind `json:"kind"`

	// transaction / origination / delegation / reveal (manager ops)
	Source       AccountId      `json:"source,omitempty"`
	Fee          string         `json:"fee,omitempty"`
	Counter      string         `json:"counter,omitempty"`
	GasLimit     string         `json:"gas_limit,omitempty"`
	StorageLimit string         `json:"storage_limit,omitempty"`
	Amount       string         `json:"amount,omitempty"`
	Destination  AccountId      `json:"destination,omitempty"`
	Delegate     Option[string] `json:"delegate,omitempty"`
	PublicKey    string         `json:"public_key,omitempty"`

	// transaction/origination script payloads, rewritten in place by
	// the MichelsonTransformer before the block is wrapped into a
	// BlockAction.
	Parameters MichelsonField `json:"parameters,omitempty"`
	Script     MichelsonField `json:"script,omitempty"`

	// endorsement
	Level int `json:"level,omitempty"`

	// ballot
	Ballot   string     `json:"ballot,omitempty"`
	Proposal ProtocolId `json:"proposal,omitempty"`

	// proposals
	Period    int          `json:"period,omitempty"`
	Proposals []ProtocolId `json:"proposals,omitempty"`

	// seed_nonce_revelation
	Nonce string `json:"nonce,omitempty"`

	// activate_account
	PkhActivated string `json:"pkh,omitempty"`
	Secret       string `json:"secret,omitempty"`

	// double_baking_evidence / double_endorsement_evidence carry two
	// conflicting block headers/operations under the "bh1"/"bh2" or
	// "op1"/"op2" keys; kept as opaque JSON since nothing downstream
	// needs to parse them beyond storing the blob. Populated by
	// UnmarshalJSON for those two kinds only; nil otherwise.
	Evidence []byte `json:"-"`

	// Raw is the operation's full decoded JSON document, preserved for
	// downstream callers (e.g. the metadata/display layer) that need a
	// field this type doesn't model explicitly. Populated by
	// UnmarshalJSON.
	Raw map[string]interface{} `json:"-"`
}

// evidenceKeys are, respectively, the "bh1"/"bh2" or "op1"/"op2" raw
// JSON keys carrying the two conflicting headers/operations for the
// two evidence kinds.
var evidenceKeys = map[OperationKind][2]string{
	OpDoubleBakingEvidence:      {"bh1", "bh2"},
	OpDoubleEndorsementEvidence: {"op1", "op2"},
}

// UnmarshalJSON decodes the typed fields via an alias (to avoid
// recursing back into this method), then separately captures the full
// document into Raw and, for the two evidence kinds, the two
// conflicting sub-documents into Evidence.
func (o *Operation) UnmarshalJSON(data []byte) error {
	type alias Operation
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = Operation(a)

	if err := json.Unmarshal(data, &o.Raw); err != nil {
		return err
	}

	if keys, ok := evidenceKeys[o.Kind]; ok {
		var parts struct {
			First  json.RawMessage `json:"-"`
			Second json.RawMessage `json:"-"`
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		parts.First = fields[keys[0]]
		parts.Second = fields[keys[1]]
		if len(parts.First) > 0 || len(parts.Second) > 0 {
			evidence, err := json.Marshal([2]json.RawMessage{parts.First, parts.Second})
			if err != nil {
				return err
			}
			o.Evidence = evidence
		}
	}

	return nil
}

// MichelsonField holds an embedded JSON Michelson expression (script,
// storage, code, or parameters) before transformation, and the
// rendered textual form after it. A field-targeted "lens" (see package
// michelson) reads Raw and, on success, clears it and sets Text; on
// parse failure Text is set to the "Unparsable code: …" sentinel and
// Raw is cleared regardless, so transformation is idempotent (spec
// property 7).
type MichelsonField struct {
	Raw  []byte
	Text string
}

// IsTransformed reports whether the lens has already run over this
// field.
func (m MichelsonField) IsTransformed() bool { return len(m.Raw) == 0 && m.Text != "" }

// MarshalJSON round-trips the field as its raw JSON when untransformed,
// or as a JSON string once rendered.
func (m MichelsonField) MarshalJSON() ([]byte, error) {
	if m.IsTransformed() {
		return jsonMarshalString(m.Text)
	}
	if len(m.Raw) == 0 {
		return []byte("null"), nil
	}
	return m.Raw, nil
}

// UnmarshalJSON stores the field's raw JSON verbatim for later
// transformation.
func (m *MichelsonField) UnmarshalJSON(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Raw = cp
	m.Text = ""
	return nil
}
