package michelson

import (
	"github.com/sirupsen/logrus"

	"github.com/moneytrackio/conseil/tezos"
)

// Transform applies the field-targeted lenses described in spec §4.5 /
// §9 over b: every operation's Script (Class Schema) and
// Parameters (Class Instruction) field is located by its known
// position and transformed in place. It never walks the whole AST
// looking for Michelson-shaped values — only the positions spec.md
// names are touched. One malformed field never aborts the block: on
// parse failure the field's Text is set to the sentinel and the error
// is logged, not returned.
func Transform(log *logrus.Entry, b tezos.Block) tezos.Block {
	for i := range b.Operations {
		group := &b.Operations[i]
		for j := range group.Contents {
			op := &group.Contents[j]
			transformField(log, "script", &op.Script)
			transformField(log, "parameters", &op.Parameters)
		}
	}
	return b
}

// TransformAccount applies the same lenses to an Account's script and
// storage fields. Not yet called from any production path — account
// ingestion runs downstream of block sync — so exercise it only from
// tests until a caller wires it in.
func TransformAccount(log *logrus.Entry, a tezos.Account) tezos.Account {
	transformField(log, "account.script", &a.Script)
	transformField(log, "account.storage", &a.Storage)
	return a
}

// transformField renders field.Raw into field.Text exactly once.
// Idempotent: once Text is set (Raw cleared), a second call is a no-op,
// satisfying spec property 7 ("MichelsonTransformer is idempotent on
// already-textual input").
func transformField(log *logrus.Entry, name string, field *tezos.MichelsonField) {
	if field.IsTransformed() {
		return
	}
	if len(field.Raw) == 0 {
		return
	}
	text, err := Render(field.Raw)
	if err != nil {
		logParseFailure(log, name, field.Raw, err)
	}
	field.Text = text
	field.Raw = nil
}
