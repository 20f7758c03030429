// Package michelson parses the embedded JSON Michelson AST (the
// "script"/"storage"/"code"/"parameters" payloads on operations and
// accounts) into textual Michelson source, spec §4.5. A Michelson
// expression is a recursive Prim node: {"prim": "Pair", "args": [...],
// "annots": [...]}, or a leaf {"int": "5"}, {"string": "..."}, or
// {"bytes": "..."}, or a bare JSON array of such nodes (a Michelson
// sequence). This shape matches the JSON representation used
// throughout the Tezos RPC/indexer ecosystem referenced in this
// module's design notes (e.g. blockwatch.cc/tzgo's micheline.Prim).
package michelson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/moneytrackio/conseil/tezos"
)

// Class identifies which of the two transformation entry points applies
// to a field, spec §4.5: Schema is the full parameter/storage/code
// triple on a script field; Instruction applies to storage and
// parameters individually.
type Class int

const (
	ClassSchema Class = iota
	ClassInstruction
)

// UnparsableSentinelPrefix is prepended to the original JSON when a
// field fails to parse, spec §4.5/§7: "the field is replaced with the
// sentinel string Unparsable code: <original json>".
const UnparsableSentinelPrefix = "Unparsable code: "

// prim is the raw JSON shape of one Michelson AST node.
type prim struct {
	Prim   string          `json:"prim,omitempty"`
	Int    *string         `json:"int,omitempty"`
	String *string         `json:"string,omitempty"`
	Bytes  *string         `json:"bytes,omitempty"`
	Args   []json.RawMessage `json:"args,omitempty"`
	Annots []string        `json:"annots,omitempty"`
}

// Render parses raw as a Michelson expression (a single Prim object, or
// a JSON array of Prim objects forming a sequence) and renders it to
// textual Michelson source. On any parse failure it returns the
// "Unparsable code: …" sentinel and a non-nil error so the caller can
// log it — the caller must not propagate the error any further up than
// one log line (spec §4.5: "one malformed script must never abort a
// page").
func Render(raw []byte) (string, error) {
	text, err := renderValue(raw)
	if err != nil {
		return UnparsableSentinelPrefix + string(raw), tezosKindWrap(err)
	}
	return text, nil
}

func renderValue(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", fmt.Errorf("michelson: empty expression")
	}

	if trimmed[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return "", err
		}
		parts := make([]string, len(elems))
		for i, e := range elems {
			s, err := renderValue(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "{ " + strings.Join(parts, " ; ") + " }", nil
	}

	var p prim
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", err
	}

	switch {
	case p.Int != nil:
		return *p.Int, nil
	case p.String != nil:
		return strconvQuote(*p.String), nil
	case p.Bytes != nil:
		return "0x" + *p.Bytes, nil
	case p.Prim != "":
		return renderPrim(p)
	default:
		return "", fmt.Errorf("michelson: unrecognized node shape: %s", trimmed)
	}
}

func renderPrim(p prim) (string, error) {
	var b strings.Builder
	b.WriteString(p.Prim)
	for _, a := range p.Annots {
		b.WriteString(" ")
		b.WriteString(a)
	}
	for _, arg := range p.Args {
		s, err := renderValue(arg)
		if err != nil {
			return "", err
		}
		b.WriteString(" ")
		if needsParens(arg) {
			b.WriteString("(")
			b.WriteString(s)
			b.WriteString(")")
		} else {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

// needsParens reports whether a nested Prim argument must be
// parenthesized: sequences ("{ ... }") and leaves never need it, but a
// nested prim application with its own arguments does, to keep the
// rendering unambiguous (e.g. "Pair (Left 1) 2" rather than
// "Pair Left 1 2").
func needsParens(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 || trimmed[0] == '[' {
		return false
	}
	var p prim
	if err := json.Unmarshal(raw, &p); err != nil {
		return false
	}
	return p.Prim != "" && len(p.Args) > 0
}

func strconvQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// logParseFailure logs a Michelson parse error at error level, per spec
// §7 ("MichelsonParseError — swallowed locally ... logged at error
// level").
func logParseFailure(log *logrus.Entry, field string, raw []byte, err error) {
	log.WithField("field", field).WithError(err).Error("michelson: failed to parse expression, using sentinel")
}

func tezosKindWrap(err error) error { return tezos.WithKind(tezos.KindMichelsonParse, err) }
