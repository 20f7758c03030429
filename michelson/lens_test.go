package michelson

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/moneytrackio/conseil/tezos"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.Out = discardWriter{}
	return logrus.NewEntry(l)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestTransformRewritesScriptAndParameters(t *testing.T) {
	b := tezos.Block{
		Operations: []tezos.OperationsGroup{
			{
				Contents: []tezos.Operation{
					{
						Kind:       tezos.OpTransaction,
						Script:     tezos.MichelsonField{Raw: []byte(`{"int":"5"}`)},
						Parameters: tezos.MichelsonField{Raw: []byte(`{"string":"hi"}`)},
					},
				},
			},
		},
	}

	out := Transform(discardLog(), b)
	op := out.Operations[0].Contents[0]
	require.Equal(t, "5", op.Script.Text)
	require.Equal(t, `"hi"`, op.Parameters.Text)
	require.True(t, op.Script.IsTransformed())
	require.True(t, op.Parameters.IsTransformed())
}

func TestTransformLeavesUnsetFieldsAlone(t *testing.T) {
	b := tezos.Block{
		Operations: []tezos.OperationsGroup{
			{Contents: []tezos.Operation{{Kind: tezos.OpReveal}}},
		},
	}
	out := Transform(discardLog(), b)
	require.False(t, out.Operations[0].Contents[0].Script.IsTransformed())
}

func TestTransformIsIdempotent(t *testing.T) {
	b := tezos.Block{
		Operations: []tezos.OperationsGroup{
			{Contents: []tezos.Operation{{Kind: tezos.OpTransaction, Script: tezos.MichelsonField{Raw: []byte(`{"int":"1"}`)}}}},
		},
	}
	once := Transform(discardLog(), b)
	twice := Transform(discardLog(), once)
	require.Equal(t, once.Operations[0].Contents[0].Script.Text, twice.Operations[0].Contents[0].Script.Text)
}

func TestTransformAccountSetsSentinelOnMalformedStorage(t *testing.T) {
	a := tezos.Account{Storage: tezos.MichelsonField{Raw: []byte(`{}`)}}
	out := TransformAccount(discardLog(), a)
	require.Contains(t, out.Storage.Text, UnparsableSentinelPrefix)
}

func TestTransformAccountRewritesScriptAndStorage(t *testing.T) {
	a := tezos.Account{
		Script:  tezos.MichelsonField{Raw: []byte(`{"prim":"Pair","args":[{"int":"1"},{"int":"2"}]}`)},
		Storage: tezos.MichelsonField{Raw: []byte(`{"int":"0"}`)},
	}
	out := TransformAccount(discardLog(), a)
	require.Equal(t, "Pair 1 2", out.Script.Text)
	require.Equal(t, "0", out.Storage.Text)
}
