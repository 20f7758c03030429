package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockDataGenesis(t *testing.T) {
	raw := []byte(`{"level":0,"hash":"BLockGenesis","predecessor":"BLockGenesis","timestamp":"2018-06-30T16:07:32Z","protocol":"PrihK96","chain_id":"NetXdQprcVkpaWU","operations_hash":"","fitness":[],"context":"","signature":"","validation_pass":0,"priority":0,"metadata":{}}`)
	b, err := BlockData(raw)
	require.NoError(t, err)
	require.True(t, b.IsGenesis())
	require.Equal(t, 0, b.Level)
}

func TestOperationsFlattensPasses(t *testing.T) {
	raw := []byte(`[[{"protocol":"P1","chain_id":"c","hash":"op1","branch":"b","signature":"s","contents":[{"kind":"endorsement","level":5}]}],[{"protocol":"P1","chain_id":"c","hash":"op2","branch":"b","signature":"s","contents":[{"kind":"transaction"}]}]]`)
	groups, err := Operations(raw)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.EqualValues(t, "op1", groups[0].Hash)
	require.EqualValues(t, "op2", groups[1].Hash)
}

func TestManagerPubkeyRenamed(t *testing.T) {
	raw := []byte(`{"kind":"reveal","manager_pubkey":"edpk..."}`)
	normalized := normalize(raw)
	require.Contains(t, string(normalized), `"managerPubkey"`)
	require.NotContains(t, string(normalized), `"manager_pubkey"`)
}

func TestOptionalIntAbsent(t *testing.T) {
	opt, err := OptionalInt([]byte("null"))
	require.NoError(t, err)
	require.True(t, opt.IsNone())
}

func TestOptionalIntPresent(t *testing.T) {
	opt, err := OptionalInt([]byte("7123"))
	require.NoError(t, err)
	v, ok := opt.Get()
	require.True(t, ok)
	require.Equal(t, 7123, v)
}

func TestAccountIdsDecodesList(t *testing.T) {
	raw := []byte(`["tz1abc","KT1def"]`)
	ids, err := AccountIds(raw)
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestManagerKeyBareString(t *testing.T) {
	key, err := ManagerKey([]byte(`"edpkabc"`))
	require.NoError(t, err)
	require.Equal(t, "edpkabc", key)
}

func TestManagerKeyObjectForm(t *testing.T) {
	key, err := ManagerKey([]byte(`{"key":"edpkabc"}`))
	require.NoError(t, err)
	require.Equal(t, "edpkabc", key)
}
