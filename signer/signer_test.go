package signer

import (
	"crypto/ed25519"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestEd25519SignProducesVerifiableSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	s := NewEd25519Signer(priv)
	sig, err := s.Sign([]byte("forged-bytes"))
	require.NoError(t, err)

	digest, err := watermarkedDigest([]byte("forged-bytes"))
	require.NoError(t, err)
	require.True(t, ed25519.Verify(pub, digest[:], sig))
}

func TestSecp256k1SignProducesSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	s := NewSecp256k1Signer(priv)
	sig, err := s.Sign([]byte("forged-bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, sig)
}

func TestOperationHashIsDeterministic(t *testing.T) {
	h1, err := OperationHash([]byte("forged"), []byte("sig"))
	require.NoError(t, err)
	h2, err := OperationHash([]byte("forged"), []byte("sig"))
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestOperationHashDiffersOnInput(t *testing.T) {
	h1, err := OperationHash([]byte("forged-a"), []byte("sig"))
	require.NoError(t, err)
	h2, err := OperationHash([]byte("forged-b"), []byte("sig"))
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
