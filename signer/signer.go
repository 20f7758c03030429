// Package signer implements the cryptographic primitives spec §1 calls
// out as "needed only by the send-operation adjunct, not core
// indexing": signing an operation group's watermarked hash and
// computing an operation group hash, for the two key kinds Tezos
// implicit accounts use. Public-key recovery from a signature is not
// provided. tz1 addresses are ed25519; tz2
// addresses are secp256k1, the same curve Bitcoin/Ethereum use, so this
// package reaches for the pack's btcec implementation rather than
// rolling curve arithmetic by hand.
package signer

import (
	"crypto/ed25519"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/moneytrackio/conseil/tezos"
)

// Kind identifies which curve a Signer uses.
type Kind int

const (
	KindEd25519 Kind = iota // tz1
	KindSecp256k1           // tz2
)

// watermarkGenericOperation is prepended to an operation group's
// forged bytes before hashing, per the Tezos signing protocol (0x03).
const watermarkGenericOperation = 0x03

// Signer signs forged operation bytes for one implicit account.
type Signer struct {
	kind Kind
	priv ed25519.PrivateKey
	sec  *btcec.PrivateKey
}

// NewEd25519Signer wraps an existing tz1 private key.
func NewEd25519Signer(priv ed25519.PrivateKey) *Signer {
	return &Signer{kind: KindEd25519, priv: priv}
}

// NewSecp256k1Signer wraps an existing tz2 private key.
func NewSecp256k1Signer(priv *btcec.PrivateKey) *Signer {
	return &Signer{kind: KindSecp256k1, sec: priv}
}

// Sign prepends the generic-operation watermark to forged (the forged
// operation bytes), hashes the result with blake2b-256 and signs the
// digest, returning the raw signature bytes. Tezos
// signatures are over a watermarked blake2b digest of the forged bytes,
// not the raw bytes themselves — skipping the watermark would let a
// signature for one operation kind be replayed as another.
func (s *Signer) Sign(forged []byte) ([]byte, error) {
	digest, err := watermarkedDigest(forged)
	if err != nil {
		return nil, err
	}

	switch s.kind {
	case KindEd25519:
		return ed25519.Sign(s.priv, digest[:]), nil
	case KindSecp256k1:
		sig := ecdsa.Sign(s.sec, digest[:])
		return sig.Serialize(), nil
	default:
		return nil, fmt.Errorf("signer: unknown key kind %d", s.kind)
	}
}

// OperationHash computes the OperationGroupHash for a forged+signed
// operation group: blake2b-256 of the forged bytes with the signature
// appended, per the Tezos operation hash rule.
func OperationHash(forged, signature []byte) (tezos.OperationGroupHash, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", errors.Wrap(err, "signer: constructing blake2b hasher")
	}
	if _, err := h.Write(forged); err != nil {
		return "", err
	}
	if _, err := h.Write(signature); err != nil {
		return "", err
	}
	return tezos.OperationGroupHash(fmt.Sprintf("%x", h.Sum(nil))), nil
}

func watermarkedDigest(forged []byte) ([32]byte, error) {
	watermarked := make([]byte, 0, len(forged)+1)
	watermarked = append(watermarked, watermarkGenericOperation)
	watermarked = append(watermarked, forged...)
	return blake2b.Sum256(watermarked), nil
}
