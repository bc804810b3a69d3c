package spiflash

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Verifier backs port.SignatureVerifier for the reserved-but-unused
// TMD_USE_COSE_SIG build flag in the original project: a provisioned
// public key checks a detached ECDSA signature delivered alongside the
// patch bytes by whatever transport fetched them (out of scope here,
// §1), the same way address.go derives a key from the wallet's curve
// rather than rolling its own.
type Verifier struct {
	pubKey *btcec.PublicKey
	sig    *ecdsa.Signature
}

// NewVerifier builds a Verifier from a compressed or uncompressed
// secp256k1 public key and a DER-encoded signature over the patch's two
// digest fields.
func NewVerifier(pubKeyBytes, sigDER []byte) (*Verifier, error) {
	pub, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("spiflash: parsing signature public key: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return nil, fmt.Errorf("spiflash: parsing patch signature: %w", err)
	}
	return &Verifier{pubKey: pub, sig: sig}, nil
}

// VerifyPatch checks the signature over the concatenation of baseChk and
// targetChk, binding the signature to exactly the pair of digests the
// patch header advertises.
func (v *Verifier) VerifyPatch(baseChk, targetChk [32]byte) (bool, error) {
	msg := make([]byte, 0, 64)
	msg = append(msg, baseChk[:]...)
	msg = append(msg, targetChk[:]...)
	digest := sha256.Sum256(msg)
	return v.sig.Verify(digest[:], v.pubKey), nil
}
