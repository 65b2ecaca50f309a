package nonceaudit

import (
	"math/big"

	"github.com/mahdiidarabi/latticevault/pkg/latticevault"
)

// Record is one Schnorr signature together with what it signed.
type Record struct {
	Commitment []byte   // R, compressed (33 bytes)
	Response   *big.Int // s
	Message    []byte
	PublicKey  []byte // signer's compressed public key; may be empty if supplied to the search
}

// NewRecord captures a vault signature for auditing.
func NewRecord(sig *latticevault.Signature, pk *latticevault.PublicKey, message []byte) *Record {
	return &Record{
		Commitment: sig.Commitment(),
		Response:   new(big.Int).SetBytes(sig.Response()),
		Message:    append([]byte(nil), message...),
		PublicKey:  pk.Bytes(),
	}
}

// AffineRelationship is a nonce relation k2 = a*k1 + b.
type AffineRelationship struct {
	A *big.Int
	B *big.Int
}

// RecoveryResult describes a recovered key.
type RecoveryResult struct {
	PrivateKey    *big.Int
	PublicKey     []byte
	Relationship  AffineRelationship
	SignaturePair [2]int
	Verified      bool
	Pattern       string
}

// SecretKey converts the recovered scalar into a vault secret key.
func (r *RecoveryResult) SecretKey() (*latticevault.SecretKey, error) {
	return latticevault.ParseSecretKey(r.PrivateKey.FillBytes(make([]byte, latticevault.SecretKeySize)))
}
