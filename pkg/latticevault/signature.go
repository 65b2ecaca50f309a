package latticevault

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// CommitmentSize is the length of the encoded commitment R.
	CommitmentSize = 33
	// ScalarSize is the length of the encoded response s.
	ScalarSize = 32
	// SchnorrSignatureSize is the length of the classical part of a signature.
	SchnorrSignatureSize = CommitmentSize + ScalarSize
)

// Signature is the pair (R, s) plus, for hybrid vaults, the lattice signature
// over the binding transcript. It is immutable once produced.
type Signature struct {
	r       secp256k1.PublicKey
	s       secp256k1.ModNScalar
	lattice []byte
}

// ParseSignature decodes R || s || lattice. R must be a valid curve point and
// s must be strictly below the group order; there is no reduction, so each
// valid signature has exactly one encoding. The lattice tail is kept verbatim
// and checked by Vault.Verify.
func ParseSignature(b []byte) (*Signature, error) {
	const op = "ParseSignature"
	if len(b) < SchnorrSignatureSize {
		return nil, wrapError(op, InvalidSignature, fmt.Errorf("want at least %d bytes, got %d", SchnorrSignatureSize, len(b)))
	}
	r, err := secp256k1.ParsePubKey(b[:CommitmentSize])
	if err != nil {
		return nil, wrapError(op, InvalidSignature, err)
	}
	var sb [ScalarSize]byte
	copy(sb[:], b[CommitmentSize:SchnorrSignatureSize])
	sig := &Signature{r: *r}
	if overflow := sig.s.SetBytes(&sb); overflow != 0 {
		return nil, wrapError(op, InvalidSignature, fmt.Errorf("response scalar not below group order"))
	}
	if tail := b[SchnorrSignatureSize:]; len(tail) > 0 {
		sig.lattice = append([]byte(nil), tail...)
	}
	return sig, nil
}

// Bytes returns R || s || lattice.
func (sig *Signature) Bytes() []byte {
	out := make([]byte, 0, SchnorrSignatureSize+len(sig.lattice))
	out = append(out, sig.r.SerializeCompressed()...)
	s := sig.s.Bytes()
	out = append(out, s[:]...)
	return append(out, sig.lattice...)
}

// Commitment returns the compressed encoding of R.
func (sig *Signature) Commitment() []byte {
	return sig.r.SerializeCompressed()
}

// Response returns the 32-byte big-endian response scalar s.
func (sig *Signature) Response() []byte {
	s := sig.s.Bytes()
	return s[:]
}

// Lattice returns the lattice signature, or nil for classical signatures.
func (sig *Signature) Lattice() []byte {
	return sig.lattice
}
