package latticevault

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mahdiidarabi/latticevault/internal/prf"
)

// AuxSize is the length of the auxiliary randomness consumed per signature.
const AuxSize = 32

// Nonce is the ephemeral scalar k and its commitment R = k·G. It lives for a
// single signing operation.
type Nonce struct {
	k secp256k1.ModNScalar
	r secp256k1.PublicKey
}

// DeriveNonce derives the per-signature nonce from the secret key, fresh
// auxiliary randomness and the message:
//
//	t = PRF_aux(aux) XOR x
//	k = PRF_nonce(t || P.x || m) mod n
//	R = k·G
//
// It fails with InvalidNonce when k reduces to zero; callers retry with new
// aux.
func DeriveNonce(sk *SecretKey, aux [AuxSize]byte, message []byte) (*Nonce, error) {
	const op = "DeriveNonce"

	t := prf.Sum(prf.TagAux, aux[:])
	x := sk.d.Bytes()
	for i := range t {
		t[i] ^= x[i]
	}
	zeroize(x[:])

	kb := prf.Sum(prf.TagNonce, t[:], sk.pub.XOnly(), message)
	zeroize(t[:])

	n := &Nonce{}
	n.k.SetByteSlice(kb[:])
	zeroize(kb[:])
	if n.k.IsZero() {
		return nil, newError(op, InvalidNonce)
	}

	var rj secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&n.k, &rj)
	rj.ToAffine()
	n.r = *secp256k1.NewPublicKey(&rj.X, &rj.Y)
	return n, nil
}

// Commitment returns the compressed encoding of R.
func (n *Nonce) Commitment() []byte {
	return n.r.SerializeCompressed()
}

// Zero wipes k.
func (n *Nonce) Zero() {
	n.k.Zero()
}
