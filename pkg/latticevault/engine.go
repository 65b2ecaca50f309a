package latticevault

import (
	"crypto/subtle"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// SignSchnorr produces the classical signature (R, s) with
//
//	s = k + e·x mod n
//
// where (k, R) comes from DeriveNonce and e from DeriveChallenge. aux must be
// fresh for every call; reusing aux for the same key and message reproduces the
// same signature, reusing it across messages is harmless because the message
// is part of the nonce derivation.
func SignSchnorr(sk *SecretKey, message []byte, aux [AuxSize]byte) (*Signature, error) {
	const op = "SignSchnorr"
	if sk == nil || sk.d.IsZero() {
		return nil, newError(op, InvalidSecretKey)
	}

	nonce, err := DeriveNonce(sk, aux, message)
	if err != nil {
		return nil, err
	}
	defer nonce.Zero()

	e := DeriveChallenge(nonce.Commitment(), sk.pub, message).Scalar()

	sig := &Signature{r: nonce.r}
	sig.s.Mul2(e, &sk.d).Add(&nonce.k)

	// s must re-decode to itself below n.
	encoded := sig.s.Bytes()
	var check secp256k1.ModNScalar
	if overflow := check.SetBytes(&encoded); overflow != 0 || !check.Equals(&sig.s) {
		return nil, newError(op, ArithmeticOverflow)
	}
	if sig.s.IsZero() {
		// k = -e·x. Verifiers reject s = 0, so ask for a fresh nonce.
		return nil, newError(op, InvalidNonce)
	}
	return sig, nil
}

// VerifySchnorr checks s·G == R + e·P. Both sides are fully computed and their
// encodings compared in constant time, so the running time does not depend on
// where a mismatch occurs.
func VerifySchnorr(pk *PublicKey, message []byte, sig *Signature) error {
	const op = "VerifySchnorr"
	if pk == nil {
		return newError(op, InvalidPublicKey)
	}
	if sig == nil || sig.s.IsZero() {
		return newError(op, InvalidSignature)
	}

	e := DeriveChallenge(sig.r.SerializeCompressed(), pk, message).Scalar()

	var lhs, eP, rhs, r secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&sig.s, &lhs)

	p := pk.jacobian()
	secp256k1.ScalarMultNonConst(e, &p, &eP)
	sig.r.AsJacobian(&r)
	secp256k1.AddNonConst(&r, &eP, &rhs)

	a, b := affineBytes(&lhs), affineBytes(&rhs)
	if subtle.ConstantTimeCompare(a[:], b[:]) != 1 {
		return newError(op, InvalidSignature)
	}
	return nil
}

// affineBytes returns X || Y of p in affine form, or 64 zero bytes for the
// point at infinity.
func affineBytes(p *secp256k1.JacobianPoint) [64]byte {
	var out [64]byte
	var x, y, z secp256k1.FieldVal
	x.Set(&p.X).Normalize()
	y.Set(&p.Y).Normalize()
	z.Set(&p.Z).Normalize()
	if (x.IsZero() && y.IsZero()) || z.IsZero() {
		return out
	}
	p.ToAffine()
	p.X.PutBytesUnchecked(out[:32])
	p.Y.PutBytesUnchecked(out[32:])
	return out
}
