package nonceaudit

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mahdiidarabi/latticevault/pkg/latticevault"
)

// CurveOrder is the order n of the secp256k1 group.
var CurveOrder, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// ComputeChallenge returns e = H(R, P.x, m) mod n for rec, using the same
// derivation as the signer.
func ComputeChallenge(rec *Record) (*big.Int, error) {
	pk, err := latticevault.ParsePublicKey(rec.PublicKey)
	if err != nil {
		return nil, err
	}
	e := latticevault.DeriveChallenge(rec.Commitment, pk, rec.Message).Scalar().Bytes()
	return new(big.Int).SetBytes(e[:]), nil
}

// RecoverPrivateKey recovers the signing key from two signatures whose nonces
// satisfy k2 = a*k1 + b.
//
//	s1 = k1 + e1*x
//	s2 = k2 + e2*x = a*(s1 - e1*x) + b + e2*x
//
// so
//
//	x = (s2 - a*s1 - b) / (e2 - a*e1) mod n
func RecoverPrivateKey(sig1, sig2 *Record, a, b *big.Int) (*big.Int, error) {
	e1, err := ComputeChallenge(sig1)
	if err != nil {
		return nil, fmt.Errorf("first signature: %w", err)
	}
	e2, err := ComputeChallenge(sig2)
	if err != nil {
		return nil, fmt.Errorf("second signature: %w", err)
	}
	return solve(sig1.Response, sig2.Response, e1, e2, a, b)
}

func solve(s1, s2, e1, e2, a, b *big.Int) (*big.Int, error) {
	n := CurveOrder

	numerator := new(big.Int).Mul(a, s1)
	numerator.Sub(s2, numerator)
	numerator.Sub(numerator, b)
	numerator.Mod(numerator, n)

	denominator := new(big.Int).Mul(a, e1)
	denominator.Sub(e2, denominator)
	denominator.Mod(denominator, n)

	if denominator.Sign() == 0 {
		return nil, errors.New("denominator is zero: cannot recover private key")
	}
	inv := new(big.Int).ModInverse(denominator, n)
	if inv == nil {
		return nil, errors.New("failed to compute modular inverse")
	}

	priv := numerator.Mul(numerator, inv)
	return priv.Mod(priv, n), nil
}

// VerifyRecoveredKey reports whether priv·G equals publicKey (compressed or
// uncompressed).
func VerifyRecoveredKey(priv *big.Int, publicKey []byte) (bool, error) {
	if priv.Sign() <= 0 || priv.Cmp(CurveOrder) >= 0 {
		return false, errors.New("private key out of valid range")
	}
	want, err := latticevault.ParsePublicKey(publicKey)
	if err != nil {
		return false, err
	}
	sk, err := latticevault.ParseSecretKey(priv.FillBytes(make([]byte, latticevault.SecretKeySize)))
	if err != nil {
		return false, err
	}
	defer sk.Zero()
	return sk.Public().Equal(want), nil
}

// NonceRelationHolds reports whether the commitments satisfy
// R2 == a·R1 + b·G, i.e. the nonces behind them satisfy k2 = a*k1 + b.
// No key material is needed to check this.
func NonceRelationHolds(r1, r2 []byte, a, b *big.Int) (bool, error) {
	p1, err := parseCommitment(r1)
	if err != nil {
		return false, err
	}
	p2, err := parseCommitment(r2)
	if err != nil {
		return false, err
	}
	return relationHolds(&p1, &p2, a, b), nil
}

func parseCommitment(b []byte) (secp256k1.JacobianPoint, error) {
	var p secp256k1.JacobianPoint
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return p, fmt.Errorf("invalid commitment: %w", err)
	}
	pub.AsJacobian(&p)
	return p, nil
}

// relationHolds expects r2 in affine form.
func relationHolds(r1, r2 *secp256k1.JacobianPoint, a, b *big.Int) bool {
	var aR1, bG, sum secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(toScalar(a), r1, &aR1)
	secp256k1.ScalarBaseMultNonConst(toScalar(b), &bG)
	secp256k1.AddNonConst(&aR1, &bG, &sum)
	return equalsAffine(&sum, r2)
}

// equalsAffine compares a Jacobian point against an affine one without
// inverting Z: X == x·Z² and Y == y·Z³.
func equalsAffine(p, q *secp256k1.JacobianPoint) bool {
	var z secp256k1.FieldVal
	z.Set(&p.Z).Normalize()
	if z.IsZero() {
		return false
	}
	var z2, z3, x, y, px, py secp256k1.FieldVal
	z2.SquareVal(&z)
	z3.Mul2(&z2, &z)
	x.Mul2(&q.X, &z2).Normalize()
	y.Mul2(&q.Y, &z3).Normalize()
	px.Set(&p.X).Normalize()
	py.Set(&p.Y).Normalize()
	return x.Equals(&px) && y.Equals(&py)
}

// toScalar reduces v modulo n, mapping negatives to n - |v|.
func toScalar(v *big.Int) *secp256k1.ModNScalar {
	m := new(big.Int).Mod(v, CurveOrder)
	var s secp256k1.ModNScalar
	s.SetByteSlice(m.FillBytes(make([]byte, 32)))
	return &s
}
