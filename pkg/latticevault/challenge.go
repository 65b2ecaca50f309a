package latticevault

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mahdiidarabi/latticevault/internal/prf"
)

// ChallengeSize is the length of a Challenge.
const ChallengeSize = 32

// Challenge is the 256-bit Fiat-Shamir challenge e, already reduced modulo the
// group order.
type Challenge [ChallengeSize]byte

// DeriveChallenge binds a commitment, a public key and a message:
//
//	e = PRF_challenge(R || P.x || m) mod n
//
// commitment is the SEC1 compressed encoding of R. The function is pure; the
// signer and the verifier compute it independently.
func DeriveChallenge(commitment []byte, pk *PublicKey, message []byte) Challenge {
	sum := prf.Sum(prf.TagChallenge, commitment, pk.XOnly(), message)
	var e secp256k1.ModNScalar
	e.SetBytes(&sum)
	return Challenge(e.Bytes())
}

// Scalar returns e as a scalar modulo n.
func (c Challenge) Scalar() *secp256k1.ModNScalar {
	var e secp256k1.ModNScalar
	b := [ChallengeSize]byte(c)
	e.SetBytes(&b)
	return &e
}
