package latticevault

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// SecretKeySize is the length of an encoded SecretKey.
	SecretKeySize = 32
	// PublicKeySize is the length of an encoded (SEC1 compressed) PublicKey.
	PublicKeySize = 33
	// maxKeygenAttempts bounds rejection sampling. The chance of a single
	// 32-byte draw being rejected is below 2^-127.
	maxKeygenAttempts = 64
)

var errPointAtInfinity = errors.New("point at infinity")

// SecretKey is a secp256k1 scalar in [1, n-1], optionally paired with a
// lattice signing key when produced by a Vault with a lattice scheme.
type SecretKey struct {
	d       secp256k1.ModNScalar
	pub     *PublicKey
	lattice *latticeSecret
}

// PublicKey is the curve point x·G, optionally paired with a lattice
// verification key.
type PublicKey struct {
	p       secp256k1.PublicKey
	lattice *latticePublic
}

// GenerateKey draws a uniformly random secret scalar from rand and returns it
// together with its public point.
func GenerateKey(rand io.Reader) (*SecretKey, *PublicKey, error) {
	const op = "GenerateKey"
	var buf [32]byte
	defer zeroize(buf[:])
	for i := 0; i < maxKeygenAttempts; i++ {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return nil, nil, wrapError(op, InvalidSecretKey, fmt.Errorf("read entropy: %w", err))
		}
		var d secp256k1.ModNScalar
		if overflow := d.SetBytes(&buf); overflow != 0 || d.IsZero() {
			continue
		}
		sk := newSecretKey(&d)
		return sk, sk.pub, nil
	}
	return nil, nil, newError(op, InvalidSecretKey)
}

// ParseSecretKey validates a 32-byte big-endian scalar. It fails with
// InvalidSecretKey when the value is zero or not below the group order.
func ParseSecretKey(b []byte) (*SecretKey, error) {
	const op = "ParseSecretKey"
	if len(b) != SecretKeySize {
		return nil, wrapError(op, InvalidSecretKey, fmt.Errorf("want %d bytes, got %d", SecretKeySize, len(b)))
	}
	var buf [32]byte
	copy(buf[:], b)
	defer zeroize(buf[:])

	var d secp256k1.ModNScalar
	overflow := d.SetBytes(&buf)
	if overflow != 0 || d.IsZero() {
		d.Zero()
		return nil, newError(op, InvalidSecretKey)
	}
	return newSecretKey(&d), nil
}

// ParsePublicKey validates an encoded curve point. Compressed (33 byte) and
// uncompressed (65 byte) SEC1 encodings are accepted; the point at infinity and
// points off the curve fail with InvalidPublicKey.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	const op = "ParsePublicKey"
	if isInfinityEncoding(b) {
		return nil, wrapError(op, InvalidPublicKey, errPointAtInfinity)
	}
	p, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, wrapError(op, InvalidPublicKey, err)
	}
	return &PublicKey{p: *p}, nil
}

func newSecretKey(d *secp256k1.ModNScalar) *SecretKey {
	sk := &SecretKey{}
	sk.d.Set(d)
	var pj secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&sk.d, &pj)
	pj.ToAffine()
	sk.pub = &PublicKey{p: *secp256k1.NewPublicKey(&pj.X, &pj.Y)}
	return sk
}

// isInfinityEncoding reports whether b is one of the conventional encodings of
// the identity: the single byte 0x00 or an all-zero buffer.
func isInfinityEncoding(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}

// Public returns the public key matching sk.
func (sk *SecretKey) Public() *PublicKey {
	return sk.pub
}

// Bytes returns the 32-byte big-endian scalar. The caller owns the returned
// slice and should wipe it when done.
func (sk *SecretKey) Bytes() []byte {
	b := sk.d.Bytes()
	return b[:]
}

// Equal compares two secret keys in constant time.
func (sk *SecretKey) Equal(other *SecretKey) bool {
	if sk == nil || other == nil {
		return sk == other
	}
	a, b := sk.d.Bytes(), other.d.Bytes()
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// HasLattice reports whether sk carries a lattice signing key.
func (sk *SecretKey) HasLattice() bool {
	return sk.lattice != nil
}

// Zero wipes the scalar. sk must not be used afterwards.
func (sk *SecretKey) Zero() {
	sk.d.Zero()
	if sk.lattice != nil {
		sk.lattice.zero()
		sk.lattice = nil
	}
}

// Bytes returns the 33-byte compressed encoding.
func (pk *PublicKey) Bytes() []byte {
	return pk.p.SerializeCompressed()
}

// XOnly returns the 32-byte x-coordinate.
func (pk *PublicKey) XOnly() []byte {
	return pk.p.SerializeCompressed()[1:]
}

// Equal reports whether both keys encode the same curve point and the same
// lattice key (if any).
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if pk == nil || other == nil {
		return pk == other
	}
	if !pk.p.IsEqual(&other.p) {
		return false
	}
	return pk.lattice.equal(other.lattice)
}

// HasLattice reports whether pk carries a lattice verification key.
func (pk *PublicKey) HasLattice() bool {
	return pk.lattice != nil
}

func (pk *PublicKey) jacobian() secp256k1.JacobianPoint {
	var j secp256k1.JacobianPoint
	pk.p.AsJacobian(&j)
	return j
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
