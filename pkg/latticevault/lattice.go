package latticevault

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/schemes"
)

// DefaultLatticeScheme is ML-DSA-65 (FIPS 204), the standardized form of
// Dilithium3.
const DefaultLatticeScheme = "ML-DSA-65"

// bindTag prefixes every transcript the lattice key signs.
const bindTag = "latticevault/bind/v1"

var errSchemeMismatch = errors.New("lattice scheme mismatch")

// LookupScheme resolves a circl signature scheme by name, e.g. "ML-DSA-65",
// "ML-DSA-87" or "Dilithium3". The empty string yields nil, meaning a
// classical-only vault.
func LookupScheme(name string) (sign.Scheme, error) {
	if name == "" {
		return nil, nil
	}
	if name == DefaultLatticeScheme {
		return mldsa65.Scheme(), nil
	}
	s := schemes.ByName(name)
	if s == nil {
		return nil, fmt.Errorf("unknown lattice scheme %q", name)
	}
	return s, nil
}

type latticeSecret struct {
	scheme sign.Scheme
	key    sign.PrivateKey
}

type latticePublic struct {
	scheme sign.Scheme
	key    sign.PublicKey
	raw    []byte
}

func (s *latticeSecret) zero() {
	s.key = nil
}

func (p *latticePublic) equal(other *latticePublic) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.scheme.Name() == other.scheme.Name() && bytes.Equal(p.raw, other.raw)
}

// generateLattice derives a lattice key pair from a seed read off rand.
func generateLattice(scheme sign.Scheme, rand io.Reader) (*latticeSecret, *latticePublic, error) {
	seed := make([]byte, scheme.SeedSize())
	defer zeroize(seed)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, nil, fmt.Errorf("read lattice seed: %w", err)
	}
	pk, sk := scheme.DeriveKey(seed)
	raw, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal lattice public key: %w", err)
	}
	return &latticeSecret{scheme: scheme, key: sk}, &latticePublic{scheme: scheme, key: pk, raw: raw}, nil
}

func parseLatticePublic(scheme sign.Scheme, b []byte) (*latticePublic, error) {
	if len(b) != scheme.PublicKeySize() {
		return nil, fmt.Errorf("lattice public key: want %d bytes, got %d", scheme.PublicKeySize(), len(b))
	}
	pk, err := scheme.UnmarshalBinaryPublicKey(b)
	if err != nil {
		return nil, err
	}
	return &latticePublic{scheme: scheme, key: pk, raw: append([]byte(nil), b...)}, nil
}

func parseLatticeSecret(scheme sign.Scheme, b []byte) (*latticeSecret, error) {
	if len(b) != scheme.PrivateKeySize() {
		return nil, fmt.Errorf("lattice private key: want %d bytes, got %d", scheme.PrivateKeySize(), len(b))
	}
	sk, err := scheme.UnmarshalBinaryPrivateKey(b)
	if err != nil {
		return nil, err
	}
	return &latticeSecret{scheme: scheme, key: sk}, nil
}

// bindingTranscript is what the lattice key signs: the full Schnorr signature,
// the classical public key and the message.
func bindingTranscript(sig *Signature, pk *PublicKey, message []byte) []byte {
	r := sig.r.SerializeCompressed()
	s := sig.s.Bytes()
	p := pk.Bytes()
	out := make([]byte, 0, len(bindTag)+len(r)+len(s)+len(p)+len(message))
	out = append(out, bindTag...)
	out = append(out, r...)
	out = append(out, s[:]...)
	out = append(out, p...)
	return append(out, message...)
}

func signatureOpts(scheme sign.Scheme, context string) *sign.SignatureOpts {
	if context == "" || !scheme.SupportsContext() {
		return nil
	}
	return &sign.SignatureOpts{Context: context}
}

// latticeSign signs transcript. circl reports misuse by panicking; that is
// turned into an error so malformed keys never crash the caller.
func latticeSign(sk *latticeSecret, transcript []byte, context string) (sig []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, err = nil, fmt.Errorf("lattice sign: %v", r)
		}
	}()
	if sk == nil || sk.key == nil {
		return nil, errors.New("missing lattice signing key")
	}
	sig = sk.scheme.Sign(sk.key, transcript, signatureOpts(sk.scheme, context))
	if len(sig) != sk.scheme.SignatureSize() {
		return nil, fmt.Errorf("lattice sign: unexpected signature length %d", len(sig))
	}
	return sig, nil
}

func latticeVerify(pk *latticePublic, transcript, sig []byte, context string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	if pk == nil || len(sig) != pk.scheme.SignatureSize() {
		return false
	}
	return pk.scheme.Verify(pk.key, transcript, sig, signatureOpts(pk.scheme, context))
}
