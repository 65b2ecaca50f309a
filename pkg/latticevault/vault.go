package latticevault

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cloudflare/circl/sign"

	"github.com/mahdiidarabi/latticevault/internal/logging"
)

// Vault is the public signing surface: key generation, signing and
// verification. A Vault is safe for concurrent use.
type Vault struct {
	cfg    Config
	scheme sign.Scheme
	rand   io.Reader
	logger logging.Logger
}

// New builds a Vault from cfg, drawing randomness from crypto/rand.
func New(cfg Config) (*Vault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	scheme, err := LookupScheme(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	return &Vault{
		cfg:    cfg,
		scheme: scheme,
		rand:   rand.Reader,
		logger: logging.Discard(),
	}, nil
}

// NewVault returns a Vault with DefaultConfig.
func NewVault() *Vault {
	v, err := New(DefaultConfig())
	if err != nil {
		// DefaultConfig is static and always valid.
		panic(err)
	}
	return v
}

// WithRand sets the randomness source. Readers other than crypto/rand.Reader
// are serialized behind a mutex, so a deterministic reader shared by several
// goroutines still hands each Sign call distinct bytes.
func (v *Vault) WithRand(r io.Reader) *Vault {
	if r == nil || r == rand.Reader {
		v.rand = rand.Reader
		return v
	}
	v.rand = &lockedReader{r: r}
	return v
}

// WithLogger routes the vault's diagnostics to l.
func (v *Vault) WithLogger(l *slog.Logger) *Vault {
	v.logger = logging.New(l).With("component", "vault")
	return v
}

// Config returns the configuration the vault was built with.
func (v *Vault) Config() Config {
	return v.cfg
}

// Hybrid reports whether signatures carry a lattice binding.
func (v *Vault) Hybrid() bool {
	return v.scheme != nil
}

// SignatureSize is the fixed length of an encoded signature.
func (v *Vault) SignatureSize() int {
	if v.scheme == nil {
		return SchnorrSignatureSize
	}
	return SchnorrSignatureSize + v.scheme.SignatureSize()
}

// PublicKeySize is the fixed length of an encoded public key.
func (v *Vault) PublicKeySize() int {
	if v.scheme == nil {
		return PublicKeySize
	}
	return PublicKeySize + v.scheme.PublicKeySize()
}

// SecretKeySize is the fixed length of an encoded secret key.
func (v *Vault) SecretKeySize() int {
	if v.scheme == nil {
		return SecretKeySize
	}
	return SecretKeySize + v.scheme.PrivateKeySize()
}

// GenerateKeypair returns a fresh secret key and its public key. For hybrid
// vaults both carry the lattice halves.
func (v *Vault) GenerateKeypair() (*SecretKey, *PublicKey, error) {
	sk, pk, err := GenerateKey(v.rand)
	if err != nil {
		return nil, nil, err
	}
	if v.scheme == nil {
		return sk, pk, nil
	}
	lsk, lpk, err := generateLattice(v.scheme, v.rand)
	if err != nil {
		sk.Zero()
		return nil, nil, wrapError("GenerateKeypair", LatticeSignatureError, err)
	}
	sk.lattice = lsk
	pk.lattice = lpk
	return sk, pk, nil
}

// signSchnorr is replaced in tests to force nonce rejections.
var signSchnorr = SignSchnorr

// Sign signs message with sk using fresh auxiliary randomness. InvalidNonce is
// retried with new randomness up to Config.MaxNonceAttempts times; every other
// failure is returned unchanged.
func (v *Vault) Sign(sk *SecretKey, message []byte) (*Signature, error) {
	const op = "Sign"
	ctx := context.Background()
	if sk == nil {
		return nil, newError(op, InvalidSecretKey)
	}
	if v.scheme != nil {
		if sk.lattice == nil || sk.pub.lattice == nil {
			return nil, wrapError(op, LatticeSignatureError, errors.New("secret key has no lattice half"))
		}
		if sk.lattice.scheme.Name() != v.scheme.Name() {
			return nil, wrapError(op, LatticeSignatureError, errSchemeMismatch)
		}
	}

	var (
		sig *Signature
		err error
		aux [AuxSize]byte
	)
	for attempt := 0; attempt < v.cfg.MaxNonceAttempts; attempt++ {
		if _, rerr := io.ReadFull(v.rand, aux[:]); rerr != nil {
			return nil, wrapError(op, InvalidNonce, fmt.Errorf("read aux: %w", rerr))
		}
		sig, err = signSchnorr(sk, message, aux)
		if !errors.Is(err, InvalidNonce) {
			break
		}
		v.logger.Warn(ctx, "nonce rejected, retrying", "attempt", attempt+1)
	}
	zeroize(aux[:])
	if err != nil {
		v.logger.Debug(ctx, "sign failed", "err", err, logging.Redacted("secret_key"))
		return nil, err
	}

	if v.scheme != nil {
		ls, lerr := latticeSign(sk.lattice, bindingTranscript(sig, sk.pub, message), v.cfg.Context)
		if lerr != nil {
			v.logger.Error(ctx, "lattice sign failed", "scheme", v.scheme.Name(), "err", lerr)
			return nil, wrapError(op, LatticeSignatureError, lerr)
		}
		sig.lattice = ls
	}
	v.logger.Debug(ctx, "signed", "msg_len", len(message), "hybrid", v.scheme != nil)
	return sig, nil
}

// Verify checks sig on message under pk. The Schnorr identity is checked
// first (InvalidSignature), then the lattice binding (LatticeSignatureError).
func (v *Vault) Verify(pk *PublicKey, message []byte, sig *Signature) error {
	const op = "Verify"
	ctx := context.Background()
	if sig == nil {
		return newError(op, InvalidSignature)
	}
	if v.scheme == nil && len(sig.lattice) != 0 {
		return wrapError(op, InvalidSignature, errors.New("unexpected lattice signature"))
	}

	if err := VerifySchnorr(pk, message, sig); err != nil {
		v.logger.Debug(ctx, "schnorr verification failed", "err", err)
		return err
	}
	if v.scheme == nil {
		return nil
	}

	if pk.lattice == nil {
		return wrapError(op, LatticeSignatureError, errors.New("public key has no lattice half"))
	}
	if pk.lattice.scheme.Name() != v.scheme.Name() {
		return wrapError(op, LatticeSignatureError, errSchemeMismatch)
	}
	if !latticeVerify(pk.lattice, bindingTranscript(sig, pk, message), sig.lattice, v.cfg.Context) {
		v.logger.Debug(ctx, "lattice verification failed", "scheme", v.scheme.Name())
		return newError(op, LatticeSignatureError)
	}
	return nil
}

// ParseSignature decodes a signature of exactly SignatureSize bytes.
func (v *Vault) ParseSignature(b []byte) (*Signature, error) {
	if len(b) != v.SignatureSize() {
		return nil, wrapError("ParseSignature", InvalidSignature,
			fmt.Errorf("want %d bytes, got %d", v.SignatureSize(), len(b)))
	}
	return ParseSignature(b)
}

// ParsePublicKey decodes classical || lattice public key bytes.
func (v *Vault) ParsePublicKey(b []byte) (*PublicKey, error) {
	const op = "ParsePublicKey"
	if len(b) != v.PublicKeySize() {
		return nil, wrapError(op, InvalidPublicKey, fmt.Errorf("want %d bytes, got %d", v.PublicKeySize(), len(b)))
	}
	pk, err := ParsePublicKey(b[:PublicKeySize])
	if err != nil {
		return nil, err
	}
	if v.scheme == nil {
		return pk, nil
	}
	lpk, err := parseLatticePublic(v.scheme, b[PublicKeySize:])
	if err != nil {
		return nil, wrapError(op, InvalidPublicKey, err)
	}
	pk.lattice = lpk
	return pk, nil
}

// ParseSecretKey decodes classical || lattice secret key bytes.
func (v *Vault) ParseSecretKey(b []byte) (*SecretKey, error) {
	const op = "ParseSecretKey"
	if len(b) != v.SecretKeySize() {
		return nil, wrapError(op, InvalidSecretKey, fmt.Errorf("want %d bytes, got %d", v.SecretKeySize(), len(b)))
	}
	sk, err := ParseSecretKey(b[:SecretKeySize])
	if err != nil {
		return nil, err
	}
	if v.scheme == nil {
		return sk, nil
	}
	lsk, err := parseLatticeSecret(v.scheme, b[SecretKeySize:])
	if err != nil {
		sk.Zero()
		return nil, wrapError(op, InvalidSecretKey, err)
	}
	pub, ok := lsk.key.Public().(sign.PublicKey)
	if !ok {
		sk.Zero()
		return nil, wrapError(op, InvalidSecretKey, errSchemeMismatch)
	}
	raw, err := pub.MarshalBinary()
	if err != nil {
		sk.Zero()
		return nil, wrapError(op, InvalidSecretKey, err)
	}
	sk.lattice = lsk
	sk.pub.lattice = &latticePublic{scheme: v.scheme, key: pub, raw: raw}
	return sk, nil
}

// MarshalBinary encodes classical || lattice public key bytes.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	out := pk.Bytes()
	if pk.lattice != nil {
		out = append(out, pk.lattice.raw...)
	}
	return out, nil
}

// MarshalBinary encodes classical || lattice secret key bytes.
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	out := sk.Bytes()
	if sk.lattice != nil {
		raw, err := sk.lattice.key.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}
	return out, nil
}

type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return io.ReadFull(l.r, p)
}
