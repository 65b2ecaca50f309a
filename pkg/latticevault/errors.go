package latticevault

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failures the vault can report. The numeric values
// are stable and are what the program shim surfaces to the chain.
type Kind uint8

const (
	// InvalidSecretKey: scalar zero or not below the group order.
	InvalidSecretKey Kind = iota + 1
	// InvalidPublicKey: point not on the curve, at infinity, or malformed.
	InvalidPublicKey
	// InvalidRecoveryId is reserved for recoverable-signature variants.
	InvalidRecoveryId
	// InvalidSignature: the verification identity does not hold.
	InvalidSignature
	// InvalidNonce: the derived nonce scalar is zero. Retry with fresh aux.
	InvalidNonce
	// ArithmeticOverflow: a modular scalar operation left the valid range.
	ArithmeticOverflow
	// LatticeSignatureError: the post-quantum primitive failed.
	LatticeSignatureError
)

var kindNames = map[Kind]string{
	InvalidSecretKey:      "invalid secret key",
	InvalidPublicKey:      "invalid public key",
	InvalidRecoveryId:     "invalid recovery id",
	InvalidSignature:      "invalid signature",
	InvalidNonce:          "invalid nonce",
	ArithmeticOverflow:    "arithmetic overflow",
	LatticeSignatureError: "lattice signature error",
}

// Kinds lists every Kind in code order.
func Kinds() []Kind {
	return []Kind{
		InvalidSecretKey,
		InvalidPublicKey,
		InvalidRecoveryId,
		InvalidSignature,
		InvalidNonce,
		ArithmeticOverflow,
		LatticeSignatureError,
	}
}

// Code returns the stable numeric code of k.
func (k Kind) Code() uint32 {
	return uint32(k)
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown kind %d", uint8(k))
}

// Error implements error so a bare Kind can be used as a sentinel:
//
//	if errors.Is(err, latticevault.InvalidSignature) { ... }
func (k Kind) Error() string {
	return "latticevault: " + k.String()
}

// Error is returned by every vault operation. Op names the operation that
// failed; Err optionally carries the lower-level cause.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("latticevault.%s: %s: %v", e.Op, e.Kind.String(), e.Err)
	}
	return fmt.Sprintf("latticevault.%s: %s", e.Op, e.Kind.String())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches against a Kind sentinel or another *Error of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind from err. ok is false when err did not come from
// this package.
func KindOf(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	var k Kind
	if errors.As(err, &k) {
		return k, true
	}
	return 0, false
}

func newError(op string, kind Kind) error {
	return &Error{Op: op, Kind: kind}
}

func wrapError(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
