// Package prf implements the domain-separated pseudorandom function used for
// nonce and challenge derivation.
//
// Every call is a cSHAKE256 instance whose customization string is the
// package-wide prefix followed by the caller's tag. Inputs are length-prefixed
// so that (a, bc) and (ab, c) never collide.
package prf

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Size is the output length of Sum in bytes.
const Size = 32

// Prefix is prepended to every domain tag.
const Prefix = "latticevault/v1/"

// Domain tags. Each use of the PRF must have its own tag.
const (
	TagAux       = "aux"
	TagNonce     = "nonce"
	TagChallenge = "challenge"
)

// Sum returns the 32-byte PRF output for tag over parts.
func Sum(tag string, parts ...[]byte) [Size]byte {
	var out [Size]byte
	Expand(out[:], tag, parts...)
	return out
}

// Expand fills out with PRF output for tag over parts. Any output length is
// allowed; shorter outputs are prefixes of longer ones.
func Expand(out []byte, tag string, parts ...[]byte) {
	h := sha3.NewCShake256(nil, []byte(Prefix+tag))
	var lenBuf [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
		h.Write(lenBuf[:])
		h.Write(p)
	}
	h.Read(out)
}
