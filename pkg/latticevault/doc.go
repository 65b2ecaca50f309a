// Package latticevault implements Schnorr signatures over secp256k1 bound to a
// lattice-based signature, for verification inside a smart-contract runtime.
//
// A signature is (R, s) with
//
//	k, R = k·G      from DeriveNonce(secret key, aux, message)
//	e               = DeriveChallenge(R, P.x, message)
//	s               = k + e·x mod n
//
// and verifies when s·G == R + e·P. Nonce and challenge material come from a
// cSHAKE256-based PRF with a distinct customization tag per use.
//
// # Hybrid binding
//
// A Vault built with a lattice scheme (ML-DSA-65 by default) gives every key
// pair a lattice half. After the Schnorr signature is produced the lattice key
// signs R || s || P || message, and Verify requires both to hold.
//
// # Quick Start
//
//	vault := latticevault.NewVault()
//
//	sk, pk, err := vault.GenerateKeypair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sig, err := vault.Sign(sk, []byte("test"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := vault.Verify(pk, []byte("test"), sig); err != nil {
//	    log.Fatal(err)
//	}
//
// # Errors
//
// Every failure is an *Error carrying one Kind from a closed set. Compare with
// errors.Is against the Kind constants:
//
//	if errors.Is(err, latticevault.InvalidSignature) { ... }
package latticevault
