package nonceaudit

import (
	"math/big"
	"testing"
)

func TestRecoverPrivateKey_SameNonce(t *testing.T) {
	f := newFlawedSigner(t, "same")
	k := testNonce("same")
	sig1 := f.sign(t, k, []byte("first"))
	sig2 := f.sign(t, k, []byte("second"))

	priv, err := RecoverPrivateKey(sig1, sig2, big.NewInt(1), big.NewInt(0))
	if err != nil {
		t.Fatalf("Failed to recover private key: %v", err)
	}
	if priv.Cmp(f.privateKey()) != 0 {
		t.Fatalf("Recovered %x, want %x", priv, f.privateKey())
	}
}

func TestRecoverPrivateKey_Counter(t *testing.T) {
	f := newFlawedSigner(t, "counter")
	sigs := f.affineSeries(t, testNonce("counter"), 1, 1, 2)

	priv, err := RecoverPrivateKey(sigs[0], sigs[1], big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("Failed to recover private key: %v", err)
	}
	if priv.Cmp(f.privateKey()) != 0 {
		t.Error("Recovered key does not match")
	}
}

func TestRecoverPrivateKey_Affine(t *testing.T) {
	f := newFlawedSigner(t, "affine")
	sigs := f.affineSeries(t, testNonce("affine"), 2, 1, 2)

	priv, err := RecoverPrivateKey(sigs[0], sigs[1], big.NewInt(2), big.NewInt(1))
	if err != nil {
		t.Fatalf("Failed to recover private key: %v", err)
	}
	verified, err := VerifyRecoveredKey(priv, f.pk.Bytes())
	if err != nil {
		t.Fatalf("VerifyRecoveredKey: %v", err)
	}
	if !verified {
		t.Error("Recovered key should verify against public key")
	}
}

func TestRecoverPrivateKey_NegativeOffset(t *testing.T) {
	f := newFlawedSigner(t, "negative")
	sigs := f.affineSeries(t, testNonce("negative"), -3, -777, 2)

	priv, err := RecoverPrivateKey(sigs[0], sigs[1], big.NewInt(-3), big.NewInt(-777))
	if err != nil {
		t.Fatalf("Failed to recover private key: %v", err)
	}
	if priv.Cmp(f.privateKey()) != 0 {
		t.Error("Recovered key does not match")
	}
}

func TestRecoverPrivateKey_WrongRelationship(t *testing.T) {
	f := newFlawedSigner(t, "wrong")
	sigs := f.affineSeries(t, testNonce("wrong"), 1, 5, 2)

	priv, err := RecoverPrivateKey(sigs[0], sigs[1], big.NewInt(1), big.NewInt(4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	verified, err := VerifyRecoveredKey(priv, f.pk.Bytes())
	if err == nil && verified {
		t.Error("Wrong relationship must not yield the key")
	}
}

func TestRecoverPrivateKey_InvalidDenominator(t *testing.T) {
	f := newFlawedSigner(t, "denominator")
	sig := f.sign(t, testNonce("denominator"), []byte("same"))

	if _, err := RecoverPrivateKey(sig, sig, big.NewInt(1), big.NewInt(0)); err == nil {
		t.Error("Expected error for zero denominator, got nil")
	}
}

func TestRecoverPrivateKey_MissingPublicKey(t *testing.T) {
	f := newFlawedSigner(t, "nopub")
	sig1 := f.sign(t, testNonce("nopub"), []byte("a"))
	sig2 := f.sign(t, testNonce("nopub"), []byte("b"))
	sig2.PublicKey = nil

	if _, err := RecoverPrivateKey(sig1, sig2, big.NewInt(1), big.NewInt(0)); err == nil {
		t.Error("Expected error for record without public key")
	}
}

func TestVerifyRecoveredKey_InvalidKey(t *testing.T) {
	f := newFlawedSigner(t, "invalid")

	verified, err := VerifyRecoveredKey(big.NewInt(12345), f.pk.Bytes())
	if err != nil {
		t.Fatalf("Verification should not error: %v", err)
	}
	if verified {
		t.Error("Wrong key should not verify")
	}

	for _, priv := range []*big.Int{big.NewInt(0), big.NewInt(-1), new(big.Int).Set(CurveOrder)} {
		if _, err := VerifyRecoveredKey(priv, f.pk.Bytes()); err == nil {
			t.Errorf("Expected range error for %v", priv)
		}
	}

	if _, err := VerifyRecoveredKey(f.privateKey(), []byte{0x02, 0x01}); err == nil {
		t.Error("Expected error for malformed public key")
	}
}

func TestNonceRelationHolds(t *testing.T) {
	f := newFlawedSigner(t, "relation")
	sigs := f.affineSeries(t, testNonce("relation"), 3, 42, 2)

	ok, err := NonceRelationHolds(sigs[0].Commitment, sigs[1].Commitment, big.NewInt(3), big.NewInt(42))
	if err != nil {
		t.Fatalf("NonceRelationHolds: %v", err)
	}
	if !ok {
		t.Error("Relation should hold")
	}

	ok, err = NonceRelationHolds(sigs[0].Commitment, sigs[1].Commitment, big.NewInt(3), big.NewInt(41))
	if err != nil {
		t.Fatalf("NonceRelationHolds: %v", err)
	}
	if ok {
		t.Error("Off-by-one relation should not hold")
	}

	if _, err := NonceRelationHolds([]byte{0x02}, sigs[1].Commitment, big.NewInt(1), big.NewInt(0)); err == nil {
		t.Error("Expected error for malformed commitment")
	}
}

func TestComputeChallengeMatchesSigner(t *testing.T) {
	f := newFlawedSigner(t, "challenge")
	rec := f.sign(t, testNonce("challenge"), []byte("m"))

	e1, err := ComputeChallenge(rec)
	if err != nil {
		t.Fatalf("ComputeChallenge: %v", err)
	}
	e2, err := ComputeChallenge(rec)
	if err != nil {
		t.Fatalf("ComputeChallenge: %v", err)
	}
	if e1.Cmp(e2) != 0 {
		t.Error("Challenge must be deterministic")
	}
	if e1.Sign() <= 0 || e1.Cmp(CurveOrder) >= 0 {
		t.Error("Challenge out of range")
	}
}
