package nonceaudit

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"github.com/mahdiidarabi/latticevault/pkg/latticevault"
)

// flawedSigner signs with caller-chosen nonces.
type flawedSigner struct {
	sk *latticevault.SecretKey
	pk *latticevault.PublicKey
	x  secp256k1.ModNScalar
}

func newFlawedSigner(t *testing.T, label string) *flawedSigner {
	t.Helper()
	seed := sha3.NewShake256()
	seed.Write([]byte("nonceaudit-test/" + label))
	sk, pk, err := latticevault.GenerateKey(seed)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	f := &flawedSigner{sk: sk, pk: pk}
	f.x.SetByteSlice(sk.Bytes())
	return f
}

func (f *flawedSigner) privateKey() *big.Int {
	return new(big.Int).SetBytes(f.sk.Bytes())
}

func (f *flawedSigner) sign(t *testing.T, k *big.Int, message []byte) *Record {
	t.Helper()
	kScalar := toScalar(k)

	var r secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(kScalar, &r)
	r.ToAffine()
	commitment := secp256k1.NewPublicKey(&r.X, &r.Y).SerializeCompressed()

	e := latticevault.DeriveChallenge(commitment, f.pk, message).Scalar()
	var s secp256k1.ModNScalar
	s.Mul2(e, &f.x).Add(kScalar)
	sb := s.Bytes()

	rec := &Record{
		Commitment: commitment,
		Response:   new(big.Int).SetBytes(sb[:]),
		Message:    message,
		PublicKey:  f.pk.Bytes(),
	}

	// The signatures are valid, only their nonces are related.
	sig, err := latticevault.ParseSignature(encodeRecord(rec))
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if err := latticevault.VerifySchnorr(f.pk, message, sig); err != nil {
		t.Fatalf("flawed signature does not verify: %v", err)
	}
	return rec
}

// affineSeries signs n messages with k_{i+1} = a*k_i + b.
func (f *flawedSigner) affineSeries(t *testing.T, k0 *big.Int, a, b int64, n int) []*Record {
	t.Helper()
	k := new(big.Int).Set(k0)
	out := make([]*Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.sign(t, k, []byte{'m', byte('0' + i)}))
		k = new(big.Int).Mul(k, big.NewInt(a))
		k.Add(k, big.NewInt(b))
		k.Mod(k, CurveOrder)
	}
	return out
}

func encodeRecord(rec *Record) []byte {
	out := append([]byte(nil), rec.Commitment...)
	return append(out, rec.Response.FillBytes(make([]byte, latticevault.ScalarSize))...)
}

func testNonce(label string) *big.Int {
	h := sha3.NewShake256()
	h.Write([]byte("nonce/" + label))
	var b [32]byte
	h.Read(b[:])
	k := new(big.Int).SetBytes(b[:])
	return k.Mod(k, CurveOrder)
}

func writeJSONDump(t *testing.T, records []*Record) string {
	t.Helper()
	items := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		items = append(items, map[string]string{
			"message":    "0x" + hex.EncodeToString(rec.Message),
			"signature":  hex.EncodeToString(encodeRecord(rec)),
			"public_key": hex.EncodeToString(rec.PublicKey),
		})
	}
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "signatures.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func writeCSVDump(t *testing.T, records []*Record) string {
	t.Helper()
	content := "message,r,s\n"
	for _, rec := range records {
		content += "0x" + hex.EncodeToString(rec.Message) + "," +
			hex.EncodeToString(rec.Commitment) + "," +
			"0x" + rec.Response.Text(16) + "\n"
	}
	path := filepath.Join(t.TempDir(), "signatures.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}
