package nonceaudit

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mahdiidarabi/latticevault/internal/logging"
	"github.com/mahdiidarabi/latticevault/pkg/latticevault"
)

func TestClient_Audit_JSON(t *testing.T) {
	f := newFlawedSigner(t, "client-json")
	path := writeJSONDump(t, f.affineSeries(t, testNonce("client-json"), 1, 100, 3))

	result, err := NewClient().Audit(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if result.PrivateKey.Cmp(f.privateKey()) != 0 {
		t.Error("Recovered key does not match")
	}
	if !bytes.Equal(result.PublicKey, f.pk.Bytes()) {
		t.Error("Result should name the signer's public key")
	}
}

func TestClient_Audit_CSV(t *testing.T) {
	f := newFlawedSigner(t, "client-csv")
	k := testNonce("client-csv")
	path := writeCSVDump(t, []*Record{f.sign(t, k, []byte("x")), f.sign(t, k, []byte("y"))})

	result, err := NewClient().Audit(context.Background(), path, hex.EncodeToString(f.pk.Bytes()))
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if result.Pattern != "same_nonce_reuse" {
		t.Errorf("Unexpected pattern %q", result.Pattern)
	}
}

func TestClient_Audit_HybridPublicKey(t *testing.T) {
	f := newFlawedSigner(t, "client-hybrid")
	k := testNonce("client-hybrid")
	path := writeCSVDump(t, []*Record{f.sign(t, k, []byte("x")), f.sign(t, k, []byte("y"))})

	// Classical key followed by a lattice key, as the vault encodes it.
	hybrid := append(f.pk.Bytes(), bytes.Repeat([]byte{0xaa}, 1952)...)
	if _, err := NewClient().Audit(context.Background(), path, "0x"+hex.EncodeToString(hybrid)); err != nil {
		t.Fatalf("Audit: %v", err)
	}
}

func TestClient_Audit_VaultSignatures(t *testing.T) {
	vault := latticevault.NewVault()
	sk, pk, err := vault.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	var records []*Record
	for i := 0; i < 3; i++ {
		msg := []byte("test")
		sig, err := vault.Sign(sk, msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		records = append(records, NewRecord(sig, pk, msg))
	}

	strategy := NewSmartStrategy().
		WithRangeConfig(RangeConfig{ARange: [2]int{1, 1}, BRange: [2]int{-100, 100}})
	client := NewClient().WithStrategy(strategy)

	_, err = client.Audit(context.Background(), writeJSONDump(t, records), "")
	if !errors.Is(err, ErrNoRecovery) {
		t.Fatalf("Expected ErrNoRecovery, got %v", err)
	}
}

func TestClient_RecoverWithKnownRelationship(t *testing.T) {
	f := newFlawedSigner(t, "client-known")
	path := writeJSONDump(t, f.affineSeries(t, testNonce("client-known"), 5, 123456789, 2))
	client := NewClient()

	result, err := client.RecoverWithKnownRelationship(context.Background(), path, 5, 123456789, "")
	if err != nil {
		t.Fatalf("RecoverWithKnownRelationship: %v", err)
	}
	if result.Pattern != "known_a5_b123456789" {
		t.Errorf("Unexpected pattern %q", result.Pattern)
	}
	if result.PrivateKey.Cmp(f.privateKey()) != 0 {
		t.Error("Recovered key does not match")
	}

	_, err = client.RecoverWithKnownRelationship(context.Background(), path, 5, 123456788, "")
	if !errors.Is(err, ErrNoRecovery) {
		t.Fatalf("Expected ErrNoRecovery for wrong relationship, got %v", err)
	}
}

func TestClient_Errors(t *testing.T) {
	f := newFlawedSigner(t, "client-errors")
	one := writeJSONDump(t, []*Record{f.sign(t, testNonce("one"), []byte("m"))})
	two := writeJSONDump(t, f.affineSeries(t, testNonce("two"), 1, 1, 2))
	client := NewClient()
	ctx := context.Background()

	if _, err := client.Audit(ctx, one, ""); err == nil {
		t.Error("Expected error for a single signature")
	}
	if _, err := client.Audit(ctx, filepath.Join(t.TempDir(), "missing.json"), ""); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := client.Audit(ctx, two, "zz"); err == nil {
		t.Error("Expected error for non-hex public key")
	}
	if _, err := client.Audit(ctx, two, "0203"); err == nil {
		t.Error("Expected error for short public key")
	}
}

func TestClient_AuditCancelled(t *testing.T) {
	f := newFlawedSigner(t, "client-cancel")
	records := f.affineSeries(t, testNonce("client-cancel"), 9, 77777, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient().AuditRecords(ctx, records, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestClient_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	f := newFlawedSigner(t, "client-log")
	k := testNonce("client-log")
	records := []*Record{f.sign(t, k, []byte("a")), f.sign(t, k, []byte("b"))}

	client := NewClient().WithLogger(logging.NewText(&buf, slog.LevelDebug))
	if _, err := client.AuditRecords(context.Background(), records, ""); err != nil {
		t.Fatalf("AuditRecords: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("found reused nonce")) {
		t.Errorf("Expected strategy log output, got %q", buf.String())
	}
}

func TestJSONParser_CustomFields(t *testing.T) {
	f := newFlawedSigner(t, "parser-fields")
	rec := f.sign(t, testNonce("parser-fields"), []byte("hello"))

	content := `[{"msg": "hello", "R": "` + hex.EncodeToString(rec.Commitment) +
		`", "S": "0x` + rec.Response.Text(16) + `", "pub": "` + hex.EncodeToString(rec.PublicKey) + `"}]`
	path := filepath.Join(t.TempDir(), "dump.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := &JSONParser{Fields: Fields{Message: "msg", R: "R", S: "S", PublicKey: "pub"}}
	records, err := p.ParseSignatures(path)
	if err != nil {
		t.Fatalf("ParseSignatures: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	got := records[0]
	if string(got.Message) != "hello" || got.Response.Cmp(rec.Response) != 0 || !bytes.Equal(got.Commitment, rec.Commitment) {
		t.Errorf("Record mismatch: %+v", got)
	}
}

func TestParser_RejectsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	f := newFlawedSigner(t, "parser-bad")
	rec := f.sign(t, testNonce("parser-bad"), []byte("m"))
	order := CurveOrder.Text(16)

	cases := map[string]string{
		"short r":        `[{"message": "m", "r": "02aa", "s": "1"}]`,
		"s too large":    `[{"message": "m", "r": "` + hex.EncodeToString(rec.Commitment) + `", "s": "0x` + order + `"}]`,
		"bad signature":  `[{"message": "m", "signature": "0011"}]`,
		"missing fields": `[{"message": "m"}]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := (&AutoParser{}).ParseSignatures(path); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}
