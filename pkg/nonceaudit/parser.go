package nonceaudit

import (
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/mahdiidarabi/latticevault/internal/parser"
	"github.com/mahdiidarabi/latticevault/pkg/latticevault"
)

// SignatureParser loads records from a source such as a file path.
type SignatureParser interface {
	ParseSignatures(source string) ([]*Record, error)
}

// Fields names the keys or columns holding each value. Empty names use the
// defaults: message, signature, r, s, public_key.
type Fields = parser.Fields

// JSONParser reads a JSON array of signature objects. Each object carries a
// message and either an encoded signature (R || s, any lattice tail is
// ignored) or separate r and s values; public_key is optional.
type JSONParser struct {
	Fields Fields
}

func (p *JSONParser) ParseSignatures(source string) ([]*Record, error) {
	entries, err := parser.ParseJSON(source, p.Fields)
	if err != nil {
		return nil, err
	}
	return toRecords(entries)
}

// CSVParser reads a CSV table with a header row and the same columns as
// JSONParser.
type CSVParser struct {
	Fields Fields
}

func (p *CSVParser) ParseSignatures(source string) ([]*Record, error) {
	entries, err := parser.ParseCSV(source, p.Fields)
	if err != nil {
		return nil, err
	}
	return toRecords(entries)
}

// AutoParser picks CSV for .csv files and JSON otherwise.
type AutoParser struct {
	Fields Fields
}

func (p *AutoParser) ParseSignatures(source string) ([]*Record, error) {
	if strings.EqualFold(filepath.Ext(source), ".csv") {
		return (&CSVParser{Fields: p.Fields}).ParseSignatures(source)
	}
	return (&JSONParser{Fields: p.Fields}).ParseSignatures(source)
}

func toRecords(entries []*parser.Entry) ([]*Record, error) {
	records := make([]*Record, 0, len(entries))
	for i, e := range entries {
		rec, err := toRecord(e)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func toRecord(e *parser.Entry) (*Record, error) {
	rec := &Record{Message: e.Message, PublicKey: publicKeyPart(e.PublicKey)}
	switch {
	case e.Signature != nil:
		sig, err := latticevault.ParseSignature(e.Signature)
		if err != nil {
			return nil, err
		}
		rec.Commitment = sig.Commitment()
		rec.Response = new(big.Int).SetBytes(sig.Response())
	case e.R != nil && e.S != nil:
		if len(e.R) != latticevault.CommitmentSize {
			return nil, fmt.Errorf("r must be %d bytes, got %d", latticevault.CommitmentSize, len(e.R))
		}
		if e.S.Sign() < 0 || e.S.Cmp(CurveOrder) >= 0 {
			return nil, errors.New("s out of range")
		}
		rec.Commitment = e.R
		rec.Response = e.S
	default:
		return nil, errors.New("no signature")
	}
	return rec, nil
}

// publicKeyPart strips the lattice half from a hybrid public key encoding.
func publicKeyPart(b []byte) []byte {
	if len(b) > 65 {
		return b[:latticevault.PublicKeySize]
	}
	return b
}
