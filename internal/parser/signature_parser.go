// Package parser reads signature dumps (JSON arrays or CSV tables) into
// loosely typed entries. Interpretation of the fields is left to the caller.
package parser

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
)

// Entry is one signed message from a dump.
type Entry struct {
	Message []byte

	// Signature is the encoded signature when the dump stores it whole.
	Signature []byte

	// R and S are set when the dump stores the components separately.
	R []byte
	S *big.Int

	PublicKey []byte
}

// Fields names the JSON keys or CSV columns to read. Empty names fall back to
// the defaults: message, signature, r, s, public_key.
type Fields struct {
	Message   string
	Signature string
	R         string
	S         string
	PublicKey string
}

func (f Fields) withDefaults() Fields {
	if f.Message == "" {
		f.Message = "message"
	}
	if f.Signature == "" {
		f.Signature = "signature"
	}
	if f.R == "" {
		f.R = "r"
	}
	if f.S == "" {
		f.S = "s"
	}
	if f.PublicKey == "" {
		f.PublicKey = "public_key"
	}
	return f
}

// ParseJSON reads a file holding a JSON array of objects.
//
//	[
//	  {"message": "0x…", "r": "02…", "s": "0x…", "public_key": "03…"},
//	  {"message": "hello", "signature": "…", "public_key": "03…"}
//	]
func ParseJSON(path string, fields Fields) ([]*Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return DecodeJSON(file, fields)
}

// DecodeJSON is ParseJSON over a reader.
func DecodeJSON(r io.Reader, fields Fields) ([]*Entry, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var items []map[string]any
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	f := fields.withDefaults()
	entries := make([]*Entry, 0, len(items))
	for i, item := range items {
		get := func(key string) (string, bool, error) {
			v, ok := item[key]
			if !ok {
				return "", false, nil
			}
			switch v := v.(type) {
			case string:
				return v, true, nil
			case json.Number:
				return v.String(), true, nil
			default:
				return "", false, fmt.Errorf("field %q: unsupported type %T", key, v)
			}
		}
		e, err := buildEntry(get, f)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ParseCSV reads a CSV file with a header row.
func ParseCSV(path string, fields Fields) ([]*Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return DecodeCSV(file, fields)
}

// DecodeCSV is ParseCSV over a reader.
func DecodeCSV(r io.Reader, fields Fields) ([]*Entry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, col := range header {
		columns[strings.TrimSpace(col)] = i
	}

	f := fields.withDefaults()
	var entries []*Entry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		get := func(key string) (string, bool, error) {
			idx, ok := columns[key]
			if !ok || idx >= len(record) || record[idx] == "" {
				return "", false, nil
			}
			return record[idx], true, nil
		}
		e, err := buildEntry(get, f)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type getter func(key string) (value string, ok bool, err error)

func buildEntry(get getter, f Fields) (*Entry, error) {
	e := &Entry{}

	msg, ok, err := get(f.Message)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("missing message field")
	}
	if e.Message, err = DecodeMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	if sig, ok, err := get(f.Signature); err != nil {
		return nil, err
	} else if ok {
		if e.Signature, err = DecodeHex(sig); err != nil {
			return nil, fmt.Errorf("failed to parse signature: %w", err)
		}
	}

	if r, ok, err := get(f.R); err != nil {
		return nil, err
	} else if ok {
		if e.R, err = DecodeHex(r); err != nil {
			return nil, fmt.Errorf("failed to parse r: %w", err)
		}
	}

	if s, ok, err := get(f.S); err != nil {
		return nil, err
	} else if ok {
		if e.S, err = ParseBigInt(s); err != nil {
			return nil, fmt.Errorf("failed to parse s: %w", err)
		}
	}

	if e.Signature == nil && (e.R == nil || e.S == nil) {
		return nil, errors.New("need either a signature field or both r and s")
	}

	if pk, ok, err := get(f.PublicKey); err != nil {
		return nil, err
	} else if ok {
		if e.PublicKey, err = DecodeHex(pk); err != nil {
			return nil, fmt.Errorf("failed to parse public_key: %w", err)
		}
	}
	return e, nil
}

// DecodeMessage hex-decodes values with a 0x prefix and takes anything else
// as raw text.
func DecodeMessage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hex.DecodeString(s[2:])
	}
	return []byte(s), nil
}

// DecodeHex decodes hex with an optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}

// ParseBigInt accepts 0x-prefixed hex, bare hex containing a-f, or decimal.
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	z := new(big.Int)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		if _, ok := z.SetString(s[2:], 16); ok {
			return z, nil
		}
	case strings.ContainsAny(s, "abcdefABCDEF"):
		if _, ok := z.SetString(s, 16); ok {
			return z, nil
		}
	default:
		if _, ok := z.SetString(s, 10); ok {
			return z, nil
		}
	}
	return nil, fmt.Errorf("invalid number format: %s", s)
}
