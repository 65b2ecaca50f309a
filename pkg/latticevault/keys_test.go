package latticevault

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

const groupOrderHex = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestGenerateKey(t *testing.T) {
	sk, pk, err := GenerateKey(testReader("keygen"))
	require.NoError(t, err)
	require.True(t, pk.Equal(sk.Public()))
	require.Len(t, sk.Bytes(), SecretKeySize)
	require.Len(t, pk.Bytes(), PublicKeySize)
	require.Len(t, pk.XOnly(), 32)

	again, err := ParseSecretKey(sk.Bytes())
	require.NoError(t, err)
	require.True(t, again.Equal(sk))
	require.True(t, again.Public().Equal(pk))
}

func TestGenerateKeyDistinct(t *testing.T) {
	sk1, _, err := GenerateKey(testReader("a"))
	require.NoError(t, err)
	sk2, _, err := GenerateKey(testReader("b"))
	require.NoError(t, err)
	require.False(t, sk1.Equal(sk2))
}

func TestGenerateKeyRejectsZeroEntropy(t *testing.T) {
	_, _, err := GenerateKey(zeroReader{})
	require.ErrorIs(t, err, InvalidSecretKey)
}

func TestGenerateKeyReaderFailure(t *testing.T) {
	_, _, err := GenerateKey(failingReader{})
	require.ErrorIs(t, err, InvalidSecretKey)
}

func TestParseSecretKeyBoundaries(t *testing.T) {
	order := mustHex(t, groupOrderHex)

	orderMinusOne := append([]byte(nil), order...)
	orderMinusOne[31]--
	orderPlusOne := append([]byte(nil), order...)
	orderPlusOne[31]++

	one := make([]byte, 32)
	one[31] = 1

	tests := []struct {
		name  string
		input []byte
		valid bool
	}{
		{"zero", make([]byte, 32), false},
		{"one", one, true},
		{"order minus one", orderMinusOne, true},
		{"order", order, false},
		{"order plus one", orderPlusOne, false},
		{"all ones", bytes.Repeat([]byte{0xff}, 32), false},
		{"short", one[:31], false},
		{"long", append(one, 0), false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sk, err := ParseSecretKey(tt.input)
			if tt.valid {
				require.NoError(t, err)
				require.Equal(t, tt.input, sk.Bytes())
				return
			}
			require.ErrorIs(t, err, InvalidSecretKey)
			kind, ok := KindOf(err)
			require.True(t, ok)
			require.Equal(t, InvalidSecretKey, kind)
		})
	}
}

func TestParsePublicKey(t *testing.T) {
	_, pk, err := GenerateKey(testReader("pub"))
	require.NoError(t, err)

	parsed, err := ParsePublicKey(pk.Bytes())
	require.NoError(t, err)
	require.True(t, parsed.Equal(pk))

	uncompressed := pk.p.SerializeUncompressed()
	parsed, err = ParsePublicKey(uncompressed)
	require.NoError(t, err)
	require.True(t, parsed.Equal(pk))

	offCurve := append([]byte(nil), uncompressed...)
	offCurve[64] ^= 0x01

	badPrefix := append([]byte(nil), pk.Bytes()...)
	badPrefix[0] = 0x05

	invalid := map[string][]byte{
		"infinity single byte": {0x00},
		"infinity zero buffer": make([]byte, PublicKeySize),
		"off curve":            offCurve,
		"bad prefix":           badPrefix,
		"truncated":            pk.Bytes()[:20],
		"empty":                nil,
	}
	for name, input := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePublicKey(input)
			require.ErrorIs(t, err, InvalidPublicKey)
		})
	}
}

func TestPublicKeyMatchesBtcec(t *testing.T) {
	sk, pk, err := GenerateKey(testReader("btcec"))
	require.NoError(t, err)

	_, btcPub := btcec.PrivKeyFromBytes(sk.Bytes())
	require.Equal(t, btcPub.SerializeCompressed(), pk.Bytes())

	parsed, err := btcec.ParsePubKey(pk.Bytes())
	require.NoError(t, err)
	require.True(t, parsed.IsEqual(btcPub))
}

func TestSecretKeyZero(t *testing.T) {
	sk, _, err := GenerateKey(testReader("zero"))
	require.NoError(t, err)
	sk.Zero()
	require.Equal(t, make([]byte, 32), sk.Bytes())

	_, err = SignSchnorr(sk, []byte("m"), testAux("zero"))
	require.True(t, errors.Is(err, InvalidSecretKey))
}
