package latticevault

import (
	"io"

	"golang.org/x/crypto/sha3"
)

// testReader returns a deterministic byte stream for label.
func testReader(label string) io.Reader {
	h := sha3.NewShake256()
	h.Write([]byte("latticevault-test/" + label))
	return h
}

func testAux(label string) [AuxSize]byte {
	var aux [AuxSize]byte
	if _, err := io.ReadFull(testReader("aux/"+label), aux[:]); err != nil {
		panic(err)
	}
	return aux
}

// zeroReader yields zero bytes forever.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// failingReader always errors.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

// flipBit returns a copy of b with bit i flipped.
func flipBit(b []byte, i int) []byte {
	out := append([]byte(nil), b...)
	out[i/8] ^= 1 << (i % 8)
	return out
}
