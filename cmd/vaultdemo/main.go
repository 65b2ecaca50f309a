// Command vaultdemo generates a hybrid key pair, signs "test", verifies the
// signature and exits non-zero if verification fails.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mahdiidarabi/latticevault/pkg/latticevault"
)

func main() {
	os.Exit(run(latticevault.NewVault(), os.Stdout))
}

func run(vault *latticevault.Vault, out io.Writer) int {
	sk, pk, err := vault.GenerateKeypair()
	if err != nil {
		fmt.Fprintf(out, "key generation failed: %v\n", err)
		return 1
	}
	defer sk.Zero()

	message := []byte("test")
	sig, err := vault.Sign(sk, message)
	if err != nil {
		fmt.Fprintf(out, "signing failed: %v\n", err)
		return 1
	}

	if err := vault.Verify(pk, message, sig); err != nil {
		fmt.Fprintf(out, "FAIL: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "PASS: lattice-bound Schnorr signature verified (%d bytes, scheme %s)\n",
		len(sig.Bytes()), schemeName(vault))
	return 0
}

func schemeName(v *latticevault.Vault) string {
	if !v.Hybrid() {
		return "none"
	}
	return v.Config().Scheme
}
