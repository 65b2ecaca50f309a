// Command nonceaudit searches a dump of Schnorr signatures for related nonces
// and reports the signing key if a relation exposes it.
//
// Exit status is 0 when no relation was found, 3 when a key was recovered,
// 1 on runtime errors and 2 on usage errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/mahdiidarabi/latticevault/internal/logging"
	"github.com/mahdiidarabi/latticevault/pkg/nonceaudit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nonceaudit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		signaturesFile = fs.String("signatures", "", "Path to signatures file (JSON or CSV)")
		format         = fs.String("format", "auto", "Signature file format (auto, json or csv)")
		publicKey      = fs.String("public-key", "", "Signer public key in hex, for records that carry none")
		knownA         = fs.Int64("known-a", 0, "Known affine coefficient a (k2 = a*k1 + b)")
		knownB         = fs.Int64("known-b", 0, "Known affine offset b (k2 = a*k1 + b)")
		aRange         = fs.String("a-range", "", "Range for a values (min,max); empty uses the adaptive phases")
		bRange         = fs.String("b-range", "", "Range for b values (min,max); empty uses the adaptive phases")
		maxPairs       = fs.Int("max-pairs", 100, "Maximum signature pairs to brute-force")
		numWorkers     = fs.Int("workers", 0, "Number of parallel workers (0 = one per CPU)")
		noPatterns     = fs.Bool("no-patterns", false, "Skip the built-in common patterns")
		verbose        = fs.Bool("v", false, "Verbose logging")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *signaturesFile == "" {
		fmt.Fprintln(stderr, "Error: -signatures is required")
		fs.Usage()
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewText(stderr, level)

	var parser nonceaudit.SignatureParser
	switch strings.ToLower(*format) {
	case "auto":
		parser = &nonceaudit.AutoParser{}
	case "json":
		parser = &nonceaudit.JSONParser{}
	case "csv":
		parser = &nonceaudit.CSVParser{}
	default:
		fmt.Fprintf(stderr, "Error: unknown format %q\n", *format)
		return 2
	}

	rangeConfig := nonceaudit.DefaultRangeConfig()
	rangeConfig.MaxPairs = *maxPairs
	rangeConfig.NumWorkers = *numWorkers
	if *aRange != "" || *bRange != "" {
		var err error
		if rangeConfig.ARange, err = parseRange(*aRange, rangeConfig.ARange); err != nil {
			fmt.Fprintf(stderr, "Error parsing a-range: %v\n", err)
			return 2
		}
		if rangeConfig.BRange, err = parseRange(*bRange, rangeConfig.BRange); err != nil {
			fmt.Fprintf(stderr, "Error parsing b-range: %v\n", err)
			return 2
		}
	}
	patternConfig := nonceaudit.DefaultPatternConfig()
	patternConfig.IncludeCommonPatterns = !*noPatterns

	strategy := nonceaudit.NewSmartStrategy().
		WithRangeConfig(rangeConfig).
		WithPatternConfig(patternConfig)
	client := nonceaudit.NewClient().
		WithParser(parser).
		WithStrategy(strategy).
		WithLogger(logger)

	var (
		result *nonceaudit.RecoveryResult
		err    error
	)
	if *knownA != 0 || *knownB != 0 {
		fmt.Fprintf(stdout, "Using known relationship: k2 = %d*k1 + %d\n", *knownA, *knownB)
		result, err = client.RecoverWithKnownRelationship(ctx, *signaturesFile, *knownA, *knownB, *publicKey)
	} else {
		result, err = client.Audit(ctx, *signaturesFile, *publicKey)
	}
	switch {
	case errors.Is(err, nonceaudit.ErrNoRecovery):
		fmt.Fprintln(stdout, "No nonce relation found.")
		return 0
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "[+] Recovered private key from signatures %d and %d\n", result.SignaturePair[0], result.SignaturePair[1])
	fmt.Fprintf(stdout, "    Private key:  %064x\n", result.PrivateKey)
	fmt.Fprintf(stdout, "    Public key:   %x\n", result.PublicKey)
	fmt.Fprintf(stdout, "    Relationship: k2 = %s*k1 + %s\n", result.Relationship.A, result.Relationship.B)
	fmt.Fprintf(stdout, "    Pattern:      %s\n", result.Pattern)
	if result.Verified {
		fmt.Fprintln(stdout, "    Verified against public key")
	}
	return 3
}

// parseRange parses "min,max"; an empty string keeps def.
func parseRange(s string, def [2]int) ([2]int, error) {
	if s == "" {
		return def, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return def, fmt.Errorf("invalid range format: %s", s)
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return def, err
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return def, err
	}
	if lo > hi {
		return def, fmt.Errorf("range min %d exceeds max %d", lo, hi)
	}
	return [2]int{lo, hi}, nil
}
