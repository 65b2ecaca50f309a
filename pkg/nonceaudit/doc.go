// Package nonceaudit recovers Schnorr signing keys from signatures whose
// nonces are related by k2 = a*k1 + b, and is used to check that a signer
// never produces such signatures.
//
// For s = k + e*x mod n, two signatures with related nonces give
//
//	x = (s2 - a*s1 - b) / (e2 - a*e1) mod n
//
// The relation itself is visible without the key: R2 == a·R1 + b·G. The
// search first looks for reused commitments, then for common patterns
// (counters, fixed steps, multiples), then walks ranges of (a, b) in
// parallel. Every candidate key is checked against the signer's public key
// before it is reported.
//
// Basic usage:
//
//	client := nonceaudit.NewClient()
//	result, err := client.Audit(ctx, "signatures.json", "02…")
//	if errors.Is(err, nonceaudit.ErrNoRecovery) {
//	    // no exploitable relation found
//	}
//
// Custom search:
//
//	strategy := nonceaudit.NewSmartStrategy().
//		WithRangeConfig(nonceaudit.RangeConfig{
//			ARange:     [2]int{1, 10},
//			BRange:     [2]int{-50000, 50000},
//			NumWorkers: 8,
//		}).
//		WithPatternConfig(nonceaudit.PatternConfig{
//			CustomPatterns: append(nonceaudit.CommonPatterns(), nonceaudit.Pattern{
//				A: big.NewInt(1), B: big.NewInt(12345), Name: "custom_step", Priority: 1,
//			}),
//		})
//	client = nonceaudit.NewClient().WithStrategy(strategy)
//
// Only analyze signatures you own or are authorized to test.
package nonceaudit
