package nonceaudit

import (
	"context"
	"math/big"
)

// Strategy searches a set of records for a nonce relation that leaks the key.
type Strategy interface {
	// Search returns a verified result, or nil when nothing was found or ctx
	// was cancelled. publicKey fills in records that carry none.
	Search(ctx context.Context, records []*Record, publicKey []byte) *RecoveryResult

	Name() string
}

// Pattern is a specific nonce relation to test.
type Pattern struct {
	A        *big.Int
	B        *big.Int
	Name     string
	Priority int // lower is tested first
}

// RangeConfig bounds the brute-force phase.
type RangeConfig struct {
	// ARange and BRange are inclusive [min, max] bounds.
	ARange [2]int
	BRange [2]int

	// MaxPairs caps the number of record pairs examined.
	MaxPairs int

	// NumWorkers is the worker pool size; 0 uses every CPU.
	NumWorkers int

	// SkipZeroA skips a=0, which would mean k2 is a small constant.
	SkipZeroA bool
}

// DefaultRangeConfig enables the built-in adaptive phases.
func DefaultRangeConfig() RangeConfig {
	return RangeConfig{
		ARange:     [2]int{-100, 100},
		BRange:     [2]int{-100, 100},
		MaxPairs:   100,
		NumWorkers: 0,
		SkipZeroA:  true,
	}
}

// PatternConfig selects the patterns tried before brute force.
type PatternConfig struct {
	CustomPatterns        []Pattern
	IncludeCommonPatterns bool
}

// DefaultPatternConfig enables the common patterns.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		CustomPatterns:        []Pattern{},
		IncludeCommonPatterns: true,
	}
}

// CommonPatterns returns a copy of the built-in patterns, lowest priority
// first. Append to it to extend the list for PatternConfig.CustomPatterns.
func CommonPatterns() []Pattern {
	return append([]Pattern(nil), defaultCommonPatterns()...)
}

func defaultCommonPatterns() []Pattern {
	p := func(a, b int64, name string, prio int) Pattern {
		return Pattern{A: big.NewInt(a), B: big.NewInt(b), Name: name, Priority: prio}
	}
	return []Pattern{
		p(1, 1, "counter_+1", 2),
		p(1, -1, "counter_-1", 2),
		p(1, 2, "counter_+2", 3),
		p(1, -2, "counter_-2", 3),
		p(1, 3, "counter_+3", 3),
		p(1, -3, "counter_-3", 3),
		p(1, 4, "counter_+4", 3),
		p(1, -4, "counter_-4", 3),
		p(1, 5, "counter_+5", 3),
		p(1, -5, "counter_-5", 3),
		p(1, 8, "step_8", 4),
		p(1, 10, "step_10", 4),
		p(1, 16, "step_16", 4),
		p(1, 32, "step_32", 4),
		p(1, 64, "step_64", 4),
		p(1, 100, "step_100", 4),
		p(1, 128, "step_128", 4),
		p(1, 256, "step_256", 4),
		p(1, 512, "step_512", 4),
		p(1, 1000, "step_1000", 4),
		p(1, 1024, "step_1024", 4),
		p(1, 10000, "step_10000", 4),
		p(2, 0, "multiply_2", 5),
		p(2, 1, "multiply_2_+1", 5),
		p(3, 0, "multiply_3", 5),
		p(4, 0, "multiply_4", 5),
		p(-1, 0, "negate", 6),
	}
}
