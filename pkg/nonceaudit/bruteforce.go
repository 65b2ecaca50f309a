package nonceaudit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mahdiidarabi/latticevault/internal/logging"
	"github.com/mahdiidarabi/latticevault/internal/scan"
	"github.com/mahdiidarabi/latticevault/pkg/latticevault"
)

// rangeBatch is the number of consecutive b values one worker job walks.
const rangeBatch = 4096

// SmartStrategy checks for reused commitments, then known patterns, then
// walks expanding (a, b) ranges in parallel.
type SmartStrategy struct {
	RangeConfig   RangeConfig
	PatternConfig PatternConfig

	logger logging.Logger
}

// NewSmartStrategy returns a strategy with default settings.
func NewSmartStrategy() *SmartStrategy {
	return &SmartStrategy{
		RangeConfig:   DefaultRangeConfig(),
		PatternConfig: DefaultPatternConfig(),
		logger:        logging.Discard(),
	}
}

// WithRangeConfig sets the range search configuration.
func (s *SmartStrategy) WithRangeConfig(config RangeConfig) *SmartStrategy {
	s.RangeConfig = config
	return s
}

// WithPatternConfig sets the pattern search configuration.
func (s *SmartStrategy) WithPatternConfig(config PatternConfig) *SmartStrategy {
	s.PatternConfig = config
	return s
}

// WithLogger routes search progress to l.
func (s *SmartStrategy) WithLogger(l logging.Logger) *SmartStrategy {
	if l == nil {
		l = logging.Discard()
	}
	s.logger = l.With("strategy", s.Name())
	return s
}

// Name returns the strategy name.
func (s *SmartStrategy) Name() string {
	return "SmartBruteForce"
}

// prepared is a record with its points and challenge decoded once.
type prepared struct {
	index  int
	rec    *Record
	pub    []byte
	commit []byte
	r      secp256k1.JacobianPoint
	e      *big.Int
}

func (s *SmartStrategy) prepare(ctx context.Context, records []*Record, publicKey []byte) []*prepared {
	out := make([]*prepared, 0, len(records))
	for i, rec := range records {
		if rec == nil || rec.Response == nil {
			continue
		}
		pubBytes := rec.PublicKey
		if len(pubBytes) == 0 {
			pubBytes = publicKey
		}
		pk, err := latticevault.ParsePublicKey(pubBytes)
		if err != nil {
			s.logger.Warn(ctx, "skipping record without usable public key", "index", i, "err", err)
			continue
		}
		r, err := parseCommitment(rec.Commitment)
		if err != nil {
			s.logger.Warn(ctx, "skipping record", "index", i, "err", err)
			continue
		}
		e := latticevault.DeriveChallenge(rec.Commitment, pk, rec.Message).Scalar().Bytes()
		out = append(out, &prepared{
			index:  i,
			rec:    rec,
			pub:    pk.Bytes(),
			commit: rec.Commitment,
			r:      r,
			e:      new(big.Int).SetBytes(e[:]),
		})
	}
	return out
}

// pairs lists index pairs into set that share a public key.
func pairs(set []*prepared) [][2]int {
	var out [][2]int
	for i := 0; i < len(set); i++ {
		for j := i + 1; j < len(set); j++ {
			if bytes.Equal(set[i].pub, set[j].pub) {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

// Search pairs records signed under the same key and runs the duplicate,
// pattern and range phases in order, returning the first recovered key or nil.
func (s *SmartStrategy) Search(ctx context.Context, records []*Record, publicKey []byte) *RecoveryResult {
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	set := s.prepare(ctx, records, publicKey)
	candidates := pairs(set)
	if len(candidates) == 0 {
		s.logger.Info(ctx, "no signature pairs under a common key", "records", len(records))
		return nil
	}
	s.logger.Info(ctx, "starting nonce audit", "records", len(set), "pairs", len(candidates))

	s.logger.Debug(ctx, "phase 0: reused commitments")
	if result := s.checkReusedCommitment(set, candidates); result != nil {
		s.logger.Info(ctx, "found reused nonce", "pair", result.SignaturePair)
		return result
	}

	if s.PatternConfig.IncludeCommonPatterns {
		patterns := defaultCommonPatterns()
		s.logger.Debug(ctx, "phase 1: common patterns", "count", len(patterns))
		if result := s.tryPatterns(ctx, set, candidates, patterns); result != nil {
			s.logger.Info(ctx, "found pattern", "pattern", result.Pattern, "pair", result.SignaturePair)
			return result
		}
	}

	if len(s.PatternConfig.CustomPatterns) > 0 {
		s.logger.Debug(ctx, "phase 2: custom patterns", "count", len(s.PatternConfig.CustomPatterns))
		if result := s.tryPatterns(ctx, set, candidates, s.PatternConfig.CustomPatterns); result != nil {
			s.logger.Info(ctx, "found custom pattern", "pattern", result.Pattern, "pair", result.SignaturePair)
			return result
		}
	}

	s.logger.Debug(ctx, "phase 3: adaptive range search")
	return s.adaptiveRangeSearch(ctx, set, candidates)
}

func (s *SmartStrategy) checkReusedCommitment(set []*prepared, candidates [][2]int) *RecoveryResult {
	one, zero := big.NewInt(1), big.NewInt(0)
	for _, pair := range candidates {
		p1, p2 := set[pair[0]], set[pair[1]]
		if !bytes.Equal(p1.commit, p2.commit) {
			continue
		}
		if result := s.recover(p1, p2, one, zero, "same_nonce_reuse"); result != nil {
			return result
		}
	}
	return nil
}

func (s *SmartStrategy) tryPatterns(ctx context.Context, set []*prepared, candidates [][2]int, patterns []Pattern) *RecoveryResult {
	ordered := append([]Pattern(nil), patterns...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	for _, pattern := range ordered {
		if ctx.Err() != nil {
			return nil
		}
		for _, pair := range candidates {
			p1, p2 := set[pair[0]], set[pair[1]]
			// Either signature may carry the derived nonce.
			for _, order := range [2][2]*prepared{{p1, p2}, {p2, p1}} {
				if !relationHolds(&order[0].r, &order[1].r, pattern.A, pattern.B) {
					continue
				}
				if result := s.recover(order[0], order[1], pattern.A, pattern.B, pattern.Name); result != nil {
					return result
				}
			}
		}
	}
	return nil
}

// recover solves for the key assuming k2 = a*k1 + b and keeps it only if it
// matches the signer's public key.
func (s *SmartStrategy) recover(p1, p2 *prepared, a, b *big.Int, pattern string) *RecoveryResult {
	priv, err := solve(p1.rec.Response, p2.rec.Response, p1.e, p2.e, a, b)
	if err != nil {
		return nil
	}
	verified, err := VerifyRecoveredKey(priv, p1.pub)
	if err != nil || !verified {
		return nil
	}
	return &RecoveryResult{
		PrivateKey:    priv,
		PublicKey:     p1.pub,
		Relationship:  AffineRelationship{A: new(big.Int).Set(a), B: new(big.Int).Set(b)},
		SignaturePair: [2]int{p1.index, p2.index},
		Verified:      true,
		Pattern:       pattern,
	}
}

type searchPhase struct {
	aRange [2]int
	bRange [2]int
	name   string
}

func (s *SmartStrategy) phases() []searchPhase {
	def := DefaultRangeConfig()
	if s.RangeConfig.ARange != def.ARange || s.RangeConfig.BRange != def.BRange {
		return []searchPhase{{s.RangeConfig.ARange, s.RangeConfig.BRange, "custom range"}}
	}
	return []searchPhase{
		{[2]int{1, 1}, [2]int{-100, 100}, "a=1, small b"},
		{[2]int{1, 1}, [2]int{-1000, 1000}, "a=1, medium b"},
		{[2]int{1, 1}, [2]int{-10000, 10000}, "a=1, larger b"},
		{[2]int{2, 4}, [2]int{-1000, 1000}, "small a, medium b"},
		{[2]int{-5, -1}, [2]int{-1000, 1000}, "negative a, medium b"},
		{[2]int{1, 10}, [2]int{-50000, 50000}, "wider a, larger b"},
	}
}

func (s *SmartStrategy) adaptiveRangeSearch(ctx context.Context, set []*prepared, candidates [][2]int) *RecoveryResult {
	maxPairs := s.RangeConfig.MaxPairs
	if maxPairs <= 0 || maxPairs > len(candidates) {
		maxPairs = len(candidates)
	}
	candidates = candidates[:maxPairs]

	for _, phase := range s.phases() {
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Debug(ctx, "range phase", "phase", phase.name,
			"a_min", phase.aRange[0], "a_max", phase.aRange[1],
			"b_min", phase.bRange[0], "b_max", phase.bRange[1])

		result, stats, err := scan.First(ctx, scan.Options{
			Workers:  s.RangeConfig.NumWorkers,
			Progress: 5 * time.Second,
			Logger:   s.logger,
		}, s.rangeJobs(candidates, phase), func(ctx context.Context, j rangeJob) (*RecoveryResult, int64, bool) {
			return s.walk(ctx, set, j)
		})
		if err == nil {
			s.logger.Info(ctx, "found relation", "pattern", result.Pattern, "pair", result.SignaturePair, "tested", stats.Tested)
			return result
		}
		if !errors.Is(err, scan.ErrExhausted) {
			s.logger.Debug(ctx, "range search stopped", "phase", phase.name, "err", err)
			return nil
		}
		s.logger.Debug(ctx, "range phase exhausted", "phase", phase.name, "tested", stats.Tested)
	}
	s.logger.Info(ctx, "no nonce relation found")
	return nil
}

// rangeJob walks b over [bStart, bEnd] for one ordered pair and one a.
type rangeJob struct {
	first, second int
	a             int
	bStart, bEnd  int
}

func (s *SmartStrategy) rangeJobs(candidates [][2]int, phase searchPhase) func(emit func(rangeJob) bool) {
	aValues := make([]int, 0, phase.aRange[1]-phase.aRange[0]+1)
	if phase.aRange[0] <= 1 && phase.aRange[1] >= 1 {
		aValues = append(aValues, 1)
	}
	for a := phase.aRange[0]; a <= phase.aRange[1]; a++ {
		if a == 1 || (a == 0 && s.RangeConfig.SkipZeroA) {
			continue
		}
		aValues = append(aValues, a)
	}

	return func(emit func(rangeJob) bool) {
		for _, a := range aValues {
			for _, pair := range candidates {
				for _, order := range [2][2]int{{pair[0], pair[1]}, {pair[1], pair[0]}} {
					for b := phase.bRange[0]; b <= phase.bRange[1]; b += rangeBatch {
						end := b + rangeBatch - 1
						if end > phase.bRange[1] {
							end = phase.bRange[1]
						}
						if !emit(rangeJob{first: order[0], second: order[1], a: a, bStart: b, bEnd: end}) {
							return
						}
					}
				}
			}
		}
	}
}

// walk looks for b with b·G == R2 - a·R1, stepping b·G by G so each
// candidate costs one point addition.
func (s *SmartStrategy) walk(ctx context.Context, set []*prepared, j rangeJob) (*RecoveryResult, int64, bool) {
	p1, p2 := set[j.first], set[j.second]
	aBig := big.NewInt(int64(j.a))

	var aR1, target secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(toScalar(aBig), &p1.r, &aR1)
	aR1.Y.Normalize().Negate(1).Normalize()
	secp256k1.AddNonConst(&p2.r, &aR1, &target)
	targetInf := isInfinity(&target)
	if !targetInf {
		target.ToAffine()
	}

	var gen, cur, next secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(new(secp256k1.ModNScalar).SetInt(1), &gen)
	secp256k1.ScalarBaseMultNonConst(toScalar(big.NewInt(int64(j.bStart))), &cur)

	var tested int64
	for b := j.bStart; b <= j.bEnd; b++ {
		if tested%1024 == 0 && ctx.Err() != nil {
			return nil, tested, false
		}
		tested++

		var match bool
		if isInfinity(&cur) {
			match = targetInf
		} else if !targetInf {
			match = equalsAffine(&cur, &target)
		}
		if match {
			name := fmt.Sprintf("brute_force_a%d_b%d", j.a, b)
			if result := s.recover(p1, p2, aBig, big.NewInt(int64(b)), name); result != nil {
				return result, tested, true
			}
		}

		secp256k1.AddNonConst(&cur, &gen, &next)
		cur = next
	}
	return nil, tested, false
}

func isInfinity(p *secp256k1.JacobianPoint) bool {
	var x, y, z secp256k1.FieldVal
	x.Set(&p.X).Normalize()
	y.Set(&p.Y).Normalize()
	z.Set(&p.Z).Normalize()
	return (x.IsZero() && y.IsZero()) || z.IsZero()
}
