package nonceaudit

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/mahdiidarabi/latticevault/internal/logging"
	"github.com/mahdiidarabi/latticevault/internal/parser"
)

// ErrNoRecovery is returned when no nonce relation exposes the key.
var ErrNoRecovery = errors.New("nonceaudit: failed to recover private key")

// Client runs audits over signature dumps.
type Client struct {
	strategy Strategy
	parser   SignatureParser
	logger   logging.Logger
}

// NewClient returns a client using SmartStrategy and AutoParser.
func NewClient() *Client {
	return &Client{
		strategy: NewSmartStrategy(),
		parser:   &AutoParser{},
		logger:   logging.Discard(),
	}
}

func (c *Client) WithStrategy(strategy Strategy) *Client {
	c.strategy = strategy
	return c
}

func (c *Client) WithParser(p SignatureParser) *Client {
	c.parser = p
	return c
}

// WithLogger sets the client's logger and, for SmartStrategy, the strategy's.
func (c *Client) WithLogger(l logging.Logger) *Client {
	if l == nil {
		l = logging.Discard()
	}
	c.logger = l
	if s, ok := c.strategy.(*SmartStrategy); ok {
		s.WithLogger(l)
	}
	return c
}

// Audit loads signatures from source and searches them for nonce relations.
// publicKeyHex is optional when every signature carries its public key.
func (c *Client) Audit(ctx context.Context, source string, publicKeyHex string) (*RecoveryResult, error) {
	records, err := c.parser.ParseSignatures(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signatures: %w", err)
	}
	c.logger.Info(ctx, "loaded signatures", "source", source, "count", len(records))
	return c.AuditRecords(ctx, records, publicKeyHex)
}

// AuditRecords searches in-memory records.
func (c *Client) AuditRecords(ctx context.Context, records []*Record, publicKeyHex string) (*RecoveryResult, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("need at least 2 signatures, got %d", len(records))
	}
	publicKey, err := decodePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}

	result := c.strategy.Search(ctx, records, publicKey)
	if result == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoRecovery
	}
	return result, nil
}

// RecoverWithKnownRelationship tries k2 = a*k1 + b on every pair from source.
func (c *Client) RecoverWithKnownRelationship(ctx context.Context, source string, a, b int64, publicKeyHex string) (*RecoveryResult, error) {
	records, err := c.parser.ParseSignatures(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signatures: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("need at least 2 signatures, got %d", len(records))
	}
	publicKey, err := decodePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}

	pattern := Pattern{A: big.NewInt(a), B: big.NewInt(b), Name: fmt.Sprintf("known_a%d_b%d", a, b)}
	strategy := NewSmartStrategy().
		WithPatternConfig(PatternConfig{CustomPatterns: []Pattern{pattern}}).
		WithLogger(c.logger)

	set := strategy.prepare(ctx, records, publicKey)
	if result := strategy.tryPatterns(ctx, set, pairs(set), []Pattern{pattern}); result != nil {
		return result, nil
	}
	return nil, fmt.Errorf("%w with known relationship a=%d, b=%d", ErrNoRecovery, a, b)
}

func decodePublicKey(publicKeyHex string) ([]byte, error) {
	if publicKeyHex == "" {
		return nil, nil
	}
	publicKey, err := parser.DecodeHex(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	publicKey = publicKeyPart(publicKey)
	if len(publicKey) != 33 && len(publicKey) != 65 {
		return nil, fmt.Errorf("public key must be 33 or 65 bytes (secp256k1), got %d", len(publicKey))
	}
	return publicKey, nil
}
