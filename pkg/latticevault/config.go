package latticevault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// maxContextLen is the FIPS 204 limit on context strings.
const maxContextLen = 255

// Config selects the lattice scheme and signing parameters of a Vault.
type Config struct {
	// Scheme names the circl signature scheme used for the lattice binding
	// ("ML-DSA-65", "ML-DSA-87", "Dilithium3", ...). Empty means classical only.
	Scheme string `json:"scheme"`

	// Context is the domain separation string passed to the lattice scheme.
	Context string `json:"context"`

	// MaxNonceAttempts bounds retries after InvalidNonce.
	MaxNonceAttempts int `json:"max_nonce_attempts"`
}

// DefaultConfig returns an ML-DSA-65 hybrid configuration.
func DefaultConfig() Config {
	return Config{
		Scheme:           DefaultLatticeScheme,
		Context:          "latticevault",
		MaxNonceAttempts: 8,
	}
}

// ClassicalConfig returns a configuration without lattice binding.
func ClassicalConfig() Config {
	cfg := DefaultConfig()
	cfg.Scheme = ""
	return cfg
}

// Validate checks that the configuration can be used to build a Vault.
func (c Config) Validate() error {
	if c.MaxNonceAttempts <= 0 {
		return fmt.Errorf("max_nonce_attempts must be positive, got %d", c.MaxNonceAttempts)
	}
	if len(c.Context) > maxContextLen {
		return fmt.Errorf("context must be at most %d bytes, got %d", maxContextLen, len(c.Context))
	}
	if _, err := LookupScheme(c.Scheme); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads a JSON configuration file. Fields missing from the file
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("read file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
