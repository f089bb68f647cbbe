// Package config holds the deployment parameters of a claim ledger.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/claimledger/libclaim-go/ledger"
)

// Config describes one claim ledger deployment. Addresses are 40-character
// hex; the total supply is a decimal integer up to 256 bits.
type Config struct {
	Name           string `yaml:"name"`
	Symbol         string `yaml:"symbol"`
	TotalSupply    string `yaml:"total_supply"`
	TimeoutSeconds uint64 `yaml:"timeout_seconds"`
	Owner          string `yaml:"owner"`
	Broker         string `yaml:"broker"`
	Custodian      string `yaml:"custodian"`
	DataDir        string `yaml:"data_dir"`
	LogLevel       string `yaml:"log_level"`
}

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that all configuration values are acceptable and returns
// the first error encountered, or nil if valid.
func Validate(cfg Config) error {
	if cfg.Name == "" {
		return ErrEmptyName
	}
	if cfg.Symbol == "" {
		return ErrEmptySymbol
	}
	if _, err := ParseSupply(cfg.TotalSupply); err != nil {
		return err
	}
	if cfg.TimeoutSeconds == 0 {
		return ErrInvalidTimeout
	}
	for _, addr := range []string{cfg.Owner, cfg.Broker, cfg.Custodian} {
		if _, err := ledger.AddressFromHex(addr); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
	}
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}
	return nil
}

// ParseSupply parses the decimal total supply.
func ParseSupply(s string) (*uint256.Int, error) {
	supply, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSupply, s)
	}
	if supply.IsZero() {
		return nil, fmt.Errorf("%w: supply must be positive", ErrInvalidSupply)
	}
	return supply, nil
}

// Timeout returns the funding timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LedgerParams converts the config into ledger construction parameters.
// The creation time, bank, and sink are supplied by the caller.
func (c Config) LedgerParams(creation time.Time, bank ledger.Bank, sink ledger.Sink) (ledger.Params, error) {
	supply, err := ParseSupply(c.TotalSupply)
	if err != nil {
		return ledger.Params{}, err
	}
	owner, err := ledger.AddressFromHex(c.Owner)
	if err != nil {
		return ledger.Params{}, fmt.Errorf("%w: owner %q", ErrInvalidAddress, c.Owner)
	}
	broker, err := ledger.AddressFromHex(c.Broker)
	if err != nil {
		return ledger.Params{}, fmt.Errorf("%w: broker %q", ErrInvalidAddress, c.Broker)
	}
	custodian, err := ledger.AddressFromHex(c.Custodian)
	if err != nil {
		return ledger.Params{}, fmt.Errorf("%w: custodian %q", ErrInvalidAddress, c.Custodian)
	}
	return ledger.Params{
		Name:         c.Name,
		Symbol:       c.Symbol,
		TotalSupply:  supply,
		Owner:        owner,
		Broker:       broker,
		Custodian:    custodian,
		CreationTime: creation,
		Timeout:      c.Timeout(),
		Bank:         bank,
		Sink:         sink,
	}, nil
}
