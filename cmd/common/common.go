// Package common provides shared utilities for the CLI commands.
//
// This package contains helper functions used across the standalone service
// binaries (registry, node, operator, order-cli) to reduce code duplication:
//
//   - Key loading and generation for Ed25519 signing keys
//   - YAML configuration loading with flag overrides
//   - Structured logger construction
package common

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/choosek/tinybook/crypto"
	"github.com/choosek/tinybook/protocol"
	"github.com/choosek/tinybook/services"
)

// Config is the YAML configuration shared by the service binaries.
type Config struct {
	ServiceType string `yaml:"service_type"`
	HTTPAddr    string `yaml:"http_addr"`
	RegistryURL string `yaml:"registry_url"`
	AdminToken  string `yaml:"admin_token"`
	NodeIndex   int    `yaml:"node_index"`
	// SigningKey is the hex-encoded Ed25519 private key. A fresh key pair
	// is generated when empty.
	SigningKey string `yaml:"signing_key"`

	Book     BookConfig      `yaml:"book"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// BookConfig mirrors the shared matching configuration in YAML form.
type BookConfig struct {
	PriceDomain int `yaml:"price_domain"`
	NumNodes    int `yaml:"num_nodes"`
	BatchSize   int `yaml:"batch_size"`
}

// PostgresConfig mirrors the registry persistence settings in YAML form.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DefaultConfig returns a configuration suitable for local testing.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Book: BookConfig{
			PriceDomain: 16,
			NumNodes:    3,
			BatchSize:   protocol.DefaultBatchSize,
		},
	}
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// BookConfig converts the YAML book settings to the protocol type.
func (c *Config) BookConfig() *protocol.BookConfig {
	config := (&protocol.BookConfig{
		PriceDomain: c.Book.PriceDomain,
		NumNodes:    c.Book.NumNodes,
		BatchSize:   c.Book.BatchSize,
	}).WithDefaults()
	return &config
}

// PostgresConfig converts the YAML persistence settings, or nil if unset.
func (c *Config) PostgresConfig() *services.PostgresConfig {
	if c.Postgres == nil {
		return nil
	}
	return &services.PostgresConfig{
		Host:     c.Postgres.Host,
		Port:     c.Postgres.Port,
		User:     c.Postgres.User,
		Password: c.Postgres.Password,
		Database: c.Postgres.Database,
		SSLMode:  c.Postgres.SSLMode,
	}
}

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// NewLogger builds the structured logger the services log through.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
