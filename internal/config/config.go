// Package config loads the client configuration from config.toml with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/oc2wire/oc2wire/internal/bus"
	"github.com/oc2wire/oc2wire/internal/protocol"
)

// Config is the top-level configuration loaded from config.toml.
type Config struct {
	Bus     BusConfig     `toml:"bus"`
	Catalog CatalogConfig `toml:"catalog"`
}

// BusConfig describes the device endpoint and the protocol's size knobs.
type BusConfig struct {
	// Character-device path of the bus. Defaults to the hvc console.
	Path string `toml:"path"`
	// Line rate applied with the raw mode.
	Baud uint32 `toml:"baud"`
	// Size of each incremental read while decoding a reply.
	ReadBufferBytes int `toml:"read_buffer_bytes"`
	// Hard cap on one encoded outbound envelope.
	MaxWriteBytes int `toml:"max_write_bytes"`
}

// CatalogConfig locates the offline device catalog.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// minWriteBytes leaves room for the smallest real request plus delimiters.
const minWriteBytes = 64

// Load reads config.toml from dataDir (missing file means defaults), applies
// environment overrides, and validates the result.
func Load(dataDir string) (*Config, error) {
	cfg := &Config{
		Bus: BusConfig{
			Path:            bus.MainBusPath,
			Baud:            bus.DefaultBaud,
			ReadBufferBytes: protocol.DefaultReadBufferBytes,
			MaxWriteBytes:   protocol.DefaultMaxWriteBytes,
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(dataDir, "catalog.db"),
		},
	}

	path := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if p := os.Getenv("OC2WIRE_BUS"); p != "" {
		cfg.Bus.Path = p
	}
	if v := os.Getenv("OC2WIRE_BAUD"); v != "" {
		baud, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("OC2WIRE_BAUD: %w", err)
		}
		cfg.Bus.Baud = uint32(baud)
	}
	if p := os.Getenv("OC2WIRE_CATALOG"); p != "" {
		cfg.Catalog.Path = p
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Bus.Path == "" {
		return fmt.Errorf("bus.path must not be empty")
	}
	if c.Bus.ReadBufferBytes < 1 {
		return fmt.Errorf("bus.read_buffer_bytes must be positive, got %d", c.Bus.ReadBufferBytes)
	}
	if c.Bus.MaxWriteBytes < minWriteBytes {
		return fmt.Errorf("bus.max_write_bytes must be at least %d, got %d", minWriteBytes, c.Bus.MaxWriteBytes)
	}
	return nil
}
