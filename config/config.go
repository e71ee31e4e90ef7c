// Package config loads and validates host configuration.
//
// Files are YAML or TOML, chosen by extension. Absent fields keep the
// values of Default, and the result is checked with validator struct tags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the host configuration.
type Config struct {
	Codec  string       `yaml:"codec" toml:"codec" json:"codec" validate:"oneof=word json" jsonschema:"enum=word,enum=json,default=word,description=Codec shared by guest and host"`
	Stdout StdoutConfig `yaml:"stdout" toml:"stdout" json:"stdout"`
	Cycles CycleConfig  `yaml:"cycles" toml:"cycles" json:"cycles"`
	Log    LogConfig    `yaml:"log" toml:"log" json:"log"`
	Store  StoreConfig  `yaml:"store" toml:"store" json:"store"`
}

// StdoutConfig bounds the guest stdout kept in a receipt.
type StdoutConfig struct {
	MaxBytes int `yaml:"max_bytes" toml:"max_bytes" json:"max_bytes" validate:"gte=0" jsonschema:"minimum=0,default=1048576"`
}

// CycleConfig prices guest interactions in cycles.
type CycleConfig struct {
	PerTrap uint64 `yaml:"per_trap" toml:"per_trap" json:"per_trap" jsonschema:"default=100,description=Cycles charged per exchange or register write"`
	PerWord uint64 `yaml:"per_word" toml:"per_word" json:"per_word" jsonschema:"default=1,description=Cycles charged per word moved across a channel"`
}

// LogConfig configures the host logger.
type LogConfig struct {
	Level       string `yaml:"level" toml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Development bool   `yaml:"development" toml:"development" json:"development"`
}

// StoreConfig selects the receipt database.
type StoreConfig struct {
	Backend string `yaml:"backend" toml:"backend" json:"backend" validate:"oneof=memdb goleveldb" jsonschema:"enum=memdb,enum=goleveldb,default=memdb"`
	Dir     string `yaml:"dir" toml:"dir" json:"dir,omitempty" validate:"required_if=Backend goleveldb"`
	Name    string `yaml:"name" toml:"name" json:"name" validate:"required,excludesall=/\\" jsonschema:"default=receipts"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Codec:  "word",
		Stdout: StdoutConfig{MaxBytes: 1 << 20},
		Cycles: CycleConfig{PerTrap: 100, PerWord: 1},
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Backend: "memdb", Name: "receipts"},
	}
}

// Load reads, parses and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in format ("yaml", "yml" or "toml") over the defaults
// and validates the result.
func Parse(data []byte, format string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", format)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Schema returns the JSON Schema of Config.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	data, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
