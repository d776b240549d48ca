// Package config loads the concha configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Parser modes.
const (
	ParserHTTP    = "http"
	ParserCommand = "command"
)

// Config is the full configuration. Zero values are replaced by
// Default() when loading.
type Config struct {
	Listen   string       `yaml:"listen"`
	Database string       `yaml:"database"`
	Rules    RulesConfig  `yaml:"rules"`
	Parser   ParserConfig `yaml:"parser"`
	Remote   RemoteConfig `yaml:"remote"`
	Engine   EngineConfig `yaml:"engine"`
	Log      LogConfig    `yaml:"log"`
}

// RulesConfig locates trick files loaded at startup.
type RulesConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// ParserConfig selects and configures the natural-language parser.
type ParserConfig struct {
	Mode     string        `yaml:"mode"`
	URL      string        `yaml:"url"`
	Language string        `yaml:"language"`
	Command  string        `yaml:"command"`
	Dir      string        `yaml:"dir"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RemoteConfig configures calls made by GET/POST/PUT/DELETE tricks.
type RemoteConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// EngineConfig bounds resolution.
type EngineConfig struct {
	MaxDepth      int           `yaml:"max_depth"`
	MaxIterations int           `yaml:"max_iterations"`
	Timeout       time.Duration `yaml:"timeout"`
	Seed          *uint64       `yaml:"seed"`
}

// LogConfig configures logging.
type LogConfig struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: ":7000",
		Parser: ParserConfig{
			Mode:     ParserHTTP,
			URL:      "http://localhost:7001",
			Language: "es",
			Timeout:  10 * time.Second,
		},
		Remote: RemoteConfig{Timeout: 10 * time.Second},
		Engine: EngineConfig{MaxDepth: 8, MaxIterations: 256, Timeout: 30 * time.Second},
	}
}

// Load reads a YAML configuration file over Default(). Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode parses YAML into cfg, keeping values the document does not set.
func Decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg.Validate()
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks that the configuration is usable. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	switch c.Parser.Mode {
	case ParserHTTP:
		if c.Parser.URL == "" {
			errs = append(errs, errors.New("parser.url is required in http mode"))
		}
	case ParserCommand:
		if strings.TrimSpace(c.Parser.Command) == "" {
			errs = append(errs, errors.New("parser.command is required in command mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("parser.mode must be %q or %q, got %q", ParserHTTP, ParserCommand, c.Parser.Mode))
	}
	if c.Parser.Timeout <= 0 {
		errs = append(errs, errors.New("parser.timeout must be positive"))
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, errors.New("remote.timeout must be positive"))
	}
	if c.Engine.MaxDepth < 0 {
		errs = append(errs, errors.New("engine.max_depth must not be negative"))
	}
	if c.Engine.MaxIterations <= 0 {
		errs = append(errs, errors.New("engine.max_iterations must be positive"))
	}
	if c.Engine.Timeout < 0 {
		errs = append(errs, errors.New("engine.timeout must not be negative"))
	}
	if c.Rules.Watch && c.Rules.Dir == "" {
		errs = append(errs, errors.New("rules.watch needs rules.dir"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
