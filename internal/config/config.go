package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string
	// Format is one of: json, text.
	Format string
	// Output is one of: stderr, stdout, discard; or a file path.
	Output string
	// AddSource enables source file/line reporting (slightly higher overhead).
	AddSource bool
}

// Config drives the echo demo: one server endpoint, one client endpoint that
// trusts the server's generated certificate, and a number of echo rounds.
type Config struct {
	ServerAddr string
	ClientAddr string
	// ServerName is verified against the server certificate.
	ServerName string

	Message string
	Rounds  int
	// Timeout bounds the whole demo run.
	Timeout time.Duration

	Logging LoggingConfig
}

type ConfigProvider interface {
	Load(ctx context.Context) (*Config, error)
}

type FileConfigProvider struct {
	Path string
}

func NewFileConfigProvider(path string) *FileConfigProvider {
	return &FileConfigProvider{Path: path}
}

type fileConfig struct {
	ServerAddr string `toml:"server_addr" yaml:"server_addr" json:"server_addr"`
	ClientAddr string `toml:"client_addr" yaml:"client_addr" json:"client_addr"`
	ServerName string `toml:"server_name" yaml:"server_name" json:"server_name"`
	Message    string `toml:"message" yaml:"message" json:"message"`
	Rounds     int    `toml:"rounds" yaml:"rounds" json:"rounds"`
	TimeoutMs  int    `toml:"timeout_ms" yaml:"timeout_ms" json:"timeout_ms"`

	Logging *struct {
		Level     string `toml:"level" yaml:"level" json:"level"`
		Format    string `toml:"format" yaml:"format" json:"format"`
		Output    string `toml:"output" yaml:"output" json:"output"`
		AddSource bool   `toml:"add_source" yaml:"add_source" json:"add_source"`
	} `toml:"logging" yaml:"logging" json:"logging"`
}

func (p *FileConfigProvider) Load(_ context.Context) (*Config, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	if err := decodeFile(p.Path, data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.Path, err)
	}

	cfg := &Config{
		ServerAddr: strings.TrimSpace(fc.ServerAddr),
		ClientAddr: strings.TrimSpace(fc.ClientAddr),
		ServerName: strings.TrimSpace(fc.ServerName),
		Message:    fc.Message,
		Rounds:     fc.Rounds,
		Timeout:    time.Duration(fc.TimeoutMs) * time.Millisecond,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
	if fc.Logging != nil {
		if fc.Logging.Level != "" {
			cfg.Logging.Level = fc.Logging.Level
		}
		if fc.Logging.Format != "" {
			cfg.Logging.Format = fc.Logging.Format
		}
		if fc.Logging.Output != "" {
			cfg.Logging.Output = fc.Logging.Output
		}
		cfg.Logging.AddSource = fc.Logging.AddSource
	}

	if fc.TimeoutMs < 0 {
		return nil, fmt.Errorf("config: timeout_ms must not be negative (got %d)", fc.TimeoutMs)
	}
	ApplyDefaults(cfg)
	if cfg.Rounds < 0 {
		return nil, fmt.Errorf("config: rounds must not be negative (got %d)", cfg.Rounds)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields of cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = "127.0.0.1:0"
	}
	if cfg.ClientAddr == "" {
		cfg.ClientAddr = "127.0.0.1:0"
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "localhost"
	}
	if cfg.Message == "" {
		cfg.Message = "hello over quic"
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
}

// decodeFile decodes data by the extension of path. Unknown keys are rejected
// in every format.
func decodeFile(path string, data []byte, fc *fileConfig) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), fc)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config extension %q (expected .toml, .yaml/.yml or .json)", ext)
	}
}
