package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath is the environment variable used to override the config file path.
const EnvConfigPath = "QUICDEMO_CONFIG"

// configBaseName is the file name stem looked up in directories.
const configBaseName = "quicdemo"

type ConfigPathSource string

const (
	ConfigPathSourceFlag    ConfigPathSource = "flag"
	ConfigPathSourceEnv     ConfigPathSource = "env"
	ConfigPathSourceCWD     ConfigPathSource = "cwd"
	ConfigPathSourceDefault ConfigPathSource = "default"
)

type ResolvedConfigPath struct {
	Path   string
	Source ConfigPathSource
}

// ResolveConfigPath picks the config file to use, in order: the -config flag,
// QUICDEMO_CONFIG, a quicdemo.* file in the working directory, and finally
// the per-user default location.
func ResolveConfigPath(flagPath string) (ResolvedConfigPath, error) {
	explicit := []struct {
		value  string
		source ConfigPathSource
	}{
		{flagPath, ConfigPathSourceFlag},
		{os.Getenv(EnvConfigPath), ConfigPathSourceEnv},
	}
	for _, e := range explicit {
		if strings.TrimSpace(e.value) == "" {
			continue
		}
		p, err := expandExplicitPath(e.value)
		if err != nil {
			return ResolvedConfigPath{}, err
		}
		return ResolvedConfigPath{Path: p, Source: e.source}, nil
	}

	if p, err := DiscoverConfigPath("."); err == nil {
		return ResolvedConfigPath{Path: p, Source: ConfigPathSourceCWD}, nil
	}

	p, err := DefaultConfigPath()
	if err != nil {
		return ResolvedConfigPath{}, err
	}
	return ResolvedConfigPath{Path: p, Source: ConfigPathSourceDefault}, nil
}

// expandExplicitPath turns a user-supplied path into a config file path.
// Directories are searched for quicdemo.*; a missing file without an
// extension is treated as TOML.
func expandExplicitPath(raw string) (string, error) {
	p := filepath.Clean(strings.TrimSpace(raw))

	fi, err := os.Stat(p)
	switch {
	case err == nil && fi.IsDir():
		if found, derr := DiscoverConfigPath(p); derr == nil {
			return found, nil
		}
		return filepath.Join(p, configBaseName+".toml"), nil
	case err == nil:
		return p, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("config: stat %s: %w", p, err)
	}

	if filepath.Ext(p) == "" {
		p += ".toml"
	}
	return p, nil
}

// DefaultConfigPath returns <user config dir>/quicdemo/quicdemo.toml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err == nil && strings.TrimSpace(dir) == "" {
		err = errors.New("empty")
	}
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}
	return filepath.Join(dir, configBaseName, configBaseName+".toml"), nil
}

// EnsureConfigFile writes the default template for path's extension if no
// file exists there yet. An existing regular file is left untouched.
func EnsureConfigFile(path string) (created bool, err error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return false, errors.New("config: empty config path")
	}

	if fi, err := os.Stat(path); err == nil {
		if !fi.Mode().IsRegular() {
			return false, fmt.Errorf("config: %s exists but is not a regular file", path)
		}
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("config: stat %s: %w", path, err)
	}

	tmpl, err := defaultConfigTemplateForPath(path)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("config: mkdir %s: %w", filepath.Dir(path), err)
	}

	// O_EXCL: a file created concurrently wins.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("config: create %s: %w", path, err)
	}
	_, werr := f.WriteString(tmpl)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return false, fmt.Errorf("config: write %s: %w", path, werr)
	}
	return true, nil
}

func defaultConfigTemplateForPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return defaultConfigTemplateTOML, nil
	case ".yaml", ".yml":
		return defaultConfigTemplateYAML, nil
	case ".json":
		return defaultConfigTemplateJSON, nil
	default:
		return "", fmt.Errorf("config: unsupported config extension %q (expected .toml, .yaml/.yml or .json)", ext)
	}
}

const defaultConfigTemplateTOML = `# quicdemo configuration (auto-generated)
#
# The demo binds a QUIC server endpoint with a freshly generated self-signed
# certificate, binds a client endpoint that trusts only that certificate, and
# echoes message over a bidirectional stream rounds times.

server_addr = "127.0.0.1:0"
client_addr = "127.0.0.1:0"
server_name = "localhost"
message = "hello over quic"
rounds = 1
timeout_ms = 5000

[logging]
level = "info"
format = "text"
output = "stderr"
add_source = false
`

const defaultConfigTemplateYAML = `# quicdemo configuration (auto-generated)
#
# The demo binds a QUIC server endpoint with a freshly generated self-signed
# certificate, binds a client endpoint that trusts only that certificate, and
# echoes message over a bidirectional stream rounds times.

server_addr: "127.0.0.1:0"
client_addr: "127.0.0.1:0"
server_name: "localhost"
message: "hello over quic"
rounds: 1
timeout_ms: 5000

logging:

  level: "info"
  format: "text"
  output: "stderr"
  add_source: false
`

const defaultConfigTemplateJSON = `{
  "server_addr": "127.0.0.1:0",
  "client_addr": "127.0.0.1:0",
  "server_name": "localhost",
  "message": "hello over quic",
  "rounds": 1,
  "timeout_ms": 5000,
  "logging": {
    "level": "info",
    "format": "text",
    "output": "stderr",
    "add_source": false
  }
}
`
