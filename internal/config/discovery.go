package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configExtensions lists the recognised config file extensions in lookup order.
var configExtensions = []string{".toml", ".yaml", ".yml", ".json"}

// DiscoverConfigPath returns the first quicdemo.* file present in dir.
func DiscoverConfigPath(dir string) (string, error) {
	candidates := CandidateConfigPaths(dir)
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config file found in %s; looked for %v", dir, candidates)
}

func CandidateConfigPaths(dir string) []string {
	out := make([]string, 0, len(configExtensions))
	for _, ext := range configExtensions {
		out = append(out, filepath.Join(dir, configBaseName+ext))
	}
	return out
}
