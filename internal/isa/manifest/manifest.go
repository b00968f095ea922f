// Package manifest reads the optional isa-sources build manifest.
// A manifest pins exactly which vendor documents a snapshot build
// consumes, with per-document architecture overrides for files whose
// own label is wrong or missing. Builds without a manifest fall back to
// scanning their input directories. TOML is the canonical format; a
// .yaml or .yml path decodes the same schema from YAML.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the decoded manifest.
type Config struct {
	// Sources select vendor documents by glob, in priority order
	Sources []Source `toml:"sources" yaml:"sources"`

	// Exclude removes matched paths from the resolved set
	Exclude []string `toml:"exclude" yaml:"exclude"`
}

// Source is one glob entry.
type Source struct {
	// Glob selects documents, resolved relative to the manifest directory
	Glob string `toml:"glob" yaml:"glob"`

	// Architecture, when set, overrides the documents' own label
	Architecture string `toml:"architecture,omitempty" yaml:"architecture,omitempty"`
}

// Input is one resolved document with its effective label override.
type Input struct {
	Path string

	// Architecture is empty unless the matching source entry set one.
	Architecture string
}

// Load decodes a manifest file, choosing the codec by extension.
func Load(path string) (*Config, error) {
	var c Config
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for i, src := range c.Sources {
		if src.Glob == "" {
			return nil, fmt.Errorf("manifest source %d has no glob", i+1)
		}
	}
	return &c, nil
}

// Resolve expands the manifest into the ordered document list. Relative
// globs are anchored at baseDir, normally the manifest's own directory.
// Each entry's matches are sorted lexicographically; a path matched by
// several entries keeps the first entry's override. Excluded paths
// never appear.
func (c *Config) Resolve(baseDir string) ([]Input, error) {
	seen := make(map[string]bool)
	var inputs []Input

	for _, src := range c.Sources {
		pattern := src.Glob
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", src.Glob, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if seen[match] {
				continue
			}
			excluded, err := c.isExcluded(baseDir, match)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}
			seen[match] = true
			inputs = append(inputs, Input{Path: match, Architecture: src.Architecture})
		}
	}
	return inputs, nil
}

func (c *Config) isExcluded(baseDir, path string) (bool, error) {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		rel = path
	}
	for _, pattern := range c.Exclude {
		for _, candidate := range []string{rel, filepath.Base(path)} {
			ok, err := filepath.Match(pattern, candidate)
			if err != nil {
				return false, fmt.Errorf("bad exclude %q: %w", pattern, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
