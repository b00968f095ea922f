// Package workspace reads project-local editor settings from a
// .gpuasm.toml file at the workspace root. The server consults it at
// initialize; explicit client initialization options always win over
// workspace settings.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileName is the workspace settings filename.
const FileName = ".gpuasm.toml"

// File represents the root structure of .gpuasm.toml.
type File struct {
	// Version is the schema version.
	Version int `toml:"version"`

	// Architecture pins instruction lookups to one architecture for
	// every document in the workspace (free-form label, normalized by
	// the server: "RDNA 3", "rdna3", and "gfx rdna3.5" all work).
	Architecture string `toml:"architecture,omitempty"`

	// Completion tunes completion behavior.
	Completion CompletionSettings `toml:"completion,omitempty"`
}

// CompletionSettings tunes completion for the workspace.
type CompletionSettings struct {
	// MinPrefix is the minimum typed prefix length before completion
	// answers. Zero keeps the server default.
	MinPrefix int `toml:"min_prefix,omitempty"`
}

// Parse parses workspace settings bytes.
func Parse(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if f.Version < 1 {
		f.Version = 1
	}
	if f.Completion.MinPrefix < 0 {
		return nil, fmt.Errorf("%s: completion.min_prefix must not be negative", FileName)
	}
	return &f, nil
}

// ParseFile parses the workspace settings file at path.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return Parse(data)
}

// Load reads workspace settings from root if present. A missing file
// is not an error: it returns (nil, nil).
func Load(root string) (*File, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return ParseFile(path)
}
