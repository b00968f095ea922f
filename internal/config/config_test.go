package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Data.Path != DefaultDataPath {
		t.Errorf("Data.Path = %q, want %q", cfg.Data.Path, DefaultDataPath)
	}
	if cfg.Server.CompletionMinPrefix != 1 {
		t.Errorf("CompletionMinPrefix = %d, want 1", cfg.Server.CompletionMinPrefix)
	}
	if cfg.Logging.Format != "text" || cfg.Logging.Level != "info" {
		t.Errorf("Logging = %+v, want text/info", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	root := t.TempDir()
	content := `{
  "version": 1,
  "data": {"path": "/opt/isa.json.zst"},
  "server": {"architectureOverride": "rdna3", "completionMinPrefix": 2},
  "logging": {"format": "json", "level": "debug"}
}`
	if err := os.WriteFile(filepath.Join(root, "gpuasm.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Data.Path != "/opt/isa.json.zst" {
		t.Errorf("Data.Path = %q", cfg.Data.Path)
	}
	if cfg.Server.ArchitectureOverride != "rdna3" {
		t.Errorf("ArchitectureOverride = %q", cfg.Server.ArchitectureOverride)
	}
	if cfg.Server.CompletionMinPrefix != 2 {
		t.Errorf("CompletionMinPrefix = %d, want 2", cfg.Server.CompletionMinPrefix)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v, want json/debug", cfg.Logging)
	}
}

func TestLoadConfigFromTOMLFile(t *testing.T) {
	root := t.TempDir()
	content := `version = 1

[data]
path = "build/isa.json"

[logging]
level = "error"
`
	if err := os.WriteFile(filepath.Join(root, "gpuasm.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Data.Path != "build/isa.json" {
		t.Errorf("Data.Path = %q", cfg.Data.Path)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error", cfg.Logging.Level)
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "gpuasm.json"), []byte(`{"logging": {"level": "warn"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Data.Path != DefaultDataPath {
		t.Errorf("Data.Path = %q, want default %q", cfg.Data.Path, DefaultDataPath)
	}
	if cfg.Server.CompletionMinPrefix != 1 {
		t.Errorf("CompletionMinPrefix = %d, want default 1", cfg.Server.CompletionMinPrefix)
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "gpuasm.json"), []byte("{ invalid }"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(root); err == nil {
		t.Error("LoadConfig() = nil error for invalid JSON")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GPUASM_DATA", "/env/isa.json")
	t.Setenv("GPUASM_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Data.Path != "/env/isa.json" {
		t.Errorf("Data.Path = %q, want env value", cfg.Data.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"defaults valid", func(c *Config) {}, ""},
		{"bad version", func(c *Config) { c.Version = 2 }, "version"},
		{"empty data path", func(c *Config) { c.Data.Path = "" }, "data.path"},
		{"zero min prefix", func(c *Config) { c.Server.CompletionMinPrefix = 0 }, "server.completionMinPrefix"},
		{"bad format", func(c *Config) { c.Logging.Format = "yaml" }, "logging.format"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if _, ok := err.(*ConfigError); !ok {
				t.Errorf("Validate() error type = %T, want *ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantField)
			}
		})
	}
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Field: "version", Message: "unsupported config version"}
	want := "config error in field 'version': unsupported config version"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Data.Path = "build/isa.json.zst"
	cfg.Server.ArchitectureOverride = "CDNA 3"
	cfg.Logging.Level = "debug"

	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Data.Path != cfg.Data.Path {
		t.Errorf("Data.Path = %q, want %q", loaded.Data.Path, cfg.Data.Path)
	}
	if loaded.Server.ArchitectureOverride != cfg.Server.ArchitectureOverride {
		t.Errorf("ArchitectureOverride = %q, want %q", loaded.Server.ArchitectureOverride, cfg.Server.ArchitectureOverride)
	}
	if loaded.Logging.Level != cfg.Logging.Level {
		t.Errorf("Logging.Level = %q, want %q", loaded.Logging.Level, cfg.Logging.Level)
	}
}
