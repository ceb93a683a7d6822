package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDerivesPathsFromDataDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/srv/pdfinsight"
	cfg.DeriveDirs()

	for name, path := range map[string]string{
		"pending":   cfg.PendingDir,
		"processed": cfg.ProcessedDir,
		"images":    cfg.ImagesDir,
		"text":      cfg.TextDir,
		"database":  cfg.DatabasePath,
		"index":     cfg.IndexPath,
	} {
		if !strings.HasPrefix(path, "/srv/pdfinsight") {
			t.Fatalf("%s path %q not under data dir", name, path)
		}
	}
}

func TestDeriveDirsKeepsExplicitPaths(t *testing.T) {
	cfg := Default()
	cfg.PendingDir = "/inbox"
	cfg.DeriveDirs()
	if cfg.PendingDir != "/inbox" {
		t.Fatalf("explicit pending dir was overwritten: %s", cfg.PendingDir)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"odd hex length", func(c *Config) { c.HexIDLength = 7 }, false},
		{"hex length too short", func(c *Config) { c.HexIDLength = 2 }, false},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, false},
		{"overlap at chunk size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, false},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, false},
		{"zero batch size", func(c *Config) { c.EmbedBatchSize = 0 }, false},
		{"empty listen addr", func(c *Config) { c.ListenAddr = " " }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.DeriveDirs()
			tc.mutate(&cfg)
			err := Validate(&cfg)
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadAppliesTOMLFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "pdfinsight.toml")
	content := `
data_dir = "` + filepath.Join(dir, "data") + `"
chunk_size = 300
chunk_overlap = 30
embed_model = "custom-embed"
allowed_origins = ["http://example.test"]
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(Options{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChunkSize != 300 || cfg.ChunkOverlap != 30 {
		t.Fatalf("chunking not applied: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.EmbedModel != "custom-embed" {
		t.Fatalf("embed model not applied: %s", cfg.EmbedModel)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://example.test" {
		t.Fatalf("allowed origins not applied: %v", cfg.AllowedOrigins)
	}
	if cfg.PendingDir != filepath.Join(dir, "data", "pending") {
		t.Fatalf("pending dir not derived from file data dir: %s", cfg.PendingDir)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "pdfinsight.toml")
	if err := os.WriteFile(configPath, []byte(`embed_model = "from-file"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PDFINSIGHT_EMBED_MODEL", "from-env")
	t.Setenv("MISTRAL_API_KEY", "sk-test")

	cfg, err := Load(Options{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EmbedModel != "from-env" {
		t.Fatalf("env should win over file, got %s", cfg.EmbedModel)
	}
	if cfg.MistralAPIKey != "sk-test" {
		t.Fatalf("api key not picked up from env: %q", cfg.MistralAPIKey)
	}
}

func TestLoadOverridesWinOverEverything(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PDFINSIGHT_LISTEN_ADDR", "127.0.0.1:9999")

	cfg, err := Load(Options{
		ConfigPath: filepath.Join(dir, "missing.toml"),
		Overrides: &Overrides{
			DataDir:    filepath.Join(dir, "cli-data"),
			ListenAddr: "127.0.0.1:7777",
		},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7777" {
		t.Fatalf("CLI override should win over env, got %s", cfg.ListenAddr)
	}
	if cfg.PendingDir != filepath.Join(dir, "cli-data", "pending") {
		t.Fatalf("derived paths should follow overridden data dir, got %s", cfg.PendingDir)
	}
}

func TestLoadMissingConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load(Options{ConfigPath: filepath.Join(t.TempDir(), "absent.toml")})
	if err != nil {
		t.Fatalf("load without config file: %v", err)
	}
	def := Default()
	if cfg.ChunkSize != def.ChunkSize || cfg.EmbedModel != def.EmbedModel {
		t.Fatalf("defaults not used: %+v", cfg)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "pdfinsight.toml")
	if err := os.WriteFile(configPath, []byte(`chunk_size = [`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(Options{ConfigPath: configPath}); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}
