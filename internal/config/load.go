package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Options for loading config. ConfigPath is relative to the working
// directory unless absolute.
type Options struct {
	ConfigPath   string
	SkipValidate bool
	// Overrides apply last (flags > env > file > defaults). Nil means no
	// CLI overrides.
	Overrides *Overrides
}

// Overrides holds CLI flag values that take precedence over env/file/
// defaults. Only non-nil fields are applied.
type Overrides struct {
	DataDir       string
	ListenAddr    string
	MistralAPIKey string
}

// fileConfig mirrors Config for TOML decoding; absent keys leave the
// defaults untouched.
type fileConfig struct {
	DataDir        *string  `toml:"data_dir"`
	PendingDir     *string  `toml:"pending_dir"`
	ProcessedDir   *string  `toml:"processed_dir"`
	ImagesDir      *string  `toml:"images_dir"`
	TextDir        *string  `toml:"text_dir"`
	DatabasePath   *string  `toml:"database_path"`
	IndexPath      *string  `toml:"index_path"`
	HexIDLength    *int     `toml:"hex_id_length"`
	ChunkSize      *int     `toml:"chunk_size"`
	ChunkOverlap   *int     `toml:"chunk_overlap"`
	EmbedBatchSize *int     `toml:"embed_batch_size"`
	TopK           *int     `toml:"top_k"`
	MistralBaseURL *string  `toml:"mistral_base_url"`
	EmbedModel     *string  `toml:"embed_model"`
	ListenAddr     *string  `toml:"listen_addr"`
	AllowedOrigins []string `toml:"allowed_origins"`

	ExtractImages       *bool `toml:"extract_images"`
	ExtractText         *bool `toml:"extract_text"`
	MoveAfterProcessing *bool `toml:"move_after_processing"`
}

// Load builds config with precedence: defaults → pdfinsight.toml →
// dotenv/env → CLI overrides.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	// Local dotenv files for developer ergonomics. Explicit env wins.
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			if err := godotenv.Load(name); err != nil {
				return nil, fmt.Errorf("load %s: %w", name, err)
			}
		}
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = "pdfinsight.toml"
	}
	if !filepath.IsAbs(configPath) {
		if wd, err := os.Getwd(); err == nil {
			configPath = filepath.Join(wd, configPath)
		}
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot read config file %s: %w", configPath, err)
		}
	} else {
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("malformed TOML in %s: %w", configPath, err)
		}
		applyFile(&cfg, &fc)
	}

	applyEnv(&cfg)

	if opts.Overrides != nil {
		applyOverrides(&cfg, opts.Overrides)
	}

	cfg.DeriveDirs()
	if !opts.SkipValidate {
		if err := Validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func applyFile(cfg *Config, fc *fileConfig) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.PendingDir, fc.PendingDir)
	setString(&cfg.ProcessedDir, fc.ProcessedDir)
	setString(&cfg.ImagesDir, fc.ImagesDir)
	setString(&cfg.TextDir, fc.TextDir)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.IndexPath, fc.IndexPath)
	setInt(&cfg.HexIDLength, fc.HexIDLength)
	setInt(&cfg.ChunkSize, fc.ChunkSize)
	setInt(&cfg.ChunkOverlap, fc.ChunkOverlap)
	setInt(&cfg.EmbedBatchSize, fc.EmbedBatchSize)
	setInt(&cfg.TopK, fc.TopK)
	setString(&cfg.MistralBaseURL, fc.MistralBaseURL)
	setString(&cfg.EmbedModel, fc.EmbedModel)
	setString(&cfg.ListenAddr, fc.ListenAddr)
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = append([]string(nil), fc.AllowedOrigins...)
	}
	setBool(&cfg.ExtractImages, fc.ExtractImages)
	setBool(&cfg.ExtractText, fc.ExtractText)
	setBool(&cfg.MoveAfterProcessing, fc.MoveAfterProcessing)
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
		// derived paths should follow the overridden root unless the file
		// pinned them explicitly; simplest is to re-derive from scratch.
		cfg.PendingDir = ""
		cfg.ProcessedDir = ""
		cfg.ImagesDir = ""
		cfg.TextDir = ""
		cfg.DatabasePath = ""
		cfg.IndexPath = ""
	}
	if o.ListenAddr != "" {
		cfg.ListenAddr = o.ListenAddr
	}
	if o.MistralAPIKey != "" {
		cfg.MistralAPIKey = o.MistralAPIKey
	}
}
