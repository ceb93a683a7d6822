package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config carries every path and tunable explicitly so tests can run
// isolated instances against temporary directories. Nothing in the
// pipeline or stores reads ambient process state.
type Config struct {
	DataDir      string
	PendingDir   string
	ProcessedDir string
	ImagesDir    string
	TextDir      string
	DatabasePath string
	IndexPath    string

	HexIDLength    int
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	TopK           int

	MistralAPIKey  string
	MistralBaseURL string
	EmbedModel     string

	ListenAddr     string
	AllowedOrigins []string

	ExtractImages       bool
	ExtractText         bool
	MoveAfterProcessing bool
}

func Default() Config {
	return Config{
		DataDir:        filepath.Join(".", "data"),
		HexIDLength:    8,
		ChunkSize:      500,
		ChunkOverlap:   50,
		EmbedBatchSize: 32,
		TopK:           10,
		MistralBaseURL: "https://api.mistral.ai",
		EmbedModel:     "mistral-embed",
		ListenAddr:     "127.0.0.1:8080",
		AllowedOrigins: []string{"http://localhost:8080", "http://127.0.0.1:8080"},

		ExtractImages:       true,
		ExtractText:         true,
		MoveAfterProcessing: true,
	}
}

// DeriveDirs fills every unset path from DataDir. Explicitly configured
// paths are left alone.
func (c *Config) DeriveDirs() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(".", "data")
	}
	if c.PendingDir == "" {
		c.PendingDir = filepath.Join(c.DataDir, "pending")
	}
	if c.ProcessedDir == "" {
		c.ProcessedDir = filepath.Join(c.DataDir, "processed")
	}
	if c.ImagesDir == "" {
		c.ImagesDir = filepath.Join(c.DataDir, "images")
	}
	if c.TextDir == "" {
		c.TextDir = filepath.Join(c.DataDir, "text")
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "pdfinsight.db")
	}
	if c.IndexPath == "" {
		c.IndexPath = filepath.Join(c.DataDir, "vectors.gob")
	}
}

// Validate returns an error suitable for exit code 2 when the config is
// unusable. A missing API key is allowed here: ingestion does not need
// it, and the embedder reports its own failure when called without one.
func Validate(c *Config) error {
	if c.HexIDLength < 4 || c.HexIDLength > 32 {
		return fmt.Errorf("hex_id_length must be between 4 and 32, got %d", c.HexIDLength)
	}
	if c.HexIDLength%2 != 0 {
		return fmt.Errorf("hex_id_length must be even, got %d", c.HexIDLength)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("embed_batch_size must be positive, got %d", c.EmbedBatchSize)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen_addr is required")
	}
	return nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("MISTRAL_API_KEY"); v != "" {
		c.MistralAPIKey = v
	}
	if v := os.Getenv("PDFINSIGHT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("PDFINSIGHT_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("PDFINSIGHT_EMBED_MODEL"); v != "" {
		c.EmbedModel = v
	}
	if v := os.Getenv("PDFINSIGHT_MISTRAL_BASE_URL"); v != "" {
		c.MistralBaseURL = v
	}
	if v := os.Getenv("PDFINSIGHT_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkSize = n
		}
	}
	if v := os.Getenv("PDFINSIGHT_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkOverlap = n
		}
	}
}
