package cli

import (
	"context"
	"log"
	"os"

	"pdfinsight/internal/config"
	"pdfinsight/internal/files"
	"pdfinsight/internal/index"
	"pdfinsight/internal/mistral"
	"pdfinsight/internal/pdfext"
	"pdfinsight/internal/pipeline"
	"pdfinsight/internal/store"
)

// App bundles the wired components every command needs. Built per
// invocation from the resolved config; Close releases the store.
type App struct {
	Cfg     *config.Config
	Store   *store.SQLiteStore
	Layout  *files.Layout
	Index   *index.VectorIndex
	Indexer *index.Indexer
	Service *pipeline.Service
	Logger  *log.Logger
}

func buildApp(ctx context.Context) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if globalFlags.Quiet {
		logger = log.New(discard{}, "", 0)
	}

	st := store.NewSQLiteStore(cfg.DatabasePath)
	if err := st.Init(ctx); err != nil {
		return nil, err
	}

	layout := &files.Layout{
		PendingDir:   cfg.PendingDir,
		ProcessedDir: cfg.ProcessedDir,
		ImagesDir:    cfg.ImagesDir,
		TextDir:      cfg.TextDir,
		Logger:       logger,
	}

	vectorIndex := index.NewVectorIndex(cfg.IndexPath)
	vectorIndex.Logger = logger
	if err := vectorIndex.Load(""); err != nil {
		_ = st.Close()
		return nil, err
	}

	indexer := &index.Indexer{
		Index:        vectorIndex,
		Embedder:     mistral.NewClient(cfg.MistralBaseURL, cfg.MistralAPIKey),
		Model:        cfg.EmbedModel,
		BatchSize:    cfg.EmbedBatchSize,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Logger:       logger,
	}

	svc := &pipeline.Service{
		Store:  st,
		Layout: layout,
		Extractor: &pdfext.Extractor{
			Images: cfg.ExtractImages,
			Text:   cfg.ExtractText,
			Logger: logger,
		},
		Indexer:             indexer,
		HexIDLength:         cfg.HexIDLength,
		MoveAfterProcessing: cfg.MoveAfterProcessing,
		Logger:              logger,
	}

	return &App{
		Cfg:     cfg,
		Store:   st,
		Layout:  layout,
		Index:   vectorIndex,
		Indexer: indexer,
		Service: svc,
		Logger:  logger,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Printf("close store: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	var overrides *config.Overrides
	if globalFlags.DataDir != "" || globalFlags.ListenAddr != "" {
		overrides = &config.Overrides{
			DataDir:    globalFlags.DataDir,
			ListenAddr: globalFlags.ListenAddr,
		}
	}
	return config.Load(config.Options{
		ConfigPath: globalFlags.ConfigPath,
		Overrides:  overrides,
	})
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
