package model

import "context"

type Store interface {
	Init(ctx context.Context) error
	InsertDocument(ctx context.Context, doc Document, images []ImageAsset, texts []TextAsset) (int64, error)
	GetDocument(ctx context.Context, id int64) (Document, error)
	GetDocumentByFilename(ctx context.Context, filename string) (Document, error)
	GetDocumentByHash(ctx context.Context, hash string) (Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	ListImages(ctx context.Context, docID int64) ([]ImageAsset, error)
	ListTexts(ctx context.Context, docID int64) ([]TextAsset, error)
	UpdateEmbeddingStatus(ctx context.Context, docID int64, status string, count int, embeddedAt string) error
	DeleteDocument(ctx context.Context, docID int64) error
	HexIDExists(ctx context.Context, hexID string) (bool, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

type Extractor interface {
	Extract(path string) (*Extraction, error)
}
