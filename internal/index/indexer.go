package index

import (
	"context"
	"fmt"
	"log"

	"pdfinsight/internal/model"
)

// Indexer chunks document text, embeds the chunks through the configured
// provider, and maintains the vector index. Re-indexing a document is
// idempotent: existing chunks are removed before the new ones go in, so
// a repeat run converges to the same index state.
type Indexer struct {
	Index    *VectorIndex
	Embedder model.Embedder

	// Model is the embedding model identifier sent to the provider.
	Model string

	// BatchSize caps how many chunks are sent per embedding request.
	BatchSize int

	ChunkSize    int
	ChunkOverlap int

	Logger *log.Logger
}

// IndexDocument replaces every indexed chunk of docID with fresh chunks
// of text and returns how many chunks were indexed. An empty text simply
// clears the document from the index.
func (ix *Indexer) IndexDocument(ctx context.Context, docID int64, text string) (int, error) {
	chunks := Chunk(text, ix.ChunkSize, ix.ChunkOverlap)
	if len(chunks) > maxChunksPerDoc {
		return 0, fmt.Errorf("document %d: %d chunks: %w", docID, len(chunks), ErrTooManyChunks)
	}

	// delete-then-insert so a re-run never leaves stale chunks behind.
	if removed := ix.Index.DeleteDocument(docID); removed > 0 {
		ix.logf("reindex: removed %d existing chunks for document %d", removed, docID)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	batchSize := ix.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	ordinal := 0
	for start := 0; start < len(chunks); start += batchSize {
		if err := ctx.Err(); err != nil {
			return ordinal, err
		}
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, err := ix.Embedder.Embed(ctx, ix.Model, batch)
		if err != nil {
			return ordinal, fmt.Errorf("embed batch starting at chunk %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return ordinal, fmt.Errorf("embed batch starting at chunk %d: got %d vectors for %d inputs", start, len(vectors), len(batch))
		}

		for i, vec := range vectors {
			if err := ix.Index.Upsert(docID, ordinal, batch[i], vec); err != nil {
				return ordinal, fmt.Errorf("index chunk %d of document %d: %w", ordinal, docID, err)
			}
			ordinal++
		}
	}
	return ordinal, nil
}

// DeleteDocument removes every indexed chunk of docID and reports how
// many were removed.
func (ix *Indexer) DeleteDocument(docID int64) int {
	return ix.Index.DeleteDocument(docID)
}

// Count returns the number of chunks indexed for docID.
func (ix *Indexer) Count(docID int64) int {
	return ix.Index.CountForDocument(docID)
}

// Search embeds the query and returns the top-k most similar chunks,
// optionally restricted to one document when filterDocID is positive.
func (ix *Indexer) Search(ctx context.Context, query string, k int, filterDocID int64) ([]model.ChunkHit, error) {
	vectors, err := ix.Embedder.Embed(ctx, ix.Model, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors for one input", len(vectors))
	}
	return ix.Index.Search(vectors[0], k, filterDocID)
}

func (ix *Indexer) logf(format string, args ...interface{}) {
	if ix != nil && ix.Logger != nil {
		ix.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
