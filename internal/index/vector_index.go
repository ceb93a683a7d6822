package index

import (
	"encoding/gob"
	"errors"
	"log"
	"math"
	"os"
	"sort"
	"sync"

	"pdfinsight/internal/model"
)

// maxChunksPerDoc bounds the ordinal part of a packed label.
const maxChunksPerDoc = 1 << 16

// ErrTooManyChunks is returned when a document chunks into more entries
// than a packed label can address.
var ErrTooManyChunks = errors.New("too many chunks for one document")

// ChunkRecord is the payload stored next to each vector.
type ChunkRecord struct {
	DocID   int64
	Ordinal int
	Text    string
	Size    int // rune count
}

// VectorIndex is an in-memory vector store keyed by packed
// (doc id, chunk index) labels, persisted as a gob snapshot. Brute-force
// cosine similarity is plenty at this corpus size.
type VectorIndex struct {
	path string

	mu      sync.RWMutex
	vectors map[uint64][]float32
	chunks  map[uint64]ChunkRecord

	// Logger is optional; if non-nil its Printf method is used for
	// informational messages, otherwise the standard log package.
	Logger *log.Logger
}

func NewVectorIndex(path string) *VectorIndex {
	return &VectorIndex{
		path:    path,
		vectors: make(map[uint64][]float32),
		chunks:  make(map[uint64]ChunkRecord),
	}
}

// PackLabel folds a document id and chunk ordinal into one index label.
func PackLabel(docID int64, ordinal int) uint64 {
	return uint64(docID)<<16 | uint64(ordinal)
}

// UnpackLabel reverses PackLabel.
func UnpackLabel(label uint64) (docID int64, ordinal int) {
	return int64(label >> 16), int(label & 0xFFFF)
}

func (i *VectorIndex) Upsert(docID int64, ordinal int, text string, vector []float32) error {
	if len(vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if ordinal < 0 || ordinal >= maxChunksPerDoc {
		return ErrTooManyChunks
	}

	copied := make([]float32, len(vector))
	copy(copied, vector)

	label := PackLabel(docID, ordinal)
	i.mu.Lock()
	defer i.mu.Unlock()
	i.vectors[label] = copied
	i.chunks[label] = ChunkRecord{DocID: docID, Ordinal: ordinal, Text: text, Size: runeLen(text)}
	return nil
}

// DeleteDocument removes every chunk belonging to docID and reports how
// many were removed. Zero existing chunks is a no-op, not an error.
func (i *VectorIndex) DeleteDocument(docID int64) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for label, rec := range i.chunks {
		if rec.DocID != docID {
			continue
		}
		delete(i.chunks, label)
		delete(i.vectors, label)
		removed++
	}
	return removed
}

// CountForDocument returns the number of chunks held for docID.
func (i *VectorIndex) CountForDocument(docID int64) int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	n := 0
	for _, rec := range i.chunks {
		if rec.DocID == docID {
			n++
		}
	}
	return n
}

// Len returns the total number of stored chunks.
func (i *VectorIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// Search returns the k nearest chunks by cosine similarity, descending,
// ties broken by lower label (lower chunk index). filterDocID restricts
// results to one document when positive.
func (i *VectorIndex) Search(vector []float32, k int, filterDocID int64) ([]model.ChunkHit, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if k <= 0 {
		return []model.ChunkHit{}, nil
	}

	type scored struct {
		label uint64
		score float32
	}

	i.mu.RLock()
	scoredItems := make([]scored, 0, len(i.vectors))
	for label, cand := range i.vectors {
		rec := i.chunks[label]
		if filterDocID > 0 && rec.DocID != filterDocID {
			continue
		}
		if len(cand) != len(vector) {
			// stale entries from a different embedding model; skip but
			// surface in the log so operators notice.
			i.logf("dimension mismatch: label=%d candidate_len=%d query_len=%d", label, len(cand), len(vector))
			continue
		}
		scoredItems = append(scoredItems, scored{label: label, score: cosineSimilarity(vector, cand)})
	}
	i.mu.RUnlock()

	sort.Slice(scoredItems, func(a, b int) bool {
		if scoredItems[a].score == scoredItems[b].score {
			return scoredItems[a].label < scoredItems[b].label
		}
		return scoredItems[a].score > scoredItems[b].score
	})
	if len(scoredItems) > k {
		scoredItems = scoredItems[:k]
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	hits := make([]model.ChunkHit, 0, len(scoredItems))
	for _, item := range scoredItems {
		rec := i.chunks[item.label]
		hits = append(hits, model.ChunkHit{
			DocID:      rec.DocID,
			ChunkIndex: rec.Ordinal,
			Text:       rec.Text,
			Size:       rec.Size,
			Score:      item.score,
		})
	}
	return hits, nil
}

// snapshot is the gob-persisted form of the index.
type snapshot struct {
	Vectors map[uint64][]float32
	Chunks  map[uint64]ChunkRecord
}

// Save writes the index atomically: encode to a temp file, fsync, rename.
func (i *VectorIndex) Save(path string) error {
	if path == "" {
		path = i.path
	}
	if path == "" {
		return errors.New("path is required")
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	i.mu.RLock()
	snap := snapshot{Vectors: i.vectors, Chunks: i.chunks}
	err = gob.NewEncoder(file).Encode(snap)
	i.mu.RUnlock()
	if err != nil {
		closeErr := file.Close()
		_ = os.Remove(tmpPath)
		return errors.Join(err, closeErr)
	}
	if err := file.Sync(); err != nil {
		closeErr := file.Close()
		_ = os.Remove(tmpPath)
		return errors.Join(err, closeErr)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Load replaces the in-memory state from a saved snapshot. A missing
// file leaves the index empty, which is the fresh-install case.
func (i *VectorIndex) Load(path string) error {
	if path == "" {
		path = i.path
	}
	if path == "" {
		return errors.New("path is required")
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = file.Close() }()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return err
	}
	if snap.Vectors == nil {
		snap.Vectors = make(map[uint64][]float32)
	}
	if snap.Chunks == nil {
		snap.Chunks = make(map[uint64]ChunkRecord)
	}

	i.mu.Lock()
	i.vectors = snap.Vectors
	i.chunks = snap.Chunks
	i.mu.Unlock()
	return nil
}

func (i *VectorIndex) Close() error {
	return nil
}

func (i *VectorIndex) logf(format string, args ...interface{}) {
	if i != nil && i.Logger != nil {
		i.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func cosineSimilarity(a, b []float32) float32 {
	var dot float32
	var magA float32
	var magB float32

	for idx := range a {
		dot += a[idx] * b[idx]
		magA += a[idx] * a[idx]
		magB += b[idx] * b[idx]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / float32(math.Sqrt(float64(magA*magB)))
}
