package index

import (
	"path/filepath"
	"testing"
)

func TestVectorIndexSearchOrdering(t *testing.T) {
	idx := NewVectorIndex("")
	mustUpsert(t, idx, 1, 0, "exact", []float32{1, 0, 0})
	mustUpsert(t, idx, 1, 1, "close", []float32{0.9, 0.1, 0})
	mustUpsert(t, idx, 2, 0, "far", []float32{0, 1, 0})

	hits, err := idx.Search([]float32{1, 0, 0}, 3, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Text != "exact" || hits[1].Text != "close" || hits[2].Text != "far" {
		t.Fatalf("unexpected ordering: %q %q %q", hits[0].Text, hits[1].Text, hits[2].Text)
	}
	if hits[0].Score < hits[1].Score || hits[1].Score < hits[2].Score {
		t.Fatal("scores not descending")
	}
}

func TestVectorIndexTieBreakByLabel(t *testing.T) {
	idx := NewVectorIndex("")
	// identical vectors score identically; lower chunk index wins
	mustUpsert(t, idx, 1, 1, "second", []float32{1, 0})
	mustUpsert(t, idx, 1, 0, "first", []float32{1, 0})

	hits, err := idx.Search([]float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits[0].ChunkIndex != 0 || hits[1].ChunkIndex != 1 {
		t.Fatalf("expected ascending chunk index on tie, got %d then %d", hits[0].ChunkIndex, hits[1].ChunkIndex)
	}
}

func TestVectorIndexFilterByDocument(t *testing.T) {
	idx := NewVectorIndex("")
	mustUpsert(t, idx, 1, 0, "doc1", []float32{1, 0})
	mustUpsert(t, idx, 2, 0, "doc2", []float32{1, 0})

	hits, err := idx.Search([]float32{1, 0}, 10, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != 2 {
		t.Fatalf("expected only doc 2, got %+v", hits)
	}
}

func TestVectorIndexDeleteDocument(t *testing.T) {
	idx := NewVectorIndex("")
	mustUpsert(t, idx, 1, 0, "a", []float32{1, 0})
	mustUpsert(t, idx, 1, 1, "b", []float32{0, 1})
	mustUpsert(t, idx, 2, 0, "c", []float32{1, 1})

	if removed := idx.DeleteDocument(1); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if removed := idx.DeleteDocument(1); removed != 0 {
		t.Fatalf("expected repeat delete to remove 0, got %d", removed)
	}
	if n := idx.CountForDocument(2); n != 1 {
		t.Fatalf("expected doc 2 untouched, got %d chunks", n)
	}
}

func TestVectorIndexSkipsDimensionMismatch(t *testing.T) {
	idx := NewVectorIndex("")
	mustUpsert(t, idx, 1, 0, "old-model", []float32{1, 0, 0})
	mustUpsert(t, idx, 2, 0, "new-model", []float32{1, 0})

	hits, err := idx.Search([]float32{1, 0}, 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "new-model" {
		t.Fatalf("expected mismatched vector skipped, got %+v", hits)
	}
}

func TestVectorIndexSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.gob")

	idx := NewVectorIndex(path)
	mustUpsert(t, idx, 7, 0, "persisted", []float32{0.5, 0.5})
	if err := idx.Save(""); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := NewVectorIndex(path)
	if err := loaded.Load(""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("expected 1 chunk after load, got %d", loaded.Len())
	}
	hits, err := loaded.Search([]float32{0.5, 0.5}, 1, 0)
	if err != nil {
		t.Fatalf("search after load: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "persisted" || hits[0].DocID != 7 {
		t.Fatalf("unexpected hit after load: %+v", hits)
	}
}

func TestVectorIndexLoadMissingFile(t *testing.T) {
	idx := NewVectorIndex(filepath.Join(t.TempDir(), "nope.gob"))
	if err := idx.Load(""); err != nil {
		t.Fatalf("load of missing file should be a no-op, got %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("expected empty index, got %d", idx.Len())
	}
}

func TestPackLabelRoundTrip(t *testing.T) {
	docID, ordinal := UnpackLabel(PackLabel(42, 7))
	if docID != 42 || ordinal != 7 {
		t.Fatalf("round trip failed: %d %d", docID, ordinal)
	}
}

func mustUpsert(t *testing.T, idx *VectorIndex, docID int64, ordinal int, text string, vec []float32) {
	t.Helper()
	if err := idx.Upsert(docID, ordinal, text, vec); err != nil {
		t.Fatalf("upsert doc %d chunk %d: %v", docID, ordinal, err)
	}
}
