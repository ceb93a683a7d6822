package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pdfinsight/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDocument(filename, hash string) model.Document {
	return model.Document{
		Filename:         filename,
		Title:            "Annual Report",
		Author:           "Finance",
		NumPages:         12,
		TotalWords:       3400,
		TotalImages:      2,
		TotalAttachments: 1,
		FileHash:         hash,
		ProcessedAt:      "2026-08-28T10:00:00Z",
		EmbeddingStatus:  model.EmbeddingNone,
	}
}

func TestInsertAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	images := []model.ImageAsset{
		{Filename: "report_abcd1234_img_1.png", PageNumber: 1, ImageIndex: 1, FileExtension: "png", ExtractedAt: "2026-08-28T10:00:00Z"},
		{Filename: "report_abcd1234_img_2.jpg", PageNumber: 3, ImageIndex: 1, FileExtension: "jpg", ExtractedAt: "2026-08-28T10:00:00Z"},
	}
	texts := []model.TextAsset{
		{Filename: "report_abcd1234_text.txt", WordCount: 3400, ExtractedAt: "2026-08-28T10:00:00Z"},
	}

	id, err := s.InsertDocument(ctx, sampleDocument("report.pdf", "hash-1"), images, texts)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "report.pdf", doc.Filename)
	require.Equal(t, "Annual Report", doc.Title)
	require.Equal(t, model.EmbeddingNone, doc.EmbeddingStatus)

	byName, err := s.GetDocumentByFilename(ctx, "report.pdf")
	require.NoError(t, err)
	require.Equal(t, id, byName.ID)

	byHash, err := s.GetDocumentByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, id, byHash.ID)

	gotImages, err := s.ListImages(ctx, id)
	require.NoError(t, err)
	require.Len(t, gotImages, 2)
	require.Equal(t, "report_abcd1234_img_1.png", gotImages[0].Filename)

	gotTexts, err := s.ListTexts(ctx, id)
	require.NoError(t, err)
	require.Len(t, gotTexts, 1)
	require.Equal(t, 3400, gotTexts[0].WordCount)
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetDocument(ctx, 999)
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.GetDocumentByFilename(ctx, "nope.pdf")
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.GetDocumentByHash(ctx, "nope")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestInsertDocumentRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertDocument(ctx, sampleDocument("a.pdf", "hash-a"), nil, nil)
	require.NoError(t, err)

	_, err = s.InsertDocument(ctx, sampleDocument("a.pdf", "hash-b"), nil, nil)
	require.Error(t, err, "duplicate filename must be rejected")

	_, err = s.InsertDocument(ctx, sampleDocument("b.pdf", "hash-a"), nil, nil)
	require.Error(t, err, "duplicate hash must be rejected")
}

func TestInsertDocumentIsTransactional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertDocument(ctx, sampleDocument("a.pdf", "hash-a"), nil,
		[]model.TextAsset{{Filename: "a_x_text.txt", WordCount: 1, ExtractedAt: "2026-08-28T10:00:00Z"}})
	require.NoError(t, err)

	// the second document reuses an artifact filename, so its text insert
	// fails and the whole insert must roll back.
	_, err = s.InsertDocument(ctx, sampleDocument("b.pdf", "hash-b"), nil,
		[]model.TextAsset{{Filename: "a_x_text.txt", WordCount: 1, ExtractedAt: "2026-08-28T10:00:00Z"}})
	require.Error(t, err)

	_, err = s.GetDocumentByFilename(ctx, "b.pdf")
	require.ErrorIs(t, err, model.ErrNotFound, "document row must not survive a failed transaction")
}

func TestUpdateEmbeddingStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertDocument(ctx, sampleDocument("a.pdf", "hash-a"), nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateEmbeddingStatus(ctx, id, model.EmbeddingPartial, 0, ""))
	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.EmbeddingPartial, doc.EmbeddingStatus)
	require.Empty(t, doc.EmbeddedAt)

	require.NoError(t, s.UpdateEmbeddingStatus(ctx, id, model.EmbeddingComplete, 17, "2026-08-28T11:00:00Z"))
	doc, err = s.GetDocument(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.EmbeddingComplete, doc.EmbeddingStatus)
	require.Equal(t, 17, doc.EmbeddingsCount)
	require.Equal(t, "2026-08-28T11:00:00Z", doc.EmbeddedAt)

	require.ErrorIs(t, s.UpdateEmbeddingStatus(ctx, 999, model.EmbeddingNone, 0, ""), model.ErrNotFound)
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertDocument(ctx, sampleDocument("a.pdf", "hash-a"),
		[]model.ImageAsset{{Filename: "a_x_img_1.png", PageNumber: 1, ImageIndex: 1, FileExtension: "png", ExtractedAt: "2026-08-28T10:00:00Z"}},
		[]model.TextAsset{{Filename: "a_x_text.txt", WordCount: 1, ExtractedAt: "2026-08-28T10:00:00Z"}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, id))

	_, err = s.GetDocument(ctx, id)
	require.ErrorIs(t, err, model.ErrNotFound)
	images, err := s.ListImages(ctx, id)
	require.NoError(t, err)
	require.Empty(t, images)
	texts, err := s.ListTexts(ctx, id)
	require.NoError(t, err)
	require.Empty(t, texts)

	require.ErrorIs(t, s.DeleteDocument(ctx, id), model.ErrNotFound)
}

func TestDeleteDocumentCascadesOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertDocument(ctx, sampleDocument("a.pdf", "hash-a"),
		[]model.ImageAsset{{Filename: "a_x_img_1.png", PageNumber: 1, ImageIndex: 1, FileExtension: "png", ExtractedAt: "2026-08-28T10:00:00Z"}},
		nil)
	require.NoError(t, err)

	// pin the first pooled connection with an open transaction so the
	// delete below has to run on a fresh one; foreign_keys must hold
	// there too, not just on the connection Init happened to touch.
	tx, err := s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	require.NoError(t, s.DeleteDocument(ctx, id))
	require.NoError(t, tx.Rollback())

	images, err := s.ListImages(ctx, id)
	require.NoError(t, err)
	require.Empty(t, images, "cascade must fire on every pooled connection")
}

func TestHexIDExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertDocument(ctx, sampleDocument("a.pdf", "hash-a"), nil,
		[]model.TextAsset{{Filename: "a_deadbeef_text.txt", WordCount: 1, ExtractedAt: "2026-08-28T10:00:00Z"}})
	require.NoError(t, err)

	exists, err := s.HexIDExists(ctx, "deadbeef")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.HexIDExists(ctx, "0badf00d")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, empty.TotalDocuments)
	require.Zero(t, empty.AvgPages)

	docA := sampleDocument("a.pdf", "hash-a")
	docA.NumPages = 10
	docA.TotalWords = 1000
	_, err = s.InsertDocument(ctx, docA, nil, nil)
	require.NoError(t, err)

	docB := sampleDocument("b.pdf", "hash-b")
	docB.NumPages = 20
	docB.TotalWords = 3000
	idB, err := s.InsertDocument(ctx, docB, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.UpdateEmbeddingStatus(ctx, idB, model.EmbeddingComplete, 40, "2026-08-28T11:00:00Z"))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalDocuments)
	require.Equal(t, 30, stats.TotalPages)
	require.Equal(t, 4000, stats.TotalWords)
	require.Equal(t, 40, stats.TotalEmbeddings)
	require.InDelta(t, 15.0, stats.AvgPages, 0.001)
	require.InDelta(t, 2000.0, stats.AvgWords, 0.001)
}
