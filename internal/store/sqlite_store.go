package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"pdfinsight/internal/model"
)

type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	// pragmas go through the DSN so the driver applies them to every
	// pooled connection; an ExecContext would only reach the one
	// connection it happens to run on, and foreign_keys is
	// per-connection in SQLite. Cascade deletes of images/texts ride on
	// the foreign keys below.
	dsn := "file:" + s.path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	schema := `
CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  filename TEXT NOT NULL UNIQUE,
  title TEXT,
  author TEXT,
  subject TEXT,
  creator TEXT,
  producer TEXT,
  creation_date TEXT,
  modification_date TEXT,
  num_pages INTEGER NOT NULL DEFAULT 0,
  total_words INTEGER NOT NULL DEFAULT 0,
  total_images INTEGER NOT NULL DEFAULT 0,
  total_attachments INTEGER NOT NULL DEFAULT 0,
  file_hash TEXT NOT NULL UNIQUE,
  processed_at TEXT NOT NULL,
  embedding_status TEXT NOT NULL DEFAULT 'none',
  embeddings_count INTEGER NOT NULL DEFAULT 0,
  embedded_at TEXT
);

CREATE TABLE IF NOT EXISTS images (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  pdf_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  filename TEXT NOT NULL UNIQUE,
  page_number INTEGER NOT NULL,
  image_index INTEGER NOT NULL,
  file_extension TEXT NOT NULL DEFAULT '',
  extracted_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS texts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  pdf_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  filename TEXT NOT NULL UNIQUE,
  word_count INTEGER NOT NULL DEFAULT 0,
  extracted_at TEXT NOT NULL
);

-- dedup lookups run once per candidate file, so both hash and filename
-- paths need an index; filename and file_hash already have implicit
-- indexes via UNIQUE, the child tables need their FK columns covered.
CREATE INDEX IF NOT EXISTS idx_images_pdf_id ON images(pdf_id);
CREATE INDEX IF NOT EXISTS idx_texts_pdf_id ON texts(pdf_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// InsertDocument inserts the document row and all of its image/text rows
// in one transaction: either the whole extraction result becomes visible
// or none of it does.
func (s *SQLiteStore) InsertDocument(ctx context.Context, doc model.Document, images []model.ImageAsset, texts []model.TextAsset) (int64, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO documents(
		   filename, title, author, subject, creator, producer,
		   creation_date, modification_date, num_pages, total_words,
		   total_images, total_attachments, file_hash, processed_at,
		   embedding_status, embeddings_count, embedded_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)`,
		doc.Filename,
		nullIfEmpty(doc.Title),
		nullIfEmpty(doc.Author),
		nullIfEmpty(doc.Subject),
		nullIfEmpty(doc.Creator),
		nullIfEmpty(doc.Producer),
		nullIfEmpty(doc.CreationDate),
		nullIfEmpty(doc.ModificationDate),
		doc.NumPages,
		doc.TotalWords,
		doc.TotalImages,
		doc.TotalAttachments,
		doc.FileHash,
		doc.ProcessedAt,
		defaultIfEmpty(doc.EmbeddingStatus, model.EmbeddingNone),
	)
	if err != nil {
		return 0, err
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(images) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO images(pdf_id, filename, page_number, image_index, file_extension, extracted_at)
			 VALUES(?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		for _, img := range images {
			if _, err := stmt.ExecContext(ctx, docID, img.Filename, img.PageNumber, img.ImageIndex, img.FileExtension, img.ExtractedAt); err != nil {
				_ = stmt.Close()
				return 0, err
			}
		}
		if err := stmt.Close(); err != nil {
			return 0, err
		}
	}

	if len(texts) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO texts(pdf_id, filename, word_count, extracted_at)
			 VALUES(?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		for _, txt := range texts {
			if _, err := stmt.ExecContext(ctx, docID, txt.Filename, txt.WordCount, txt.ExtractedAt); err != nil {
				_ = stmt.Close()
				return 0, err
			}
		}
		if err := stmt.Close(); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return docID, nil
}

const documentColumns = `id, filename, title, author, subject, creator, producer,
	creation_date, modification_date, num_pages, total_words, total_images,
	total_attachments, file_hash, processed_at, embedding_status,
	embeddings_count, embedded_at`

func (s *SQLiteStore) GetDocument(ctx context.Context, id int64) (model.Document, error) {
	return s.getDocumentWhere(ctx, "id = ?", id)
}

func (s *SQLiteStore) GetDocumentByFilename(ctx context.Context, filename string) (model.Document, error) {
	return s.getDocumentWhere(ctx, "filename = ?", filename)
}

func (s *SQLiteStore) GetDocumentByHash(ctx context.Context, hash string) (model.Document, error) {
	return s.getDocumentWhere(ctx, "file_hash = ?", hash)
}

func (s *SQLiteStore) getDocumentWhere(ctx context.Context, where string, arg any) (model.Document, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return model.Document{}, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE `+where, arg)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Document{}, model.ErrNotFound
		}
		return model.Document{}, err
	}
	return doc, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY processed_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) ListImages(ctx context.Context, docID int64) ([]model.ImageAsset, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, pdf_id, filename, page_number, image_index, file_extension, extracted_at
		 FROM images WHERE pdf_id = ? ORDER BY page_number, image_index`, docID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ImageAsset
	for rows.Next() {
		var img model.ImageAsset
		if err := rows.Scan(&img.ID, &img.PDFID, &img.Filename, &img.PageNumber, &img.ImageIndex, &img.FileExtension, &img.ExtractedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListTexts(ctx context.Context, docID int64) ([]model.TextAsset, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, pdf_id, filename, word_count, extracted_at
		 FROM texts WHERE pdf_id = ? ORDER BY id`, docID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.TextAsset
	for rows.Next() {
		var txt model.TextAsset
		if err := rows.Scan(&txt.ID, &txt.PDFID, &txt.Filename, &txt.WordCount, &txt.ExtractedAt); err != nil {
			return nil, err
		}
		out = append(out, txt)
	}
	return out, rows.Err()
}

// UpdateEmbeddingStatus is a single-row atomic update used for the
// none -> partial -> complete transitions and the reset to none.
func (s *SQLiteStore) UpdateEmbeddingStatus(ctx context.Context, docID int64, status string, count int, embeddedAt string) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`UPDATE documents SET embedding_status = ?, embeddings_count = ?, embedded_at = ? WHERE id = ?`,
		status, count, nullIfEmpty(embeddedAt), docID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteDocument removes the document row; images and texts go with it
// via the ON DELETE CASCADE foreign keys. On-disk files and index
// entries are the caller's responsibility.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, docID int64) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// HexIDExists reports whether any recorded artifact filename embeds the
// given hex id. Used as the collision predicate for id generation.
func (s *SQLiteStore) HexIDExists(ctx context.Context, hexID string) (bool, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return false, err
	}

	pattern := "%_" + hexID + "_%"
	var n int
	err = db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM images WHERE filename LIKE ?) +
		        (SELECT COUNT(*) FROM texts WHERE filename LIKE ?)`,
		pattern, pattern).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return model.Stats{}, err
	}

	var st model.Stats
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(num_pages), 0),
		        COALESCE(SUM(total_words), 0),
		        COALESCE(SUM(total_images), 0),
		        COALESCE(SUM(embeddings_count), 0)
		 FROM documents`).Scan(&st.TotalDocuments, &st.TotalPages, &st.TotalWords, &st.TotalImages, &st.TotalEmbeddings)
	if err != nil {
		return model.Stats{}, err
	}
	if st.TotalDocuments > 0 {
		st.AvgPages = float64(st.TotalPages) / float64(st.TotalDocuments)
		st.AvgWords = float64(st.TotalWords) / float64(st.TotalDocuments)
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) ensureDB(ctx context.Context) (*sql.DB, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite db not initialized")
	}
	return s.db, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (model.Document, error) {
	var doc model.Document
	var title, author, subject, creator, producer sql.NullString
	var creationDate, modificationDate, embeddedAt sql.NullString
	if err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&title,
		&author,
		&subject,
		&creator,
		&producer,
		&creationDate,
		&modificationDate,
		&doc.NumPages,
		&doc.TotalWords,
		&doc.TotalImages,
		&doc.TotalAttachments,
		&doc.FileHash,
		&doc.ProcessedAt,
		&doc.EmbeddingStatus,
		&doc.EmbeddingsCount,
		&embeddedAt,
	); err != nil {
		return model.Document{}, err
	}
	doc.Title = title.String
	doc.Author = author.String
	doc.Subject = subject.String
	doc.Creator = creator.String
	doc.Producer = producer.String
	doc.CreationDate = creationDate.String
	doc.ModificationDate = modificationDate.String
	doc.EmbeddedAt = embeddedAt.String
	return doc, nil
}

func nullIfEmpty(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func defaultIfEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
