package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pdfinsight/internal/model"
)

// docLockMap hands out one mutex per document id so concurrent embedding
// operations on the same document serialize while different documents
// proceed in parallel.
type docLockMap struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (m *docLockMap) lock(docID int64) func() {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[int64]*sync.Mutex)
	}
	l, ok := m.locks[docID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[docID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// GenerateEmbeddings chunks a document's extracted text, embeds the
// chunks, and records the result. The metadata status is written in two
// steps around the index work: partial before, complete after. A crash in
// between leaves partial, never a false complete.
func (s *Service) GenerateEmbeddings(ctx context.Context, docID int64) (int, error) {
	unlock := s.docLocks.lock(docID)
	defer unlock()

	doc, err := s.Store.GetDocument(ctx, docID)
	if err != nil {
		return 0, err
	}

	texts, err := s.Store.ListTexts(ctx, docID)
	if err != nil {
		return 0, err
	}

	text := ""
	if len(texts) > 0 {
		text, err = s.Layout.ReadText(texts[0].Filename)
		if err != nil {
			return 0, fmt.Errorf("read text artifact for document %d: %w", docID, err)
		}
	}

	if err := s.Store.UpdateEmbeddingStatus(ctx, docID, model.EmbeddingPartial, 0, ""); err != nil {
		return 0, err
	}

	count, err := s.Indexer.IndexDocument(ctx, docID, text)
	if err != nil {
		// status stays partial; CheckConsistency and a rerun can repair.
		s.logf("embed document %d (%s): %v", docID, doc.Filename, err)
		return count, err
	}

	if err := s.Indexer.Index.Save(""); err != nil {
		return count, fmt.Errorf("persist index after embedding document %d: %w", docID, err)
	}

	embeddedAt := time.Now().UTC().Format(time.RFC3339)
	if err := s.Store.UpdateEmbeddingStatus(ctx, docID, model.EmbeddingComplete, count, embeddedAt); err != nil {
		return count, err
	}
	return count, nil
}

// GenerateAllEmbeddings embeds every document whose status is not yet
// complete, continuing past per-document failures. It returns how many
// documents were embedded and the first error encountered, if any.
func (s *Service) GenerateAllEmbeddings(ctx context.Context) (int, error) {
	docs, err := s.Store.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	var firstErr error
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if doc.EmbeddingStatus == model.EmbeddingComplete {
			continue
		}
		if _, err := s.GenerateEmbeddings(ctx, doc.ID); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("document %d (%s): %w", doc.ID, doc.Filename, err)
			}
			continue
		}
		done++
	}
	return done, firstErr
}

// DeleteEmbeddings removes a document's chunks from the index and resets
// its embedding status. Order matters: index first, then metadata, so an
// interruption leaves a partial status rather than metadata claiming
// chunks the index no longer holds being reported as complete.
func (s *Service) DeleteEmbeddings(ctx context.Context, docID int64) error {
	unlock := s.docLocks.lock(docID)
	defer unlock()

	if _, err := s.Store.GetDocument(ctx, docID); err != nil {
		return err
	}

	if err := s.Store.UpdateEmbeddingStatus(ctx, docID, model.EmbeddingPartial, 0, ""); err != nil {
		return err
	}
	s.Indexer.DeleteDocument(docID)
	if err := s.Indexer.Index.Save(""); err != nil {
		return fmt.Errorf("persist index after deleting embeddings for document %d: %w", docID, err)
	}
	return s.Store.UpdateEmbeddingStatus(ctx, docID, model.EmbeddingNone, 0, "")
}

// PurgeDocument removes every trace of a document: index chunks, artifact
// files, then metadata rows. The processed source PDF is kept; purging
// metadata is administrative cleanup, not file deletion.
func (s *Service) PurgeDocument(ctx context.Context, docID int64) error {
	unlock := s.docLocks.lock(docID)
	defer unlock()

	if _, err := s.Store.GetDocument(ctx, docID); err != nil {
		return err
	}

	images, err := s.Store.ListImages(ctx, docID)
	if err != nil {
		return err
	}
	texts, err := s.Store.ListTexts(ctx, docID)
	if err != nil {
		return err
	}

	s.Indexer.DeleteDocument(docID)
	if err := s.Indexer.Index.Save(""); err != nil {
		return fmt.Errorf("persist index during purge of document %d: %w", docID, err)
	}

	imageNames := make([]string, 0, len(images))
	for _, img := range images {
		imageNames = append(imageNames, img.Filename)
	}
	textNames := make([]string, 0, len(texts))
	for _, t := range texts {
		textNames = append(textNames, t.Filename)
	}
	s.Layout.RemoveArtifacts(imageNames, textNames)

	return s.Store.DeleteDocument(ctx, docID)
}

// CheckConsistency compares each document's recorded embedding state with
// the index contents and returns one ConsistencyError per mismatch.
// Nothing is repaired here; regeneration is the repair path.
func (s *Service) CheckConsistency(ctx context.Context) ([]*model.ConsistencyError, error) {
	docs, err := s.Store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var problems []*model.ConsistencyError
	for _, doc := range docs {
		actual := s.Indexer.Count(doc.ID)
		switch doc.EmbeddingStatus {
		case model.EmbeddingComplete:
			if actual != doc.EmbeddingsCount {
				problems = append(problems, &model.ConsistencyError{
					DocID:    doc.ID,
					Status:   doc.EmbeddingStatus,
					Expected: doc.EmbeddingsCount,
					Actual:   actual,
				})
			}
		case model.EmbeddingNone:
			if actual != 0 {
				problems = append(problems, &model.ConsistencyError{
					DocID:    doc.ID,
					Status:   doc.EmbeddingStatus,
					Expected: 0,
					Actual:   actual,
				})
			}
		}
		// partial is by definition in-flight or interrupted; any index
		// content is acceptable until regeneration settles it.
	}
	return problems, nil
}
