// Package pipeline drives document processing: batch ingestion of pending
// PDFs into artifacts plus metadata, and embedding generation into the
// vector index. It owns the cross-store ordering rules that keep the
// metadata store and the index consistent.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"pdfinsight/internal/files"
	"pdfinsight/internal/ident"
	"pdfinsight/internal/index"
	"pdfinsight/internal/model"
)

// Service wires the ingestion and embedding pipelines together.
type Service struct {
	Store     model.Store
	Layout    *files.Layout
	Extractor model.Extractor
	Indexer   *index.Indexer

	// HexIDLength is the artifact id width; zero means ident.DefaultLength.
	HexIDLength int

	// MoveAfterProcessing moves committed sources from pending to
	// processed. Disabled, sources stay in pending and are skipped on the
	// next run by the hash lookup.
	MoveAfterProcessing bool

	Logger *log.Logger

	docLocks docLockMap
}

// ProcessPending runs one ingestion batch over every PDF currently in the
// pending directory. Files are processed independently: a failure on one
// is recorded in the report and the batch continues. Only a cancelled
// context stops the batch early, at a file boundary.
func (s *Service) ProcessPending(ctx context.Context) (*Report, error) {
	if err := s.Layout.EnsureLayout(); err != nil {
		return nil, err
	}

	paths, err := s.Layout.ListPending()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(s.processOne(ctx, path))
	}
	return report, nil
}

// processOne takes a single file through the full state sequence:
// hash, duplicate check, extract, stage artifacts, commit metadata,
// move the source.
func (s *Service) processOne(ctx context.Context, path string) FileReport {
	name := filepath.Base(path)

	hash, err := hashFile(path)
	if err != nil {
		return FileReport{Filename: name, Outcome: OutcomeFailedExtraction, Stage: "hash", Err: err.Error()}
	}

	// content hash is the primary duplicate test; the filename check is a
	// secondary guard for a same-named but different file, which would
	// otherwise trip the unique constraint at commit.
	if _, err := s.Store.GetDocumentByHash(ctx, hash); err == nil {
		s.logf("skip %s: content already processed", name)
		s.finishDuplicate(path)
		return FileReport{Filename: name, Outcome: OutcomeSkippedDuplicate}
	} else if !errors.Is(err, model.ErrNotFound) {
		return FileReport{Filename: name, Outcome: OutcomeFailedCommit, Stage: "dedup", Err: err.Error()}
	}
	if _, err := s.Store.GetDocumentByFilename(ctx, name); err == nil {
		s.logf("skip %s: filename already processed with different content", name)
		return FileReport{Filename: name, Outcome: OutcomeSkippedDuplicate}
	} else if !errors.Is(err, model.ErrNotFound) {
		return FileReport{Filename: name, Outcome: OutcomeFailedCommit, Stage: "dedup", Err: err.Error()}
	}

	extraction, err := s.Extractor.Extract(path)
	if err != nil {
		s.logf("extract %s: %v", name, err)
		return FileReport{Filename: name, Outcome: OutcomeFailedExtraction, Stage: "extract", Err: err.Error()}
	}

	hexID, err := ident.NewChecked(s.HexIDLength, func(id string) (bool, error) {
		if taken, err := s.Store.HexIDExists(ctx, id); err != nil || taken {
			return taken, err
		}
		return s.Layout.HexIDInUse(id)
	})
	if err != nil {
		return FileReport{Filename: name, Outcome: OutcomeFailedCommit, Stage: "naming", Err: err.Error()}
	}

	staged, doc, imageAssets, textAssets, err := s.stageArtifacts(path, hexID, extraction)
	if err != nil {
		s.Layout.RollbackArtifacts(staged.All())
		return FileReport{Filename: name, Outcome: OutcomeFailedCommit, Stage: "stage", Err: err.Error()}
	}
	doc.FileHash = hash

	if _, err := s.Store.InsertDocument(ctx, doc, imageAssets, textAssets); err != nil {
		s.Layout.RollbackArtifacts(staged.All())
		return FileReport{Filename: name, Outcome: OutcomeFailedCommit, Stage: "commit", Err: err.Error()}
	}

	if s.MoveAfterProcessing {
		if _, err := s.Layout.CommitSource(path); err != nil {
			// metadata is committed; the document is fully processed. The
			// leftover source will be recovered as a duplicate next run.
			s.logf("move %s after commit: %v", name, err)
			return FileReport{Filename: name, Outcome: OutcomeCommittedNotMoved, Stage: "move", Err: err.Error()}
		}
	}

	return FileReport{Filename: name, Outcome: OutcomeMoved}
}

// stageArtifacts writes image and text artifacts for one extraction and
// builds the metadata rows referencing them.
func (s *Service) stageArtifacts(path, hexID string, extraction *model.Extraction) (files.StagedArtifacts, model.Document, []model.ImageAsset, []model.TextAsset, error) {
	var staged files.StagedArtifacts

	stem := files.Stem(path)
	now := time.Now().UTC().Format(time.RFC3339)

	doc := model.Document{
		Filename:         filepath.Base(path),
		Title:            extraction.Title,
		Author:           extraction.Author,
		Subject:          extraction.Subject,
		Creator:          extraction.Creator,
		Producer:         extraction.Producer,
		CreationDate:     extraction.CreationDate,
		ModificationDate: extraction.ModificationDate,
		NumPages:         extraction.NumPages,
		TotalWords:       extraction.TotalWords,
		TotalImages:      len(extraction.Images),
		TotalAttachments: extraction.AttachmentCount,
		ProcessedAt:      now,
		EmbeddingStatus:  model.EmbeddingNone,
	}

	var imageAssets []model.ImageAsset
	for n, img := range extraction.Images {
		imgName := files.ImageName(stem, hexID, n+1, img.Ext)
		imgPath, err := s.Layout.StageImage(imgName, img.Data)
		if err != nil {
			return staged, doc, nil, nil, err
		}
		staged.ImagePaths = append(staged.ImagePaths, imgPath)
		imageAssets = append(imageAssets, model.ImageAsset{
			Filename:      imgName,
			PageNumber:    img.Page,
			ImageIndex:    img.Index,
			FileExtension: img.Ext,
			ExtractedAt:   now,
		})
	}

	var textAssets []model.TextAsset
	if text := extraction.Text(); text != "" {
		textName := files.TextName(stem, hexID)
		textPath, err := s.Layout.StageText(textName, text)
		if err != nil {
			return staged, doc, nil, nil, err
		}
		staged.TextPath = textPath
		textAssets = append(textAssets, model.TextAsset{
			Filename:    textName,
			WordCount:   extraction.TotalWords,
			ExtractedAt: now,
		})
	}

	return staged, doc, imageAssets, textAssets, nil
}

// finishDuplicate moves a pending file whose content is already
// processed into the processed directory, so reruns do not keep
// re-hashing it. This is the recovery path for a crash between the
// metadata commit and the move: the pending copy may be the only copy
// of the source, so it is moved, never deleted. CommitSource removes
// the pending copy only when the destination already holds one.
// Best-effort.
func (s *Service) finishDuplicate(path string) {
	if !s.MoveAfterProcessing {
		return
	}
	if _, err := s.Layout.CommitSource(path); err != nil {
		s.logf("move duplicate %s to processed: %v", path, err)
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Service) logf(format string, args ...interface{}) {
	if s != nil && s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
