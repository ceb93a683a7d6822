// Package files manages the on-disk layout: pending, processed, images,
// and text directories. Artifact writes go through a temporary path and
// are renamed into place so a crash mid-write never leaves a half-written
// file visible under its final name.
package files

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Layout struct {
	PendingDir   string
	ProcessedDir string
	ImagesDir    string
	TextDir      string

	// Logger is optional; if non-nil its Printf method is used for
	// informational messages. When nil the standard library's log package
	// is used.
	Logger *log.Logger
}

// EnsureLayout creates every directory of the layout.
func (l *Layout) EnsureLayout() error {
	for _, dir := range []string{l.PendingDir, l.ProcessedDir, l.ImagesDir, l.TextDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ListPending returns the PDF files currently in the pending directory,
// matched by case-insensitive .pdf suffix, sorted by name for stable
// batch ordering.
func (l *Layout) ListPending() ([]string, error) {
	entries, err := os.ReadDir(l.PendingDir)
	if err != nil {
		return nil, fmt.Errorf("read pending directory %s: %w", l.PendingDir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		out = append(out, filepath.Join(l.PendingDir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ImageName renders the content-addressed image filename.
func ImageName(stem, hexID string, index int, ext string) string {
	return fmt.Sprintf("%s_%s_img_%d.%s", stem, hexID, index, ext)
}

// TextName renders the content-addressed text filename.
func TextName(stem, hexID string) string {
	return fmt.Sprintf("%s_%s_text.txt", stem, hexID)
}

// StagedArtifacts reports what StageArtifacts wrote, for the metadata
// commit and for rollback on failure.
type StagedArtifacts struct {
	ImagePaths []string
	TextPath   string
}

// All returns every staged path.
func (s StagedArtifacts) All() []string {
	if s.TextPath == "" {
		return s.ImagePaths
	}
	return append(append([]string(nil), s.ImagePaths...), s.TextPath)
}

// StageImage writes one image atomically into the images directory and
// returns its final path.
func (l *Layout) StageImage(name string, data []byte) (string, error) {
	path := filepath.Join(l.ImagesDir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("stage image %s: %w", name, err)
	}
	return path, nil
}

// StageText writes the aggregate text file atomically into the text
// directory and returns its final path.
func (l *Layout) StageText(name, content string) (string, error) {
	path := filepath.Join(l.TextDir, name)
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return "", fmt.Errorf("stage text %s: %w", name, err)
	}
	return path, nil
}

// ReadText loads a previously staged text artifact by generated filename.
func (l *Layout) ReadText(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(l.TextDir, filepath.Base(name)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CommitSource moves the original PDF from pending to processed. It is
// called only after the metadata commit succeeded; a crash before the
// move leaves the source in pending where the next run skips it via the
// hash lookup. If the destination name is already taken the source is
// removed instead of overwriting.
func (l *Layout) CommitSource(path string) (string, error) {
	dest := filepath.Join(l.ProcessedDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		l.logf("destination %s exists; removing source instead of overwriting", dest)
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("remove already-processed source %s: %w", path, err)
		}
		return dest, nil
	}
	if err := os.Rename(path, dest); err == nil {
		return dest, nil
	}
	// rename can fail across filesystems; fall back to copy + remove.
	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("move %s to processed: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove source after copy %s: %w", path, err)
	}
	return dest, nil
}

// RollbackArtifacts deletes files written during a failed attempt.
// Best-effort: missing files are ignored, other failures are logged so
// operators can clean up by hand.
func (l *Layout) RollbackArtifacts(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			l.logf("rollback: failed to remove %s: %v", p, err)
		}
	}
}

// RemoveArtifacts deletes committed artifact files by generated name
// during an administrative purge.
func (l *Layout) RemoveArtifacts(imageNames []string, textNames []string) {
	for _, name := range imageNames {
		p := filepath.Join(l.ImagesDir, filepath.Base(name))
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			l.logf("purge: failed to remove %s: %v", p, err)
		}
	}
	for _, name := range textNames {
		p := filepath.Join(l.TextDir, filepath.Base(name))
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			l.logf("purge: failed to remove %s: %v", p, err)
		}
	}
}

// HexIDInUse reports whether any artifact on disk already embeds the
// given hex id. Secondary guard next to the metadata store lookup.
func (l *Layout) HexIDInUse(hexID string) (bool, error) {
	for _, dir := range []string{l.ImagesDir, l.TextDir} {
		matches, err := filepath.Glob(filepath.Join(dir, "*_"+hexID+"_*"))
		if err != nil {
			return false, err
		}
		if len(matches) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Stem returns the source filename without directory or extension, the
// {source_stem} part of the artifact naming convention.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

func (l *Layout) logf(format string, args ...interface{}) {
	if l != nil && l.Logger != nil {
		l.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
