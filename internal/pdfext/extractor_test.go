package pdfext

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pdfinsight/internal/model"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"D:20240115103045Z", "2024-01-15T10:30:45Z"},
		{"D:20240115103045+02'00'", "2024-01-15T10:30:45+02:00"},
		{"D:20240115103045-0500", "2024-01-15T10:30:45-05:00"},
		{"D:20240115", "2024-01-15T00:00:00Z"},
		{"D:2024", "2024-01-01T00:00:00Z"},
		{"garbage", ""},
		{"", ""},
		{"D:00001231", ""},
	}
	for _, tc := range cases {
		if got := ParseDate(tc.in); got != tc.want {
			t.Errorf("ParseDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCountWords(t *testing.T) {
	pages := []string{"one two three", "", "  four\tfive  "}
	if got := countWords(pages); got != 5 {
		t.Fatalf("countWords = %d, want 5", got)
	}
}

func TestExtractMissingFile(t *testing.T) {
	x := &Extractor{Text: true}
	_, err := x.Extract(filepath.Join(t.TempDir(), "absent.pdf"))

	var ee *model.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.Kind != model.ExtractionIO {
		t.Fatalf("expected io kind, got %s", ee.Kind)
	}
}

func TestExtractMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	x := &Extractor{Text: true}
	_, err := x.Extract(path)

	var ee *model.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.Kind != model.ExtractionMalformed {
		t.Fatalf("expected malformed kind, got %s", ee.Kind)
	}
}

func TestAllPagesFailed(t *testing.T) {
	err := allPagesFailed("doc.pdf", &model.Extraction{
		NumPages:    3,
		FailedPages: []int{1, 2, 3},
	})
	var ee *model.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.Kind != model.ExtractionPage {
		t.Fatalf("expected page kind, got %s", ee.Kind)
	}

	// partial failures keep the document
	if err := allPagesFailed("doc.pdf", &model.Extraction{
		NumPages:    3,
		FailedPages: []int{2},
	}); err != nil {
		t.Fatalf("partial failure must not fail the document: %v", err)
	}
	// an empty document has no pages to fail
	if err := allPagesFailed("doc.pdf", &model.Extraction{}); err != nil {
		t.Fatalf("zero pages must not fail the document: %v", err)
	}
}

func TestIsEncryptedErr(t *testing.T) {
	if !isEncryptedErr(errors.New("encrypted file: invalid password")) {
		t.Fatal("expected encrypted error to be detected")
	}
	if isEncryptedErr(errors.New("unexpected EOF")) {
		t.Fatal("EOF should not look encrypted")
	}
	if isEncryptedErr(nil) {
		t.Fatal("nil is not encrypted")
	}
}
