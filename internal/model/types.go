package model

import "strings"

// Embedding status lifecycle for a document. "partial" marks an index that
// is being (re)built; a crash between the vector index write and the
// metadata update must never leave a false "complete".
const (
	EmbeddingNone     = "none"
	EmbeddingPartial  = "partial"
	EmbeddingComplete = "complete"
)

// Document is one row per uniquely identified source PDF.
type Document struct {
	ID               int64
	Filename         string // original filename, unique
	Title            string
	Author           string
	Subject          string
	Creator          string
	Producer         string
	CreationDate     string
	ModificationDate string
	NumPages         int
	TotalWords       int
	TotalImages      int
	TotalAttachments int
	FileHash         string // sha256 of the source bytes, unique
	ProcessedAt      string // RFC 3339
	EmbeddingStatus  string // none, partial, complete
	EmbeddingsCount  int
	EmbeddedAt       string
}

// ImageAsset references an extracted image file on disk.
type ImageAsset struct {
	ID            int64
	PDFID         int64
	Filename      string // content-addressed, globally unique
	PageNumber    int    // 1-based
	ImageIndex    int    // index within the page
	FileExtension string
	ExtractedAt   string
}

// TextAsset references the aggregate extracted text file for a document.
type TextAsset struct {
	ID          int64
	PDFID       int64
	Filename    string
	WordCount   int
	ExtractedAt string
}

// PageImage is a raw image pulled out of one page during extraction.
type PageImage struct {
	Page  int // 1-based source page
	Index int // 1-based index within that page
	Ext   string
	Data  []byte
}

// Extraction is the structured result of parsing one PDF.
type Extraction struct {
	Title            string
	Author           string
	Subject          string
	Creator          string
	Producer         string
	CreationDate     string
	ModificationDate string
	NumPages         int
	Pages            []string // one entry per page, empty string allowed
	FailedPages      []int    // 1-based pages that could not be parsed
	Images           []PageImage
	TotalWords       int
	AttachmentCount  int
}

// Text returns the concatenated page text with pages separated by newlines.
func (e *Extraction) Text() string {
	var b strings.Builder
	for _, page := range e.Pages {
		if page == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(page)
	}
	return b.String()
}

// ChunkHit is one search result from the embedding index.
type ChunkHit struct {
	DocID      int64
	ChunkIndex int
	Text       string
	Size       int // chunk size in runes
	Score      float32
}

// Stats aggregates the metadata store for reporting.
type Stats struct {
	TotalDocuments  int
	TotalPages      int
	TotalWords      int
	TotalImages     int
	TotalEmbeddings int
	AvgPages        float64
	AvgWords        float64
}
