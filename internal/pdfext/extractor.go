// Package pdfext parses PDF files: per-page text, document metadata,
// embedded images, and attachment counts. Parsing failures are typed so
// the ingestion pipeline can record them per file and keep the batch
// moving.
package pdfext

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdfinsight/internal/model"
)

// Extractor parses PDFs from disk. Zero value extracts text only.
type Extractor struct {
	// Images enables embedded image extraction.
	Images bool
	// Text enables per-page text extraction.
	Text bool

	Logger *log.Logger
}

// Extract parses the PDF at path. Text extraction failures on individual
// pages are recorded in FailedPages rather than failing the document; the
// document itself fails only when it cannot be opened, is encrypted, or
// not a single page is readable.
func (x *Extractor) Extract(path string) (ext *model.Extraction, err error) {
	// the underlying parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			ext = nil
			err = &model.ExtractionError{
				Kind: model.ExtractionMalformed,
				Path: path,
				Err:  fmt.Errorf("parser panic: %v", r),
			}
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		kind := model.ExtractionMalformed
		if errors.Is(err, os.ErrNotExist) {
			kind = model.ExtractionIO
		}
		if isEncryptedErr(err) {
			kind = model.ExtractionEncrypted
		}
		return nil, &model.ExtractionError{Kind: kind, Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	result := &model.Extraction{
		NumPages: reader.NumPage(),
	}
	readInfo(reader, result)

	if x.Text {
		x.extractText(path, reader, result)
		if pageErr := allPagesFailed(path, result); pageErr != nil {
			return nil, pageErr
		}
	}
	result.TotalWords = countWords(result.Pages)

	if x.Images {
		images, imgErr := extractImages(path)
		if imgErr != nil {
			// image extraction is best-effort on top of a readable file
			x.logf("extract %s: images: %v", path, imgErr)
		}
		result.Images = images
	}

	if n, attErr := countAttachments(path); attErr != nil {
		x.logf("extract %s: attachments: %v", path, attErr)
	} else {
		result.AttachmentCount = n
	}

	return result, nil
}

func (x *Extractor) extractText(path string, reader *pdf.Reader, result *model.Extraction) {
	fonts := make(map[string]*pdf.Font)
	result.Pages = make([]string, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		text, pageErr := extractPage(reader, i, fonts)
		if pageErr != nil {
			result.FailedPages = append(result.FailedPages, i)
			x.logf("extract %s: page %d: %v", path, i, pageErr)
			continue
		}
		result.Pages[i-1] = strings.TrimSpace(text)
	}
}

// allPagesFailed promotes page-level failures to a document failure when
// not a single page was readable. Partial results are fine, but a
// document where every page failed has nothing worth committing.
func allPagesFailed(path string, result *model.Extraction) error {
	if result.NumPages == 0 || len(result.FailedPages) != result.NumPages {
		return nil
	}
	return &model.ExtractionError{
		Kind: model.ExtractionPage,
		Path: path,
		Err:  fmt.Errorf("no readable pages out of %d", result.NumPages),
	}
}

// extractPage isolates the per-page panic recovery so one corrupt page
// cannot take down the rest of the document.
func extractPage(reader *pdf.Reader, pageNum int, fonts map[string]*pdf.Font) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", errors.New("page is null")
	}
	return page.GetPlainText(fonts)
}

// readInfo copies the document information dictionary into the result.
// Missing or malformed entries stay empty.
func readInfo(reader *pdf.Reader, result *model.Extraction) {
	defer func() { _ = recover() }()

	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return
	}
	result.Title = strings.TrimSpace(info.Key("Title").Text())
	result.Author = strings.TrimSpace(info.Key("Author").Text())
	result.Subject = strings.TrimSpace(info.Key("Subject").Text())
	result.Creator = strings.TrimSpace(info.Key("Creator").Text())
	result.Producer = strings.TrimSpace(info.Key("Producer").Text())
	result.CreationDate = ParseDate(info.Key("CreationDate").Text())
	result.ModificationDate = ParseDate(info.Key("ModDate").Text())
}

func extractImages(path string) ([]model.PageImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed

	pageImages, err := api.ExtractImagesRaw(f, nil, conf)
	if err != nil {
		return nil, err
	}

	var out []model.PageImage
	for _, byObjNr := range pageImages {
		index := 0
		for _, img := range byObjNr {
			if img.Reader == nil {
				continue
			}
			data, readErr := io.ReadAll(img)
			if readErr != nil {
				continue
			}
			index++
			ext := strings.TrimPrefix(strings.ToLower(img.FileType), ".")
			if ext == "" {
				ext = "png"
			}
			out = append(out, model.PageImage{
				Page:  img.PageNr,
				Index: index,
				Ext:   ext,
				Data:  data,
			})
		}
	}
	return out, nil
}

func countAttachments(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed

	names, err := api.Attachments(f, conf)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

func countWords(pages []string) int {
	total := 0
	for _, page := range pages {
		total += len(strings.Fields(page))
	}
	return total
}

func isEncryptedErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypted") || strings.Contains(msg, "password")
}

// ParseDate converts a PDF date string (D:YYYYMMDDHHmmSS with optional
// timezone suffix) to RFC 3339. Unparseable input returns the empty
// string.
func ParseDate(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 4 {
		return ""
	}

	digits := func(start, width, fallback int) int {
		if len(s) < start+width {
			return fallback
		}
		n, err := strconv.Atoi(s[start : start+width])
		if err != nil {
			return fallback
		}
		return n
	}

	year := digits(0, 4, 0)
	if year == 0 {
		return ""
	}
	month := clamp(digits(4, 2, 1), 1, 12)
	day := clamp(digits(6, 2, 1), 1, 31)
	hour := clamp(digits(8, 2, 0), 0, 23)
	minute := clamp(digits(10, 2, 0), 0, 59)
	second := clamp(digits(12, 2, 0), 0, 59)

	loc := time.UTC
	if len(s) > 14 {
		if tz := parseTimezone(s[14:]); tz != nil {
			loc = tz
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc).Format(time.RFC3339)
}

// parseTimezone handles the +HH'mm', -HH'mm', and Z suffix forms.
func parseTimezone(s string) *time.Location {
	if s == "" {
		return nil
	}
	if s[0] == 'Z' {
		return time.UTC
	}
	if s[0] != '+' && s[0] != '-' {
		return nil
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	s = strings.ReplaceAll(s[1:], "'", "")
	if len(s) < 2 {
		return nil
	}
	hours, err := strconv.Atoi(s[:2])
	if err != nil {
		return nil
	}
	minutes := 0
	if len(s) >= 4 {
		if m, err := strconv.Atoi(s[2:4]); err == nil {
			minutes = m
		}
	}
	offset := sign * (hours*3600 + minutes*60)
	return time.FixedZone("", offset)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func (x *Extractor) logf(format string, args ...interface{}) {
	if x != nil && x.Logger != nil {
		x.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
