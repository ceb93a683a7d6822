package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pdfinsight/internal/config"
	"pdfinsight/internal/files"
	"pdfinsight/internal/model"
	"pdfinsight/internal/pipeline"
)

const maxUploadBytes = 100 << 20 // 100 MB

type Handler struct {
	Service *pipeline.Service
	Store   model.Store
	Layout  *files.Layout
	Config  *config.Config
	Logger  *log.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload accepts one PDF as multipart form data and places it in the
// pending directory. The file lands under a temporary name first and is
// renamed into place, so the processor never sees a half-written upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing form field \"file\""))
		return
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || !strings.EqualFold(filepath.Ext(name), ".pdf") {
		writeError(w, http.StatusBadRequest, errors.New("only .pdf files are accepted"))
		return
	}

	if err := h.Layout.EnsureLayout(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	dest := filepath.Join(h.Config.PendingDir, name)
	if _, err := os.Stat(dest); err == nil {
		writeError(w, http.StatusConflict, fmt.Errorf("%s is already pending", name))
		return
	}

	tmp := filepath.Join(h.Config.PendingDir, ".upload-"+uuid.NewString())
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
		return
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"filename": name,
		"status":   "pending",
	})
}

// Process runs one ingestion batch over the pending directory.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.ProcessPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Pending lists the files currently waiting in the pending directory.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	if err := h.Layout.EnsureLayout(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	paths, err := h.Layout.ListPending()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pending": names, "count": len(names)})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalDocuments:  stats.TotalDocuments,
		TotalPages:      stats.TotalPages,
		TotalWords:      stats.TotalWords,
		TotalImages:     stats.TotalImages,
		TotalEmbeddings: stats.TotalEmbeddings,
		AvgPages:        stats.AvgPages,
		AvgWords:        stats.AvgWords,
	})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Store.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := h.Store.GetDocument(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	images, err := h.Store.ListImages(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	texts, err := h.Store.ListTexts(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := documentDetailResponse{documentResponse: toDocumentResponse(doc)}
	for _, img := range images {
		resp.Images = append(resp.Images, imageResponse{
			Filename:   img.Filename,
			PageNumber: img.PageNumber,
			ImageIndex: img.ImageIndex,
			Extension:  img.FileExtension,
		})
	}
	for _, t := range texts {
		resp.Texts = append(resp.Texts, textResponse{
			Filename:  t.Filename,
			WordCount: t.WordCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// PurgeDocument removes a document's index entries, artifacts, and rows.
func (h *Handler) PurgeDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	if err := h.Service.PurgeDocument(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "purged": true})
}

func (h *Handler) GenerateEmbeddings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	count, err := h.Service.GenerateEmbeddings(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "embeddings": count})
}

func (h *Handler) DeleteEmbeddings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteEmbeddings(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "embeddings": 0})
}

// Search runs a semantic query over the index. Query parameters: q
// (required), k (result cap, default from config), doc_id (restrict to
// one document).
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter \"q\" is required"))
		return
	}

	k := h.Config.TopK
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("query parameter \"k\" must be a positive integer"))
			return
		}
		k = n
	}

	var filterDocID int64
	if raw := r.URL.Query().Get("doc_id"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("query parameter \"doc_id\" must be a positive integer"))
			return
		}
		filterDocID = n
	}

	hits, err := h.Service.Indexer.Search(r.Context(), query, k, filterDocID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]searchHitResponse, 0, len(hits))
	for _, hit := range hits {
		out = append(out, searchHitResponse{
			DocID:      hit.DocID,
			ChunkIndex: hit.ChunkIndex,
			Text:       hit.Text,
			Size:       hit.Size,
			Score:      hit.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"query": query, "results": out})
}

// Consistency reports documents whose recorded embedding state disagrees
// with the index.
func (h *Handler) Consistency(w http.ResponseWriter, r *http.Request) {
	problems, err := h.Service.CheckConsistency(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]consistencyResponse, 0, len(problems))
	for _, p := range problems {
		out = append(out, consistencyResponse{
			DocID:    p.DocID,
			Status:   p.Status,
			Expected: p.Expected,
			Actual:   p.Actual,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"problems": out, "consistent": len(out) == 0})
}

func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.Config.ImagesDir)
}

func (h *Handler) DownloadText(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.Config.TextDir)
}

// serveArtifact serves one artifact file by name. filepath.Base confines
// the lookup to the artifact directory.
func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, dir string) {
	name := filepath.Base(chi.URLParam(r, "filename"))
	if name == "" || name == "." || name == "/" {
		writeError(w, http.StatusBadRequest, errors.New("filename is required"))
		return
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, fmt.Errorf("artifact %s not found", name))
		return
	}
	http.ServeFile(w, r, path)
}

func (h *Handler) docID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid document id %q", raw))
		return 0, false
	}
	return id, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

type documentResponse struct {
	ID               int64  `json:"id"`
	Filename         string `json:"filename"`
	Title            string `json:"title,omitempty"`
	Author           string `json:"author,omitempty"`
	Subject          string `json:"subject,omitempty"`
	Creator          string `json:"creator,omitempty"`
	Producer         string `json:"producer,omitempty"`
	CreationDate     string `json:"creation_date,omitempty"`
	ModificationDate string `json:"modification_date,omitempty"`
	NumPages         int    `json:"num_pages"`
	TotalWords       int    `json:"total_words"`
	TotalImages      int    `json:"total_images"`
	TotalAttachments int    `json:"total_attachments"`
	FileHash         string `json:"file_hash"`
	ProcessedAt      string `json:"processed_at"`
	EmbeddingStatus  string `json:"embedding_status"`
	EmbeddingsCount  int    `json:"embeddings_count"`
	EmbeddedAt       string `json:"embedded_at,omitempty"`
}

type imageResponse struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	ImageIndex int    `json:"image_index"`
	Extension  string `json:"extension"`
}

type textResponse struct {
	Filename  string `json:"filename"`
	WordCount int    `json:"word_count"`
}

type documentDetailResponse struct {
	documentResponse
	Images []imageResponse `json:"images"`
	Texts  []textResponse  `json:"texts"`
}

type statsResponse struct {
	TotalDocuments  int     `json:"total_documents"`
	TotalPages      int     `json:"total_pages"`
	TotalWords      int     `json:"total_words"`
	TotalImages     int     `json:"total_images"`
	TotalEmbeddings int     `json:"total_embeddings"`
	AvgPages        float64 `json:"avg_pages"`
	AvgWords        float64 `json:"avg_words"`
}

type searchHitResponse struct {
	DocID      int64   `json:"doc_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Size       int     `json:"size"`
	Score      float32 `json:"score"`
}

type consistencyResponse struct {
	DocID    int64  `json:"doc_id"`
	Status   string `json:"status"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

func toDocumentResponse(doc model.Document) documentResponse {
	return documentResponse{
		ID:               doc.ID,
		Filename:         doc.Filename,
		Title:            doc.Title,
		Author:           doc.Author,
		Subject:          doc.Subject,
		Creator:          doc.Creator,
		Producer:         doc.Producer,
		CreationDate:     doc.CreationDate,
		ModificationDate: doc.ModificationDate,
		NumPages:         doc.NumPages,
		TotalWords:       doc.TotalWords,
		TotalImages:      doc.TotalImages,
		TotalAttachments: doc.TotalAttachments,
		FileHash:         doc.FileHash,
		ProcessedAt:      doc.ProcessedAt,
		EmbeddingStatus:  doc.EmbeddingStatus,
		EmbeddingsCount:  doc.EmbeddingsCount,
		EmbeddedAt:       doc.EmbeddedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
