package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/w-h-a/lio"
	"github.com/w-h-a/lio/retriever"
	"go.uber.org/zap"
)

type processResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
	AssetId  string `json:"asset_id"`
	JobId    string `json:"job_id"`
}

type submitResponse struct {
	JobId  string   `json:"job_id"`
	DocIds []string `json:"doc_ids"`
}

type updateRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// processDocument saves the uploaded file and queues it for ingestion.
func (h *Handler) processDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.options.MaxUpload)

	if err := r.ParseMultipartForm(h.options.MaxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	assetId := r.FormValue("asset_id")
	if len(assetId) == 0 {
		assetId = uuid.NewString()
	}

	if !validAssetId(assetId) {
		writeError(w, http.StatusBadRequest, "asset_id must be a plain name without path separators")
		return
	}

	path, err := h.save(file, assetId, header.Filename)
	if err != nil {
		h.options.Logger.Error("failed to save upload", zap.String("asset_id", assetId), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}

	jobId, err := h.rag.ProcessDocument(r.Context(), path, assetId, map[string]any{"filename": header.Filename})
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, processResponse{
		Message:  "Document processing started",
		FilePath: path,
		AssetId:  assetId,
		JobId:    jobId,
	})
}

// validAssetId accepts ids that are usable as a single file name.
func validAssetId(id string) bool {
	if len(id) == 0 || len(id) > 128 || id == "." || strings.Contains(id, "..") {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00") && filepath.Base(id) == id
}

func (h *Handler) save(src io.Reader, assetId string, filename string) (string, error) {
	if err := os.MkdirAll(h.options.UploadDir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	path := filepath.Join(h.options.UploadDir, assetId+ext)

	rel, err := filepath.Rel(h.options.UploadDir, path)
	if err != nil || rel != filepath.Base(path) {
		return "", fmt.Errorf("upload path %q escapes %q", path, h.options.UploadDir)
	}

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}

	return path, dst.Close()
}

func (h *Handler) submitDocument(w http.ResponseWriter, r *http.Request) {
	var doc lio.Document
	if err := decode(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	h.submit(w, r, []lio.Document{doc})
}

func (h *Handler) submitBatch(w http.ResponseWriter, r *http.Request) {
	var docs []lio.Document
	if err := decode(r, &docs); err != nil {
		writeError(w, http.StatusBadRequest, "expected a json array of documents")
		return
	}

	h.submit(w, r, docs)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, docs []lio.Document) {
	jobId, ids, err := h.rag.SubmitDocuments(r.Context(), docs)
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{JobId: jobId, DocIds: ids})
}

func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	jobId, err := h.rag.UpdateDocument(r.Context(), mux.Vars(r)["id"], req.Content, req.Metadata)
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobId})
}

func (h *Handler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	jobId, err := h.rag.DeleteConversation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobId})
}

func (h *Handler) job(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, ok := h.rag.Job(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", id))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("q")
	if len(strings.TrimSpace(query)) == 0 {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	opts := []retriever.RetrieveOption{}

	if k := q.Get("top_k"); len(k) > 0 {
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		opts = append(opts, retriever.WithTopK(n))
	}

	if c := q.Get("conversation_id"); len(c) > 0 {
		opts = append(opts, retriever.WithConversationId(c))
	}

	snippets, err := h.rag.Search(r.Context(), query, opts...)
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": snippets})
}
