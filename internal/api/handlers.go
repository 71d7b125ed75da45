package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"ytdl-server/internal/downloader"
	"ytdl-server/internal/jobs"
	"ytdl-server/internal/models"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

// FormatLister resolves a URL into its format catalog.
type FormatLister interface {
	List(ctx context.Context, url string) (*models.FormatCatalog, error)
}

// JobStarter schedules a download job.
type JobStarter interface {
	Start(req models.DownloadRequest) (jobs.Ticket, error)
}

// HistoryReader lists finished tasks, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

// URLChecker gates which URLs reach the extractor.
type URLChecker interface {
	Allowed(raw string) bool
}

type Handler struct {
	Assets   fs.FS
	URLs     URLChecker
	Lister   FormatLister
	Jobs     JobStarter
	Reporter *jobs.Reporter
	// History is nil when the history store is disabled.
	History HistoryReader
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf(">>> ⚠️ Writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unexpected content type %q", ct)
	}
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(h.Assets, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(page)
}

func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	var req models.FormatsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.URL = strings.TrimSpace(req.URL)

	if !h.URLs.Allowed(req.URL) {
		writeError(w, http.StatusBadRequest, "Invalid or unsupported URL.")
		return
	}

	catalog, err := h.Lister.List(r.Context(), req.URL)
	if err != nil {
		var fe *downloader.FetchError
		if !errors.As(err, &fe) {
			err = &downloader.FetchError{Err: err}
		}
		log.Printf(">>> ❌ Formats for %s: %v", req.URL, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.URL = strings.TrimSpace(req.URL)

	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "Missing URL")
		return
	}
	if req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "Missing task id")
		return
	}
	if !h.URLs.Allowed(req.URL) {
		writeError(w, http.StatusBadRequest, "Invalid or unsupported URL.")
		return
	}

	log.Printf(">>> 📩 Download request: task=%s format=%s quality=%s url=%s", req.TaskID, req.Format, req.Quality, req.URL)
	if _, err := h.Jobs.Start(req); err != nil {
		log.Printf(">>> ⚠️ Task %s rejected: %v", req.TaskID, err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"task_id": req.TaskID,
		"status":  "started",
	})
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	err := h.Reporter.Stream(r.Context(), taskID, func(event any) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf(">>> ⚠️ Progress stream for %s ended: %v", taskID, err)
	}
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeError(w, http.StatusNotFound, "History is disabled")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.History.Recent(r.Context(), limit)
	if err != nil {
		log.Printf(">>> ❌ Reading history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
