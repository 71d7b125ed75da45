package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"ytdl-server/internal/config"
	"ytdl-server/internal/downloader"
	"ytdl-server/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Browser-facing failure messages.
var (
	ErrServerBusy   = errors.New("Server busy")
	ErrNoOutput     = errors.New("No output file found.")
	ErrUploadFailed = errors.New("Upload failed: no link returned from Gofile")

	ErrShuttingDown = errors.New("Server is shutting down")
)

const (
	// ScratchPrefix names every per-job scratch directory under TempDir.
	ScratchPrefix = "ydl_"

	progressFetched   = 95
	progressUploading = 97
)

// Uploader publishes a finished file and returns its public link.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Recorder keeps an audit trail of terminal tasks.
type Recorder interface {
	Record(ctx context.Context, entry models.HistoryEntry) error
}

// fetchError carries an extractor failure; its message is browser-safe.
type fetchError struct {
	err error
}

func (e *fetchError) Error() string { return downloader.Describe(e.err) }
func (e *fetchError) Unwrap() error { return e.err }

type Manager struct {
	cfg      *config.Config
	registry *Registry
	client   downloader.Client
	uploader Uploader
	history  Recorder

	queue chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
	// dirs holds the scratch dir of every job that has not finished,
	// including jobs whose record was replaced.
	dirs map[string]struct{}
}

// NewManager wires a job runner. history may be nil.
func NewManager(cfg *config.Config, registry *Registry, client downloader.Client, uploader Uploader, history Recorder) *Manager {
	return &Manager{
		cfg:      cfg,
		registry: registry,
		client:   client,
		uploader: uploader,
		history:  history,
		queue:    make(chan struct{}, cfg.MaxConcurrentJobs),
		dirs:     make(map[string]struct{}),
	}
}

// Start resets the record for req.TaskID and runs the job in the
// background. The record exists by the time Start returns. After Shutdown
// it fails with ErrShuttingDown and leaves the registry alone.
func (m *Manager) Start(req models.DownloadRequest) (Ticket, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Ticket{}, ErrShuttingDown
	}
	m.wg.Add(1)
	m.mu.Unlock()

	t := m.registry.Reset(req.TaskID)
	go m.run(t, req)

	return t, nil
}

// Shutdown stops accepting jobs and blocks until every started job is
// terminal or ctx ends.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run(t Ticket, req models.DownloadRequest) {
	defer m.wg.Done()
	started := time.Now()

	// Rate Limiting
	select {
	case m.queue <- struct{}{}:
		defer func() { <-m.queue }()
	case <-time.After(m.cfg.QueueWait()):
		m.finish(t, req, started, "", ErrServerBusy)
		return
	}

	dir := filepath.Join(m.cfg.TempDir, ScratchPrefix+uuid.NewString())
	m.claimDir(dir)
	link, err := m.execute(t, req, dir)

	if rmErr := os.RemoveAll(dir); rmErr != nil {
		log.Printf(">>> ⚠️ Task %s: could not remove %s: %v", t.ID, dir, rmErr)
	}
	m.releaseDir(dir)
	m.finish(t, req, started, link, err)
}

func (m *Manager) claimDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[dir] = struct{}{}
}

func (m *Manager) releaseDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dirs, dir)
}

// ScratchDirs lists the scratch dirs owned by running jobs.
func (m *Manager) ScratchDirs() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]struct{}, len(m.dirs))
	for d := range m.dirs {
		out[d] = struct{}{}
	}
	return out
}

func (m *Manager) execute(t Ticket, req models.DownloadRequest, dir string) (link string, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf(">>> 🔥 Task %s panicked: %v\n%s", t.ID, p, debug.Stack())
			link, err = "", fmt.Errorf("internal error: %v", p)
		}
	}()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}
	m.registry.Update(t, func(r *models.Record) {
		r.Status = models.StatusDownloading
		r.TmpDir = dir
	})

	sel := downloader.NewSelection(req.Format, req.Quality)
	log.Printf(">>> ⬇️ Task %s: downloading %s (%s)", t.ID, req.URL, sel.FormatSpec())

	onProgress := func(p downloader.Progress) {
		pct := min(p.Percent(), progressFetched)
		if p.Finished {
			pct = progressFetched
		}
		m.registry.Update(t, func(r *models.Record) { r.Progress = pct })
	}

	fetchReq := downloader.Request{URL: req.URL, Dir: dir, Selection: sel}
	if err := m.client.Fetch(context.Background(), fetchReq, onProgress); err != nil {
		return "", &fetchError{err: err}
	}

	path, size, err := largestFile(dir)
	if err != nil {
		return "", err
	}
	log.Printf(">>> 📁 Task %s: output %s (%s)", t.ID, filepath.Base(path), humanize.Bytes(uint64(size)))

	m.registry.Update(t, func(r *models.Record) {
		r.Status = models.StatusUploading
		r.Progress = progressUploading
	})

	link, err = m.uploader.Upload(context.Background(), path)
	if err != nil || link == "" {
		log.Printf(">>> ❌ Task %s: upload error: %v", t.ID, err)
		return "", ErrUploadFailed
	}
	return link, nil
}

// finish publishes the terminal state. It runs after the scratch dir is gone.
func (m *Manager) finish(t Ticket, req models.DownloadRequest, started time.Time, link string, err error) {
	applied := m.registry.Update(t, func(r *models.Record) {
		if err != nil {
			r.Status = models.StatusError
			r.Error = err.Error()
			return
		}
		r.Status = models.StatusFinished
		r.DownloadLink = link
	})

	entry := models.HistoryEntry{
		TaskID:       t.ID,
		URL:          req.URL,
		Format:       req.Format,
		Quality:      req.Quality,
		Status:       models.StatusFinished,
		DownloadLink: link,
		Duration:     time.Since(started),
		FinishedAt:   time.Now(),
	}
	if err != nil {
		entry.Status = models.StatusError
		entry.Error = err.Error()
		log.Printf(">>> ❌ Task %s failed after %s: %v", t.ID, entry.Duration.Round(time.Millisecond), err)
	} else {
		log.Printf(">>> ✅ Task %s finished in %s: %s", t.ID, entry.Duration.Round(time.Millisecond), link)
	}
	if !applied {
		log.Printf(">>> ⚠️ Task %s: record was replaced, result dropped", t.ID)
	}

	if m.history != nil {
		if herr := m.history.Record(context.Background(), entry); herr != nil {
			log.Printf(">>> ⚠️ Task %s: history write failed: %v", t.ID, herr)
		}
	}
}

// largestFile picks the biggest regular file directly inside dir.
func largestFile(dir string) (string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("reading scratch dir: %w", err)
	}

	var best string
	var bestSize int64 = -1
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = filepath.Join(dir, e.Name()), info.Size()
		}
	}
	if best == "" {
		return "", 0, ErrNoOutput
	}
	return best, bestSize, nil
}
