package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"ytdl-server/internal/api"
	"ytdl-server/internal/config"
	"ytdl-server/internal/downloader"
	"ytdl-server/internal/history"
	"ytdl-server/internal/httputil"
	"ytdl-server/internal/jobs"
	"ytdl-server/internal/uploader"
	"ytdl-server/internal/validator"
	"ytdl-server/web"
)

const (
	ShutdownTimeout = 30 * time.Second
	metaTimeout     = 15 * time.Second
)

// Server owns every long-lived component of the process.
type Server struct {
	cfg     *config.Config
	http    *http.Server
	manager *jobs.Manager
	janitor *jobs.Janitor
	history *history.Store
}

func New(cfg *config.Config) (*Server, error) {
	if err := PrepareFilesystem(cfg); err != nil {
		return nil, fmt.Errorf("preparing filesystem: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg.CookieFile, err = config.PrepareCookies(cfg.CookieContents, wd)
	if err != nil {
		return nil, err
	}

	extractor, err := newExtractor(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg}
	registry := jobs.NewRegistry()
	handler := &api.Handler{
		Assets:   web.Files,
		URLs:     validator.New(cfg.AllowedDomains),
		Lister:   downloader.NewLister(extractor, downloader.NewPageScraper(httputil.NewClient(metaTimeout))),
		Reporter: jobs.NewReporter(registry),
	}

	var recorder jobs.Recorder
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("opening history: %w", err)
		}
		s.history = store
		recorder = store
		handler.History = store
		log.Printf(">>> 🗂️ History: %s", cfg.HistoryDB)
	}

	gofile := uploader.NewGofile(httputil.NewClient(0), cfg.GofileToken, cfg.GofileEndpoints, cfg.UploadTimeout())
	s.manager = jobs.NewManager(cfg, registry, extractor, gofile, recorder)
	handler.Jobs = s.manager
	s.janitor = jobs.NewJanitor(registry, s.manager, cfg.TempDir, cfg.CleanupAfter())

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(handler, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func newExtractor(cfg *config.Config) (downloader.Client, error) {
	switch cfg.Extractor {
	case config.ExtractorYtdlp:
		return downloader.NewYtdlp(cfg.YtdlpPath, cfg.CookieFile), nil
	case config.ExtractorNative:
		if cfg.CookieFile != "" {
			log.Println(">>> ⚠️ Cookies are ignored by the native extractor")
		}
		return downloader.NewNative(httputil.NewClient(0)), nil
	default:
		return nil, fmt.Errorf("unsupported extractor %q", cfg.Extractor)
	}
}

// Run serves until ctx ends, then drains requests and waits for running jobs.
func (s *Server) Run(ctx context.Context) error {
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	s.janitor.Start(janitorCtx)

	log.Println(">>> 🏭 YTDL Server Started")
	log.Printf(">>> ⚡ Port: %s | Extractor: %s | Workers: %d", s.cfg.Addr(), s.cfg.Extractor, s.cfg.MaxConcurrentJobs)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println(">>> 🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.Printf(">>> ⚠️ HTTP shutdown: %v", err)
	}
	if err := s.manager.Shutdown(shutdownCtx); err != nil {
		log.Printf(">>> ⚠️ Jobs still running at exit: %v", err)
	}
	s.close()
	return nil
}

func (s *Server) close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.Printf(">>> ⚠️ Closing history: %v", err)
		}
	}
}
