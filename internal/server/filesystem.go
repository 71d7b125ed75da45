package server

import (
	"os"
	"path/filepath"

	"ytdl-server/internal/config"
)

// PrepareFilesystem creates the scratch root and, when history is enabled,
// the directory holding its database.
func PrepareFilesystem(cfg *config.Config) error {
	dirs := []string{cfg.TempDir}
	if cfg.HistoryDB != "" {
		dirs = append(dirs, filepath.Dir(cfg.HistoryDB))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
