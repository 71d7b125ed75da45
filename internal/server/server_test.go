package server

import (
	"path/filepath"
	"testing"

	"ytdl-server/internal/config"
	"ytdl-server/internal/downloader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractor(t *testing.T) {
	cfg := config.Default()

	c, err := newExtractor(cfg)
	require.NoError(t, err)
	assert.IsType(t, &downloader.YtdlpClient{}, c)

	cfg.Extractor = config.ExtractorNative
	c, err = newExtractor(cfg)
	require.NoError(t, err)
	assert.IsType(t, &downloader.NativeClient{}, c)

	cfg.Extractor = "nope"
	_, err = newExtractor(cfg)
	assert.Error(t, err)
}

func TestNewWiresHistory(t *testing.T) {
	t.Chdir(t.TempDir())
	root := t.TempDir()
	cfg := config.Default()
	cfg.TempDir = filepath.Join(root, "temp")
	cfg.HistoryDB = filepath.Join(root, "data", "history.db")

	s, err := New(cfg)
	require.NoError(t, err)
	defer s.close()

	assert.NotNil(t, s.history)
	assert.FileExists(t, cfg.HistoryDB)
	assert.Equal(t, ":5000", s.http.Addr)
	assert.DirExists(t, cfg.TempDir)
}
