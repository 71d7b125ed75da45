package jobs

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxJanitorInterval = 5 * time.Minute

// ScratchOwner reports the scratch dirs that running jobs still own.
type ScratchOwner interface {
	ScratchDirs() map[string]struct{}
}

// Janitor evicts old terminal records and removes scratch dirs no running
// job owns.
type Janitor struct {
	registry *Registry
	owner    ScratchOwner
	tempDir  string
	ttl      time.Duration
}

func NewJanitor(registry *Registry, owner ScratchOwner, tempDir string, ttl time.Duration) *Janitor {
	return &Janitor{registry: registry, owner: owner, tempDir: tempDir, ttl: ttl}
}

// Start sweeps on a ticker until ctx ends.
func (j *Janitor) Start(ctx context.Context) {
	interval := min(j.ttl, maxJanitorInterval)
	if interval <= 0 {
		interval = maxJanitorInterval
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Sweep()
			}
		}
	}()
}

// Sweep runs one cleanup pass and returns how many records and dirs went.
func (j *Janitor) Sweep() (records, dirs int) {
	records = j.registry.EvictFinished(j.ttl)
	dirs = j.sweepScratch()
	if records > 0 || dirs > 0 {
		log.Printf("🧹 Janitor: evicted %d task(s), removed %d stale dir(s)", records, dirs)
	}
	return records, dirs
}

func (j *Janitor) sweepScratch() int {
	entries, err := os.ReadDir(j.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("❌ Janitor Error: Could not read temp: %v", err)
		}
		return 0
	}

	active := j.owner.ScratchDirs()
	cutoff := time.Now().Add(-j.ttl)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), ScratchPrefix) {
			continue
		}
		path := filepath.Join(j.tempDir, e.Name())
		if _, ok := active[path]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			log.Printf("❌ Janitor Error: Could not remove %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}
