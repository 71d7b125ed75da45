package models

import "time"

// HistoryEntry is one finished task as kept by the history store.
type HistoryEntry struct {
	TaskID       string        `json:"task_id"`
	URL          string        `json:"url"`
	Format       string        `json:"format"`
	Quality      string        `json:"quality"`
	Status       Status        `json:"status"`
	DownloadLink string        `json:"download_link,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	FinishedAt   time.Time     `json:"finished_at"`
}
