package models

import "encoding/json"

// Status is the lifecycle phase of a download task.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusUploading   Status = "uploading"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
)

// IsTerminal reports whether no further transitions can happen.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusError
}

// Rank orders statuses along the only allowed direction of travel.
// Both terminal statuses share the highest rank.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusDownloading:
		return 1
	case StatusUploading:
		return 2
	case StatusFinished, StatusError:
		return 3
	default:
		return -1
	}
}

// Record: the mutable state of one task, as streamed to the browser
type Record struct {
	Status       Status `json:"status"`
	Progress     int    `json:"progress"`
	TmpDir       string `json:"-"`
	DownloadLink string `json:"download_link"`
	Error        string `json:"error"`
}

// MarshalJSON always sends every field; unset link and error go out as null.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status       Status  `json:"status"`
		Progress     int     `json:"progress"`
		DownloadLink *string `json:"download_link"`
		Error        *string `json:"error"`
	}{
		Status:       r.Status,
		Progress:     r.Progress,
		DownloadLink: nullable(r.DownloadLink),
		Error:        nullable(r.Error),
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type DownloadRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
	TaskID  string `json:"task_id"`
}

type FormatsRequest struct {
	URL string `json:"url"`
}
