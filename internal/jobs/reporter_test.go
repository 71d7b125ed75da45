package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"ytdl-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastReporter(reg *Registry) *Reporter {
	r := NewReporter(reg)
	r.interval = 10 * time.Millisecond
	return r
}

func TestReporterDefaultInterval(t *testing.T) {
	assert.Equal(t, time.Second, NewReporter(NewRegistry()).interval)
}

func TestReporterUnknownTask(t *testing.T) {
	var events []any
	err := fastReporter(NewRegistry()).Stream(context.Background(), "nope", func(e any) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, InvalidTaskEvent{Status: "error", Error: "Invalid task id"}, events[0])
}

func TestReporterStopsAtTerminal(t *testing.T) {
	reg := NewRegistry()
	tk := reg.Reset("t1")

	var records []models.Record
	err := fastReporter(reg).Stream(context.Background(), "t1", func(e any) error {
		rec := e.(models.Record)
		records = append(records, rec)

		switch len(records) {
		case 1:
			reg.Update(tk, func(r *models.Record) { r.Status = models.StatusDownloading; r.Progress = 40 })
		case 2:
			reg.Update(tk, func(r *models.Record) { r.Status = models.StatusUploading; r.Progress = 97 })
		case 3:
			reg.Update(tk, func(r *models.Record) { r.Status = models.StatusFinished; r.DownloadLink = "https://gofile.io/d/x" })
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, models.StatusPending, records[0].Status)
	assert.Equal(t, 40, records[1].Progress)
	assert.Equal(t, models.StatusUploading, records[2].Status)
	assert.Equal(t, models.StatusFinished, records[3].Status)
	assert.Equal(t, "https://gofile.io/d/x", records[3].DownloadLink)

	for i := 1; i < len(records); i++ {
		assert.GreaterOrEqual(t, records[i].Progress, records[i-1].Progress)
		assert.GreaterOrEqual(t, records[i].Status.Rank(), records[i-1].Status.Rank())
	}
}

func TestReporterErrorRecordEndsStream(t *testing.T) {
	reg := NewRegistry()
	tk := reg.Reset("t1")
	reg.Update(tk, func(r *models.Record) { r.Status = models.StatusError; r.Error = "Server busy" })

	calls := 0
	err := fastReporter(reg).Stream(context.Background(), "t1", func(e any) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestReporterClientGone(t *testing.T) {
	reg := NewRegistry()
	reg.Reset("t1")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastReporter(reg).Stream(ctx, "t1", func(e any) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestReporterEmitFailure(t *testing.T) {
	reg := NewRegistry()
	reg.Reset("t1")

	broken := errors.New("broken pipe")
	err := fastReporter(reg).Stream(context.Background(), "t1", func(e any) error { return broken })
	assert.ErrorIs(t, err, broken)
}
