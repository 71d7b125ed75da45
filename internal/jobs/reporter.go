package jobs

import (
	"context"
	"time"
)

// ProgressInterval is how often a progress stream samples the registry.
const ProgressInterval = time.Second

// InvalidTaskEvent is sent once when a stream asks for an unknown task.
type InvalidTaskEvent struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Reporter turns registry state into a sequence of progress events.
type Reporter struct {
	registry *Registry
	interval time.Duration
}

func NewReporter(registry *Registry) *Reporter {
	return &Reporter{registry: registry, interval: ProgressInterval}
}

// Stream emits the record for id once per interval until it is terminal,
// the id is unknown, emit fails or ctx ends.
func (r *Reporter) Stream(ctx context.Context, id string, emit func(event any) error) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		rec, ok := r.registry.Get(id)
		if !ok {
			return emit(InvalidTaskEvent{Status: "error", Error: "Invalid task id"})
		}
		if err := emit(rec); err != nil {
			return err
		}
		if rec.Status.IsTerminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
