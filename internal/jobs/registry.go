package jobs

import (
	"sync"
	"time"

	"ytdl-server/internal/models"
)

// Ticket binds a job to the record generation it was started with.
type Ticket struct {
	ID  string
	gen uint64
}

type entry struct {
	rec     models.Record
	gen     uint64
	updated time.Time
}

// Registry holds one record per task id. Records are copied on the way in
// and out so readers never see a half-applied update.
type Registry struct {
	mu      sync.Mutex
	records map[string]*entry
	gen     uint64
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*entry),
		now:     time.Now,
	}
}

// Reset replaces any record under id with a fresh pending one. Tickets issued
// for the previous record stop working.
func (r *Registry) Reset(id string) Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.records[id] = &entry{
		rec:     models.Record{Status: models.StatusPending},
		gen:     r.gen,
		updated: r.now(),
	}
	return Ticket{ID: id, gen: r.gen}
}

func (r *Registry) Get(id string) (models.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.records[id]
	if !ok {
		return models.Record{}, false
	}
	return e.rec, true
}

// Update applies fn to a copy of the record and stores the result. It
// reports false when the ticket is stale, the record is already terminal or
// fn would move the status backwards. Progress never decreases; a finished
// record always reads 100.
func (r *Registry) Update(t Ticket, fn func(*models.Record)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.records[t.ID]
	if !ok || e.gen != t.gen || e.rec.Status.IsTerminal() {
		return false
	}

	next := e.rec
	fn(&next)

	if next.Status.Rank() < e.rec.Status.Rank() {
		return false
	}
	next.Progress = min(max(next.Progress, e.rec.Progress, 0), 100)
	if next.Status == models.StatusFinished {
		next.Progress = 100
	}

	e.rec = next
	e.updated = r.now()
	return true
}

// Snapshot copies every record.
func (r *Registry) Snapshot() map[string]models.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]models.Record, len(r.records))
	for id, e := range r.records {
		out[id] = e.rec
	}
	return out
}

// EvictFinished drops terminal records untouched for longer than olderThan
// and returns how many went.
func (r *Registry) EvictFinished(olderThan time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-olderThan)
	evicted := 0
	for id, e := range r.records {
		if e.rec.Status.IsTerminal() && e.updated.Before(cutoff) {
			delete(r.records, id)
			evicted++
		}
	}
	return evicted
}
