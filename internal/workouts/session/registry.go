package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"
)

type snapshotReader interface {
	Snapshot(ctx context.Context, userID string) (*logs.Snapshot, error)
}

// Registry keeps the current session of every user. Asking for another
// date replaces the session, nothing is carried over.
type Registry struct {
	program *program.Program
	reader  snapshotReader
	store   workoutStore
	metrics *metrics.Manager

	mu       sync.Mutex
	sessions map[string]*Session
	retired  []*Session
}

func NewRegistry(
	p *program.Program,
	reader snapshotReader,
	store workoutStore,
	metricsManager *metrics.Manager,
) *Registry {
	return &Registry{
		program:  p,
		reader:   reader,
		store:    store,
		metrics:  metricsManager,
		sessions: make(map[string]*Session),
	}
}

// For returns the user's session for the date, loading it from the stored
// logs when there is none yet or it belongs to another date.
func (r *Registry) For(ctx context.Context, userID string, date time.Time) (*Session, error) {
	key := logs.DateKey(date)

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok && s.Date() == key {
		return s, nil
	}

	snapshot, err := r.reader.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read logs snapshot: %w", err)
	}

	s, err := New(Params{
		Program: r.program,
		UserID:  userID,
		Date:    date,
		History: snapshot.Workouts,
		Store:   r.store,
		Metrics: r.metrics,
	})
	if err != nil {
		return nil, err
	}

	// replaced sessions are kept only while their writes are in flight
	active := r.retired[:0]
	for _, old := range r.retired {
		if old.pending.Load() > 0 {
			active = append(active, old)
		}
	}
	r.retired = active
	if old, ok := r.sessions[userID]; ok && old.pending.Load() > 0 {
		r.retired = append(r.retired, old)
	}
	r.sessions[userID] = s
	return s, nil
}

// Wait blocks until the background writes of every session are done.
func (r *Registry) Wait() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions)+len(r.retired))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	all = append(all, r.retired...)
	r.retired = nil
	r.mu.Unlock()

	for _, s := range all {
		s.Wait()
	}
}
