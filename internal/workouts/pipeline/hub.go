package pipeline

import (
	"context"
	"sync"

	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"

	log "github.com/sirupsen/logrus"
)

// Hub runs one pipeline per user, started on first use.
type Hub struct {
	program *program.Program
	source  SnapshotSource
	metrics *metrics.Manager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	pipelines map[string]*Pipeline
}

func NewHub(
	ctx context.Context,
	p *program.Program,
	source SnapshotSource,
	metricsManager *metrics.Manager,
) *Hub {
	ctx, cancel := context.WithCancel(ctx)
	return &Hub{
		program:   p,
		source:    source,
		metrics:   metricsManager,
		ctx:       ctx,
		cancel:    cancel,
		pipelines: make(map[string]*Pipeline),
	}
}

// Views returns the user's views, waiting for the first snapshot until ctx
// is done. On timeout the returned views are not ready.
func (h *Hub) Views(ctx context.Context, userID string) (Views, error) {
	if userID == "" {
		return Views{}, logs.ErrEmptyUserID
	}

	p, err := h.pipeline(userID)
	if err != nil {
		return Views{}, err
	}

	select {
	case <-p.Ready():
	case <-ctx.Done():
	}
	return p.Views(), nil
}

func (h *Hub) pipeline(userID string) (*Pipeline, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.pipelines[userID]; ok {
		return p, nil
	}

	p, err := New(Params{
		Program: h.program,
		Metrics: h.metrics,
	})
	if err != nil {
		return nil, err
	}
	h.pipelines[userID] = p

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := p.Run(h.ctx, h.source, userID); err != nil {
			log.Errorf("logs pipeline for [%s]: %s", userID, err)
			// next request subscribes again
			h.mu.Lock()
			if h.pipelines[userID] == p {
				delete(h.pipelines, userID)
			}
			h.mu.Unlock()
		}
	}()

	return p, nil
}

// Close stops all pipelines and waits for them to return.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
}
