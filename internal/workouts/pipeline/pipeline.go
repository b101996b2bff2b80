// Package pipeline turns log snapshots into the derived training views.
package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/workouts/kpi"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"
	"github.com/2beens/liftlog/internal/workouts/progression"
	"github.com/2beens/liftlog/internal/workouts/selector"

	log "github.com/sirupsen/logrus"
)

type SnapshotSource interface {
	Subscribe(ctx context.Context, userID string) (<-chan *logs.Snapshot, error)
}

var ErrSubscriptionClosed = errors.New("logs subscription closed")

// Views is everything derived from one snapshot. Only history-derived values
// live here, the date-dependent ones come from Today. The zero value (Ready
// false) is what consumers see before the first snapshot arrives.
type Views struct {
	Ready          bool                       `json:"ready"`
	Version        int64                      `json:"version"`
	NextInRotation *program.WorkoutDefinition `json:"nextInRotation"`
	KPIs           kpi.KPIs                   `json:"kpis"`
	History        logs.History               `json:"-"`
	Recovery       logs.RecoveryHistory       `json:"-"`
}

// Today is the workout due on Date with its set targets. Workout is nil on a
// rest day.
type Today struct {
	Date        string                        `json:"date"`
	Workout     *program.WorkoutDefinition    `json:"workout"`
	Predictions map[int][]*progression.Target `json:"predictions"`
}

// Today computes the due workout of now's date from the views' history. It
// is never cached, the date moves on without any new snapshot.
func (v Views) Today(p *program.Program, now time.Time) Today {
	now = now.UTC()
	today := Today{
		Date:        logs.DateKey(now),
		Workout:     selector.DueWorkout(p, now, v.History),
		Predictions: map[int][]*progression.Target{},
	}
	if today.Workout != nil {
		today.Predictions = progression.PredictWorkout(p, today.Workout, v.History, today.Date)
	}
	return today
}

type Params struct {
	Program *program.Program
	Metrics *metrics.Manager
}

type Pipeline struct {
	program *program.Program
	metrics *metrics.Manager

	mu        sync.RWMutex
	views     Views
	listeners []func(Views)
	ready     chan struct{}
	readyOnce sync.Once
}

func New(params Params) (*Pipeline, error) {
	if params.Program == nil {
		return nil, errors.New("program is nil")
	}
	return &Pipeline{
		program: params.Program,
		metrics: params.Metrics,
		ready:   make(chan struct{}),
	}, nil
}

// Ingest recomputes all views from the snapshot and publishes them to the
// listeners. A nil snapshot changes nothing.
func (p *Pipeline) Ingest(snapshot *logs.Snapshot) Views {
	if snapshot == nil {
		return p.Views()
	}

	start := time.Now()
	views := Compute(p.program, snapshot)
	if p.metrics != nil {
		p.metrics.HistPipelineIngest.Observe(time.Since(start).Seconds())
		p.metrics.GaugeSnapshotVersion.Set(float64(views.Version))
	}

	p.mu.Lock()
	p.views = views
	listeners := slices.Clone(p.listeners)
	p.mu.Unlock()

	p.readyOnce.Do(func() { close(p.ready) })
	for _, l := range listeners {
		l(views)
	}

	return views
}

// Compute derives the views in dependency order: normalized history, next in
// rotation, KPIs.
func Compute(p *program.Program, snapshot *logs.Snapshot) Views {
	history := snapshot.Workouts.Normalize()
	return Views{
		Ready:          true,
		Version:        snapshot.Version,
		NextInRotation: selector.NextInRotation(p, history),
		KPIs:           kpi.Compute(p, history),
		History:        history,
		Recovery:       snapshot.Recovery,
	}
}

// Views returns the latest views, not ready before the first snapshot.
func (p *Pipeline) Views() Views {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.views
}

// Ready is closed once the first snapshot is ingested.
func (p *Pipeline) Ready() <-chan struct{} {
	return p.ready
}

// OnChange registers a listener called with every new set of views.
func (p *Pipeline) OnChange(listener func(Views)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, listener)
}

// Run ingests every snapshot pushed by the source until ctx is done. A
// subscription closed while ctx is still alive is ErrSubscriptionClosed.
func (p *Pipeline) Run(ctx context.Context, source SnapshotSource, userID string) error {
	snapshots, err := source.Subscribe(ctx, userID)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-snapshots:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			views := p.Ingest(snapshot)
			log.Tracef("ingested logs snapshot v%d for [%s]", views.Version, userID)
		}
	}
}
