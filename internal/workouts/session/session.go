// Package session holds the editable state of one training day.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"
	"github.com/2beens/liftlog/internal/workouts/progression"
	"github.com/2beens/liftlog/internal/workouts/selector"

	log "github.com/sirupsen/logrus"
)

const persistTimeout = 10 * time.Second

type State string

const (
	StateNoWorkout State = "no_workout"
	StateLoaded    State = "loaded"
	StateComplete  State = "complete"
)

var (
	ErrNoWorkout       = errors.New("no workout for this date")
	ErrUnknownExercise = errors.New("exercise not part of the workout")
	ErrInvalidSet      = errors.New("invalid set")
)

//go:generate mockgen -source=$GOFILE -destination=session_mocks_test.go -package=session_test

type workoutStore interface {
	UpsertWorkout(ctx context.Context, userID, date string, log logs.WorkoutLog) error
}

// SetUpdate carries the fields to change, nil fields are left as they are.
type SetUpdate struct {
	Weight *float64 `json:"weight,omitempty"`
	Reps   *int     `json:"reps,omitempty"`
	Done   *bool    `json:"isDone,omitempty"`
}

type Params struct {
	Program *program.Program
	UserID  string
	Date    time.Time
	History logs.History
	Store   workoutStore
	Metrics *metrics.Manager
}

// Session is the log being edited for one date. Every accepted edit is
// written through the store in the background; a failed write is logged and
// counted, the in-memory log is kept as it is.
type Session struct {
	program *program.Program
	userID  string
	date    string
	store   workoutStore
	metrics *metrics.Manager

	mu          sync.Mutex
	workout     *program.WorkoutDefinition
	log         *logs.WorkoutLog
	predictions map[int][]*progression.Target

	inflight     sync.WaitGroup
	pending      atomic.Int64
	persistMu    sync.Mutex
	writeSeq     uint64
	attemptedSeq uint64
}

// View is the read model of a session.
type View struct {
	Date        string                        `json:"date"`
	State       State                         `json:"state"`
	Log         *logs.WorkoutLog              `json:"log,omitempty"`
	Predictions map[int][]*progression.Target `json:"predictions,omitempty"`
}

func New(params Params) (*Session, error) {
	if params.Program == nil {
		return nil, errors.New("program is nil")
	}
	if params.Store == nil {
		return nil, errors.New("store is nil")
	}
	if params.UserID == "" {
		return nil, logs.ErrEmptyUserID
	}

	s := &Session{
		program: params.Program,
		userID:  params.UserID,
		date:    logs.DateKey(params.Date),
		store:   params.Store,
		metrics: params.Metrics,
	}

	history := params.History.Normalize()
	persisted, hasPersisted := history[s.date]

	// a log already written for this date decides the workout, even on a rest day
	if hasPersisted {
		if w, ok := s.program.ResolveSlot(persisted.Slot, persisted.Name); ok {
			s.workout = w
		}
	}
	if s.workout == nil {
		s.workout = selector.DueWorkout(s.program, params.Date, history)
	}
	if s.workout == nil {
		return s, nil
	}

	l := logs.NewWorkoutLog(s.workout)
	if hasPersisted {
		mergePersisted(&l, persisted)
	}
	l.Recompute()
	s.log = &l
	s.predictions = progression.PredictWorkout(s.program, s.workout, history, s.date)

	return s, nil
}

// mergePersisted copies stored set values into the template, matched by
// exercise id and set index. The template decides the shape of the log.
func mergePersisted(template *logs.WorkoutLog, persisted logs.WorkoutLog) {
	for i := range template.Exercises {
		stored := persisted.Exercise(template.Exercises[i].ID)
		if stored == nil {
			continue
		}
		for j := range template.Exercises[i].SetsData {
			rec, ok := stored.SetAt(j + 1)
			if !ok {
				break
			}
			rec.Set = j + 1
			template.Exercises[i].SetsData[j] = rec
		}
	}
}

func (s *Session) Date() string {
	return s.date
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.log == nil:
		return StateNoWorkout
	case s.log.IsComplete:
		return StateComplete
	default:
		return StateLoaded
	}
}

// Workout returns the workout of the day, nil when there is none.
func (s *Session) Workout() *program.WorkoutDefinition {
	return s.workout
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Date:        s.date,
		State:       s.stateLocked(),
		Predictions: s.predictions,
	}
	if s.log != nil {
		l := s.log.Clone()
		v.Log = &l
	}
	return v
}

// UpdateSet applies the update to one set and persists the whole log.
func (s *Session) UpdateSet(ctx context.Context, exerciseID, set int, update SetUpdate) (View, error) {
	if update.Weight != nil && *update.Weight < 0 {
		return View{}, fmt.Errorf("%w: weight must not be negative", ErrInvalidSet)
	}
	if update.Reps != nil && *update.Reps < 0 {
		return View{}, fmt.Errorf("%w: reps must not be negative", ErrInvalidSet)
	}
	return s.mutate(ctx, exerciseID, set, func(rec *logs.SetRecord) {
		if update.Weight != nil {
			rec.Weight = *update.Weight
		}
		if update.Reps != nil {
			rec.Reps = *update.Reps
		}
		if update.Done != nil {
			rec.IsDone = *update.Done
		}
	})
}

// ToggleDone flips the done flag of one set and persists the whole log.
func (s *Session) ToggleDone(ctx context.Context, exerciseID, set int) (View, error) {
	return s.mutate(ctx, exerciseID, set, func(rec *logs.SetRecord) {
		rec.IsDone = !rec.IsDone
	})
}

func (s *Session) mutate(ctx context.Context, exerciseID, set int, apply func(*logs.SetRecord)) (View, error) {
	s.mu.Lock()

	if s.log == nil {
		s.mu.Unlock()
		return View{}, ErrNoWorkout
	}
	ex := s.log.Exercise(exerciseID)
	if ex == nil {
		s.mu.Unlock()
		return View{}, fmt.Errorf("%w: %d", ErrUnknownExercise, exerciseID)
	}
	if set < 1 || set > len(ex.SetsData) {
		s.mu.Unlock()
		return View{}, fmt.Errorf("%w: set %d of %d", ErrInvalidSet, set, len(ex.SetsData))
	}

	apply(&ex.SetsData[set-1])
	s.log.Recompute()

	s.writeSeq++
	seq := s.writeSeq
	snapshot := s.log.Clone()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.CounterSetEdits.Inc()
	}
	s.persist(ctx, seq, snapshot)

	return s.View(), nil
}

// persist writes the log in the background, detached from the caller's
// cancellation. A write is dropped once a newer one was attempted, even if
// that one failed, so the stored log never moves back to an older edit.
func (s *Session) persist(ctx context.Context, seq uint64, snapshot logs.WorkoutLog) {
	s.inflight.Add(1)
	s.pending.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.pending.Add(-1)

		s.persistMu.Lock()
		defer s.persistMu.Unlock()
		if seq <= s.attemptedSeq {
			return
		}
		s.attemptedSeq = seq

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()

		if err := s.store.UpsertWorkout(writeCtx, s.userID, s.date, snapshot); err != nil {
			log.Errorf("persist workout log [%s] for user [%s]: %s", s.date, s.userID, err)
			if s.metrics != nil {
				s.metrics.CounterPersistFailures.WithLabelValues("workout_log").Inc()
			}
			return
		}
	}()
}

// Wait blocks until all background writes are done.
func (s *Session) Wait() {
	s.inflight.Wait()
}
