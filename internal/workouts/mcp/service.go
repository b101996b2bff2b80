package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/liftlog/internal/workouts/kpi"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/pipeline"
	"github.com/2beens/liftlog/internal/workouts/program"
	"github.com/2beens/liftlog/internal/workouts/progression"
)

var ErrViewsNotReady = errors.New("training logs not loaded yet")

// viewsProvider returns the derived views of a user (for dependency injection and testing).
type viewsProvider interface {
	Views(ctx context.Context, userID string) (pipeline.Views, error)
}

// contextService provides the training context served by the tools.
// Used by Handler for testability.
type contextService interface {
	DueWorkout(ctx context.Context, userID string) (*DueWorkout, error)
	NextWorkout(ctx context.Context, userID string) (*program.WorkoutDefinition, error)
	KPIs(ctx context.Context, userID string) (*kpi.KPIs, error)
	Predictions(ctx context.Context, userID string, exerciseID int) (map[int][]*progression.Target, error)
	WorkoutLog(ctx context.Context, userID, date string) (*logs.WorkoutLog, error)
	Program() ProgramSummary
}

// DueWorkout is the workout due on Date, nil Workout on a rest day.
type DueWorkout struct {
	Date     string                     `json:"date"`
	RestDay  bool                       `json:"restDay"`
	Workout  *program.WorkoutDefinition `json:"workout,omitempty"`
	LoggedAs *logs.WorkoutLog           `json:"loggedAs,omitempty"`
}

type ProgramSummary struct {
	Rotation     []program.Slot              `json:"rotation"`
	LoadStep     float64                     `json:"loadStep"`
	LoadIncrease float64                     `json:"loadIncrease"`
	Workouts     []program.WorkoutDefinition `json:"workouts"`
}

// ContextService reads everything from the user's derived views. The due
// workout and its predictions are computed on every call for the current date.
type ContextService struct {
	program *program.Program
	views   viewsProvider
	now     func() time.Time
}

// NewContextService uses time.Now when now is nil.
func NewContextService(p *program.Program, views viewsProvider, now func() time.Time) *ContextService {
	if now == nil {
		now = time.Now
	}
	return &ContextService{
		program: p,
		views:   views,
		now:     now,
	}
}

func (s *ContextService) readyViews(ctx context.Context, userID string) (pipeline.Views, error) {
	views, err := s.views.Views(ctx, userID)
	if err != nil {
		return pipeline.Views{}, fmt.Errorf("get views: %w", err)
	}
	if !views.Ready {
		return pipeline.Views{}, ErrViewsNotReady
	}
	return views, nil
}

// DueWorkout returns today's workout together with what was already logged for it.
func (s *ContextService) DueWorkout(ctx context.Context, userID string) (*DueWorkout, error) {
	views, err := s.readyViews(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := views.Today(s.program, s.now())
	due := &DueWorkout{
		Date:    today.Date,
		RestDay: today.Workout == nil,
		Workout: today.Workout,
	}
	if l, ok := views.History[today.Date]; ok {
		due.LoggedAs = &l
	}
	return due, nil
}

func (s *ContextService) NextWorkout(ctx context.Context, userID string) (*program.WorkoutDefinition, error) {
	views, err := s.readyViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	return views.NextInRotation, nil
}

func (s *ContextService) KPIs(ctx context.Context, userID string) (*kpi.KPIs, error) {
	views, err := s.readyViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &views.KPIs, nil
}

// Predictions returns the set targets of today's workout, only for exerciseID
// when it is not zero.
func (s *ContextService) Predictions(ctx context.Context, userID string, exerciseID int) (map[int][]*progression.Target, error) {
	views, err := s.readyViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	predictions := views.Today(s.program, s.now()).Predictions
	if exerciseID == 0 {
		return predictions, nil
	}

	targets, ok := predictions[exerciseID]
	if !ok {
		return nil, fmt.Errorf("no predictions for exercise %d today", exerciseID)
	}
	return map[int][]*progression.Target{exerciseID: targets}, nil
}

// WorkoutLog returns the stored log of the date, ErrLogNotFound when there is none.
func (s *ContextService) WorkoutLog(ctx context.Context, userID, date string) (*logs.WorkoutLog, error) {
	views, err := s.readyViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	l, ok := views.History[date]
	if !ok {
		return nil, fmt.Errorf("%w: %s", logs.ErrLogNotFound, date)
	}
	return &l, nil
}

func (s *ContextService) Program() ProgramSummary {
	return ProgramSummary{
		Rotation:     s.program.Rotation(),
		LoadStep:     s.program.LoadStep(),
		LoadIncrease: s.program.LoadIncrease(),
		Workouts:     s.program.Workouts(),
	}
}
