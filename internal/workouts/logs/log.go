package logs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/liftlog/internal/workouts/program"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidSet  = errors.New("invalid set record")
)

// DateKey formats the UTC calendar day of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD key into UTC midnight.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

type SetRecord struct {
	Set    int     `json:"set"`
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
	IsDone bool    `json:"isDone"`
}

// Qualifies reports whether the set counts towards volume: done, loaded and with reps.
func (s SetRecord) Qualifies() bool {
	return s.IsDone && s.Weight > 0 && s.Reps > 0
}

func (s SetRecord) Volume() float64 {
	return s.Weight * float64(s.Reps)
}

type ExerciseLog struct {
	program.ExerciseDefinition
	SetsData []SetRecord `json:"setsData"`
}

// NewExerciseLog creates a log with Sets zeroed set records.
func NewExerciseLog(def program.ExerciseDefinition) ExerciseLog {
	sets := make([]SetRecord, def.Sets)
	for i := range sets {
		sets[i].Set = i + 1
	}
	return ExerciseLog{
		ExerciseDefinition: def,
		SetsData:           sets,
	}
}

// SetAt returns the set with the 1-based index.
func (e *ExerciseLog) SetAt(set int) (SetRecord, bool) {
	if set < 1 || set > len(e.SetsData) {
		return SetRecord{}, false
	}
	return e.SetsData[set-1], true
}

// WorkoutLog is the record of one workout day. IsComplete is derived from the
// sets and is recomputed on every read and write, never trusted as stored.
type WorkoutLog struct {
	Name       string        `json:"name"`
	Slot       program.Slot  `json:"slot"`
	IsComplete bool          `json:"isComplete"`
	Exercises  []ExerciseLog `json:"exercises"`
}

// NewWorkoutLog creates the empty template log for a workout definition.
func NewWorkoutLog(w *program.WorkoutDefinition) WorkoutLog {
	exercises := make([]ExerciseLog, len(w.Exercises))
	for i, def := range w.Exercises {
		exercises[i] = NewExerciseLog(def)
	}
	return WorkoutLog{
		Name:      w.Name,
		Slot:      w.Slot,
		Exercises: exercises,
	}
}

// AllSetsDone reports whether every set of every exercise is done.
// A log without any set is not done.
func (l *WorkoutLog) AllSetsDone() bool {
	sets := 0
	for _, ex := range l.Exercises {
		for _, s := range ex.SetsData {
			if !s.IsDone {
				return false
			}
			sets++
		}
	}
	return sets > 0
}

// Recompute refreshes the derived completion flag and returns it.
func (l *WorkoutLog) Recompute() bool {
	l.IsComplete = l.AllSetsDone()
	return l.IsComplete
}

// Exercise returns a pointer to the exercise log with the given id.
func (l *WorkoutLog) Exercise(id int) *ExerciseLog {
	for i := range l.Exercises {
		if l.Exercises[i].ID == id {
			return &l.Exercises[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (l WorkoutLog) Clone() WorkoutLog {
	c := l
	c.Exercises = make([]ExerciseLog, len(l.Exercises))
	for i, ex := range l.Exercises {
		c.Exercises[i] = ex
		c.Exercises[i].SetsData = append([]SetRecord(nil), ex.SetsData...)
	}
	return c
}

// UnmarshalJSON defaults a missing slot to program.SlotUnknown, so legacy
// documents without one are resolved by name.
func (l *WorkoutLog) UnmarshalJSON(data []byte) error {
	type plain WorkoutLog
	aux := struct {
		plain
		Slot *program.Slot `json:"slot"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = WorkoutLog(aux.plain)
	l.Slot = program.SlotUnknown
	if aux.Slot != nil {
		l.Slot = *aux.Slot
	}
	return nil
}

// History is the workout log collection keyed by date.
type History map[string]WorkoutLog

// Normalize returns a copy of the history with every completion flag recomputed.
func (h History) Normalize() History {
	out := make(History, len(h))
	for date, l := range h {
		c := l.Clone()
		c.Recompute()
		out[date] = c
	}
	return out
}

type RecoveryLog struct {
	SleepHours     *float64 `json:"sleepHours,omitempty"`
	HRV            *float64 `json:"hrv,omitempty"`
	Readiness      *int     `json:"readiness,omitempty"`
	Soreness       *int     `json:"soreness,omitempty"`
	CardioDuration *float64 `json:"cardioDuration,omitempty"`
	CardioNotes    *string  `json:"cardioNotes,omitempty"`
}

func (r RecoveryLog) Validate() error {
	if r.Readiness != nil && (*r.Readiness < 1 || *r.Readiness > 10) {
		return fmt.Errorf("readiness must be in [1, 10], got %d", *r.Readiness)
	}
	if r.Soreness != nil && (*r.Soreness < 1 || *r.Soreness > 10) {
		return fmt.Errorf("soreness must be in [1, 10], got %d", *r.Soreness)
	}
	if r.SleepHours != nil && (*r.SleepHours < 0 || *r.SleepHours > 24) {
		return fmt.Errorf("sleep hours must be in [0, 24], got %v", *r.SleepHours)
	}
	if r.HRV != nil && *r.HRV < 0 {
		return fmt.Errorf("hrv must not be negative, got %v", *r.HRV)
	}
	if r.CardioDuration != nil && *r.CardioDuration < 0 {
		return fmt.Errorf("cardio duration must not be negative, got %v", *r.CardioDuration)
	}
	return nil
}

// Merge returns r with every field set in update overwriting it.
func (r RecoveryLog) Merge(update RecoveryLog) RecoveryLog {
	if update.SleepHours != nil {
		r.SleepHours = update.SleepHours
	}
	if update.HRV != nil {
		r.HRV = update.HRV
	}
	if update.Readiness != nil {
		r.Readiness = update.Readiness
	}
	if update.Soreness != nil {
		r.Soreness = update.Soreness
	}
	if update.CardioDuration != nil {
		r.CardioDuration = update.CardioDuration
	}
	if update.CardioNotes != nil {
		r.CardioNotes = update.CardioNotes
	}
	return r
}

type RecoveryHistory map[string]RecoveryLog

// Snapshot is the full content of both collections of one user.
type Snapshot struct {
	UserID   string          `json:"userId"`
	Version  int64           `json:"version"`
	Workouts History         `json:"workouts"`
	Recovery RecoveryHistory `json:"recovery"`
}
