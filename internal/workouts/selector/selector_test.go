package selector_test

import (
	"testing"
	"time"

	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"
	"github.com/2beens/liftlog/internal/workouts/selector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday    = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	tuesday   = monday.AddDate(0, 0, 1)
	wednesday = monday.AddDate(0, 0, 2)
	thursday  = monday.AddDate(0, 0, 3)
	saturday  = monday.AddDate(0, 0, 5)
	sunday    = monday.AddDate(0, 0, 6)
)

func completedLog(t *testing.T, p *program.Program, slot program.Slot) logs.WorkoutLog {
	t.Helper()
	w, ok := p.Workout(slot)
	require.True(t, ok)
	l := logs.NewWorkoutLog(w)
	for i := range l.Exercises {
		for j := range l.Exercises[i].SetsData {
			l.Exercises[i].SetsData[j].IsDone = true
		}
	}
	l.Recompute()
	return l
}

func TestDueWorkout_NoHistory(t *testing.T) {
	p := program.Default()
	w := selector.DueWorkout(p, monday, nil)
	require.NotNil(t, w)
	assert.Equal(t, program.Slot(1), w.Slot)

	// on a lift day other than the first slot, still the first rotation slot
	w = selector.DueWorkout(p, thursday, logs.History{})
	require.NotNil(t, w)
	assert.Equal(t, "Upper A", w.Name)
}

func TestDueWorkout_RestDays(t *testing.T) {
	p := program.Default()
	history := logs.History{
		"2024-03-04": completedLog(t, p, 1),
		"2024-03-05": completedLog(t, p, 2),
	}
	for _, d := range []time.Time{wednesday, saturday, sunday} {
		assert.Nil(t, selector.DueWorkout(p, d, history), d.Weekday().String())
		assert.Nil(t, selector.DueWorkout(p, d, nil), d.Weekday().String())
	}
}

func TestDueWorkout_RotationCycling(t *testing.T) {
	p := program.Default()

	history := logs.History{
		"2024-03-04": completedLog(t, p, 1),
		"2024-03-05": completedLog(t, p, 2),
	}
	w := selector.DueWorkout(p, thursday, history)
	require.NotNil(t, w)
	assert.Equal(t, program.Slot(4), w.Slot)

	// wraps after the last slot
	history["2024-03-08"] = completedLog(t, p, 5)
	w = selector.DueWorkout(p, monday.AddDate(0, 0, 7), history)
	require.NotNil(t, w)
	assert.Equal(t, program.Slot(1), w.Slot)
}

func TestDueWorkout_IgnoresIncompleteLogs(t *testing.T) {
	p := program.Default()
	partial := completedLog(t, p, 4)
	partial.Exercises[0].SetsData[0].IsDone = false
	partial.IsComplete = true // stale stored flag

	history := logs.History{
		"2024-03-04": completedLog(t, p, 1),
		"2024-03-07": partial,
	}
	w := selector.DueWorkout(p, tuesday.AddDate(0, 0, 7), history)
	require.NotNil(t, w)
	assert.Equal(t, program.Slot(2), w.Slot)
}

func TestDueWorkout_LegacyNameMatching(t *testing.T) {
	p := program.Default()
	legacy := completedLog(t, p, 2)
	legacy.Slot = program.SlotUnknown

	w := selector.DueWorkout(p, thursday, logs.History{"2024-03-05": legacy})
	require.NotNil(t, w)
	assert.Equal(t, program.Slot(4), w.Slot)

	// unknown slot and unknown name falls back to the first rotation slot
	legacy.Name = "Push Day"
	w = selector.DueWorkout(p, thursday, logs.History{"2024-03-05": legacy})
	require.NotNil(t, w)
	assert.Equal(t, program.Slot(1), w.Slot)
}

func TestDueWorkout_StoredSlotWinsOverName(t *testing.T) {
	p := program.Default()
	renamed := completedLog(t, p, 4)
	renamed.Name = "Upper B (old name)"

	w := selector.NextInRotation(p, logs.History{"2024-03-07": renamed})
	assert.Equal(t, program.Slot(5), w.Slot)
}

func TestCompletedDates(t *testing.T) {
	p := program.Default()
	history := logs.History{
		"2024-02-29": completedLog(t, p, 4),
		"2024-03-05": completedLog(t, p, 2),
		"2024-03-04": completedLog(t, p, 1),
		"2024-03-06": {Name: "Upper B"},
	}
	assert.Equal(t, []string{"2024-03-05", "2024-03-04", "2024-02-29"}, selector.CompletedDates(history))

	last, ok := selector.LastCompleted(history)
	require.True(t, ok)
	assert.Equal(t, "Lower A", last.Name)

	_, ok = selector.LastCompleted(nil)
	assert.False(t, ok)
}
