package program_test

import (
	"testing"
	"time"

	"github.com/2beens/liftlog/internal/workouts/program"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepRange(t *testing.T) {
	min, max, err := program.ParseRepRange("10-12")
	require.NoError(t, err)
	assert.Equal(t, 10, min)
	assert.Equal(t, 12, max)

	min, max, err = program.ParseRepRange(" 6 - 8 ")
	require.NoError(t, err)
	assert.Equal(t, 6, min)
	assert.Equal(t, 8, max)

	for _, bad := range []string{"", "10", "a-b", "12-10", "-1-5"} {
		_, _, err := program.ParseRepRange(bad)
		assert.ErrorIs(t, err, program.ErrInvalidRepRange, bad)
	}
}

func TestDefault(t *testing.T) {
	p := program.Default()
	assert.Equal(t, []program.Slot{1, 2, 4, 5}, p.Rotation())
	assert.Equal(t, 2.5, p.LoadStep())
	assert.Equal(t, 0.025, p.LoadIncrease())

	assert.True(t, p.IsRestDay(time.Sunday))
	assert.True(t, p.IsRestDay(time.Wednesday))
	assert.True(t, p.IsRestDay(time.Saturday))
	assert.False(t, p.IsRestDay(time.Monday))
	assert.False(t, p.IsRestDay(time.Friday))

	assert.Equal(t, program.Slot(1), p.AtRotation(0).Slot)
	assert.Equal(t, program.Slot(1), p.AtRotation(4).Slot)
	assert.Equal(t, program.Slot(5), p.AtRotation(-1).Slot)
	assert.Len(t, p.Workouts(), 4)
}

func TestProgram_ResolveSlot(t *testing.T) {
	p := program.Default()

	w, ok := p.ResolveSlot(4, "renamed")
	require.True(t, ok)
	assert.Equal(t, "Upper B", w.Name)

	w, ok = p.ResolveSlot(program.SlotUnknown, "Lower A")
	require.True(t, ok)
	assert.Equal(t, program.Slot(2), w.Slot)

	_, ok = p.ResolveSlot(program.SlotUnknown, "Push Day")
	assert.False(t, ok)
}

func TestNew_Validation(t *testing.T) {
	ex := program.ExerciseDefinition{ID: 1, Name: "Squat", Sets: 3, RepRange: "5-8"}

	_, err := program.New(program.Params{
		Workouts: []program.WorkoutDefinition{{Slot: 1, Name: "A", Exercises: []program.ExerciseDefinition{ex}}},
		LoadStep: 2.5,
	})
	assert.ErrorContains(t, err, "rotation is empty")

	_, err = program.New(program.Params{
		Workouts: []program.WorkoutDefinition{{Slot: 1, Name: "A", Exercises: []program.ExerciseDefinition{ex}}},
		Rotation: []program.Slot{1, 2},
		LoadStep: 2.5,
	})
	assert.ErrorContains(t, err, "rotation slot 2 has no workout")

	_, err = program.New(program.Params{
		Workouts: []program.WorkoutDefinition{{Slot: 1, Name: "A", Exercises: []program.ExerciseDefinition{ex, ex}}},
		Rotation: []program.Slot{1},
		LoadStep: 2.5,
	})
	assert.ErrorContains(t, err, "defined twice")

	_, err = program.New(program.Params{
		Workouts: []program.WorkoutDefinition{{Slot: 1, Name: "A", Exercises: []program.ExerciseDefinition{ex}}},
		Rotation: []program.Slot{1},
	})
	assert.ErrorContains(t, err, "load step must be positive")
}

func TestParse(t *testing.T) {
	p, err := program.Parse(`
rotation = [3, 6]
load_step = 1.25

[[workouts]]
slot = 3
name = "Full Body A"
  [[workouts.exercises]]
  id = 1
  name = "Squat"
  sets = 3
  rep_range = "5-8"
  rest = 180
  muscle = "legs"

[[workouts]]
slot = 6
name = "Full Body B"
  [[workouts.exercises]]
  id = 2
  name = "Deadlift"
  sets = 2
  rep_range = "3-5"
`)
	require.NoError(t, err)
	assert.Equal(t, []program.Slot{3, 6}, p.Rotation())
	assert.Equal(t, 1.25, p.LoadStep())
	assert.Equal(t, program.DefaultLoadIncrease, p.LoadIncrease())
	assert.True(t, p.IsRestDay(time.Monday))
	assert.False(t, p.IsRestDay(time.Wednesday))

	w, ok := p.Workout(3)
	require.True(t, ok)
	require.Len(t, w.Exercises, 1)
	assert.Equal(t, "5-8", w.Exercises[0].RepRange)
	assert.Equal(t, 180, w.Exercises[0].Rest)
	assert.Equal(t, 3, w.PlannedSets())

	_, err = program.Parse(`rotation = [1]`)
	assert.Error(t, err)
}
