package kpi_test

import (
	"testing"
	"time"

	"github.com/2beens/liftlog/internal/workouts/kpi"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseLog(id, sets int, records ...logs.SetRecord) logs.ExerciseLog {
	return logs.ExerciseLog{
		ExerciseDefinition: program.ExerciseDefinition{ID: id, Sets: sets, RepRange: "6-8"},
		SetsData:           records,
	}
}

func TestCompute_EmptyHistory(t *testing.T) {
	p := program.Default()
	for _, h := range []logs.History{nil, {}} {
		k := kpi.Compute(p, h)
		assert.Zero(t, k.TotalVolume)
		assert.Zero(t, k.ConsistencyScore)
		assert.Zero(t, k.OverloadRatio)
		assert.Zero(t, k.TotalSetsCompleted)
		assert.NotNil(t, k.WeeklyVolume)
		assert.Empty(t, k.WeeklyVolume)
	}
}

func TestCompute_OverloadOrderDependence(t *testing.T) {
	p := program.Default()
	// exercise 101 (Upper A bench press), volumes 1000, 1200, 1100, 1300 on ascending dates;
	// map order must not matter, dates are sorted
	history := logs.History{
		"2024-03-18": {Name: "Upper A", Slot: 1, Exercises: []logs.ExerciseLog{
			exerciseLog(101, 3, logs.SetRecord{Set: 1, Weight: 110, Reps: 10, IsDone: true}),
		}},
		"2024-03-04": {Name: "Upper A", Slot: 1, Exercises: []logs.ExerciseLog{
			exerciseLog(101, 3, logs.SetRecord{Set: 1, Weight: 100, Reps: 10, IsDone: true}),
		}},
		"2024-03-25": {Name: "Upper A", Slot: 1, Exercises: []logs.ExerciseLog{
			exerciseLog(101, 3, logs.SetRecord{Set: 1, Weight: 130, Reps: 10, IsDone: true}),
		}},
		"2024-03-11": {Name: "Upper A", Slot: 1, Exercises: []logs.ExerciseLog{
			exerciseLog(101, 3, logs.SetRecord{Set: 1, Weight: 120, Reps: 10, IsDone: true}),
		}},
	}

	k := kpi.Compute(p, history)
	assert.Equal(t, 4, k.TotalSetsCompleted)
	assert.Equal(t, 3, k.NewMaxEvents)
	assert.Equal(t, 75, k.OverloadRatio)
	assert.Equal(t, 4600.0, k.TotalVolume)
	// 4 logs x 3 planned bench sets
	assert.Equal(t, 12, k.TotalSetsPlanned)
	assert.Equal(t, 33, k.ConsistencyScore)
}

func TestCompute_WeeklyBuckets(t *testing.T) {
	p := program.Default()
	history := logs.History{
		// Sunday starts its own week
		"2024-03-03": {Name: "Upper A", Exercises: []logs.ExerciseLog{
			exerciseLog(101, 1, logs.SetRecord{Set: 1, Weight: 10.5, Reps: 3, IsDone: true}),
		}},
		"2024-03-04": {Name: "Upper A", Exercises: []logs.ExerciseLog{
			exerciseLog(101, 1, logs.SetRecord{Set: 1, Weight: 50, Reps: 10, IsDone: true}),
		}},
		"2024-03-09": {Name: "Lower A", Exercises: []logs.ExerciseLog{
			exerciseLog(201, 1, logs.SetRecord{Set: 1, Weight: 100, Reps: 5, IsDone: true}),
		}},
		"2024-02-29": {Name: "Upper B", Exercises: []logs.ExerciseLog{
			exerciseLog(401, 1,
				logs.SetRecord{Set: 1, Weight: 40, Reps: 10, IsDone: true},
				// not done, not loaded, no reps: none of these qualify
				logs.SetRecord{Set: 2, Weight: 40, Reps: 10, IsDone: false},
				logs.SetRecord{Set: 3, Weight: 0, Reps: 10, IsDone: true},
				logs.SetRecord{Set: 4, Weight: 40, Reps: 0, IsDone: true},
			),
		}},
	}

	k := kpi.Compute(p, history)
	require.Len(t, k.WeeklyVolume, 2)
	assert.Equal(t, kpi.WeekVolume{WeekStart: "2024-02-25", Volume: 400}, k.WeeklyVolume[0])
	// 31.5 + 500 + 500 = 1031.5, rounded
	assert.Equal(t, kpi.WeekVolume{WeekStart: "2024-03-03", Volume: 1032}, k.WeeklyVolume[1])
	assert.Equal(t, 1431.5, k.TotalVolume)
	assert.Equal(t, 4, k.TotalSetsCompleted)
}

func TestCompute_UnknownWorkoutCountsCompletedOnly(t *testing.T) {
	p := program.Default()
	history := logs.History{
		"2024-03-04": {Name: "Upper A", Slot: 1, Exercises: []logs.ExerciseLog{
			exerciseLog(101, 3, logs.SetRecord{Set: 1, Weight: 60, Reps: 8, IsDone: true}),
			// not part of Upper A: no planned sets
			exerciseLog(999, 3, logs.SetRecord{Set: 1, Weight: 10, Reps: 8, IsDone: true}),
		}},
		"2024-03-05": {Name: "Push Day", Slot: program.SlotUnknown, Exercises: []logs.ExerciseLog{
			exerciseLog(101, 3,
				logs.SetRecord{Set: 1, Weight: 60, Reps: 8, IsDone: true},
				logs.SetRecord{Set: 2, Weight: 60, Reps: 8, IsDone: true},
				logs.SetRecord{Set: 3, Weight: 60, Reps: 8, IsDone: true},
			),
		}},
	}

	k := kpi.Compute(p, history)
	assert.Equal(t, 3, k.TotalSetsPlanned)
	assert.Equal(t, 5, k.TotalSetsCompleted)
	assert.Equal(t, 100, k.ConsistencyScore)
}

func TestScores(t *testing.T) {
	assert.Equal(t, 0, kpi.ConsistencyScore(10, 0))
	assert.Equal(t, 100, kpi.ConsistencyScore(30, 10))
	assert.Equal(t, 67, kpi.ConsistencyScore(2, 3))
	assert.Equal(t, 50, kpi.ConsistencyScore(1, 2))
	assert.Equal(t, 0, kpi.OverloadRatio(3, 0))
	assert.Equal(t, 33, kpi.OverloadRatio(1, 3))
	assert.Equal(t, 100, kpi.OverloadRatio(4, 4))
}

func randomHistory(f *gofakeit.Faker, p *program.Program) logs.History {
	history := make(logs.History)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	workouts := p.Workouts()
	n := f.Number(0, 60)
	for i := 0; i < n; i++ {
		date := logs.DateKey(start.AddDate(0, 0, f.Number(0, 400)))
		w := workouts[f.Number(0, len(workouts)-1)]
		l := logs.NewWorkoutLog(&w)
		if f.Bool() {
			l.Name = f.Word()
			l.Slot = program.SlotUnknown
		}
		for e := range l.Exercises {
			for s := range l.Exercises[e].SetsData {
				l.Exercises[e].SetsData[s].Weight = float64(f.Number(0, 80)) * 2.5
				l.Exercises[e].SetsData[s].Reps = f.Number(0, 15)
				l.Exercises[e].SetsData[s].IsDone = f.Bool()
			}
			// extra sets beyond the plan
			if f.Bool() {
				l.Exercises[e].SetsData = append(l.Exercises[e].SetsData, logs.SetRecord{
					Set: len(l.Exercises[e].SetsData) + 1, Weight: 20, Reps: 10, IsDone: true,
				})
			}
		}
		history[date] = l
	}
	return history
}

func TestCompute_Properties(t *testing.T) {
	p := program.Default()
	f := gofakeit.New(42)

	for i := 0; i < 200; i++ {
		history := randomHistory(f, p)

		first := kpi.Compute(p, history)
		second := kpi.Compute(p, history)
		require.Equal(t, first, second, "compute must be a pure function of the history")

		assert.GreaterOrEqual(t, first.ConsistencyScore, 0)
		assert.LessOrEqual(t, first.ConsistencyScore, 100)
		assert.GreaterOrEqual(t, first.OverloadRatio, 0)
		assert.LessOrEqual(t, first.OverloadRatio, 100)
		assert.LessOrEqual(t, first.NewMaxEvents, first.TotalSetsCompleted)

		var weekly float64
		for j, w := range first.WeeklyVolume {
			weekly += w.Volume
			if j > 0 {
				assert.Less(t, first.WeeklyVolume[j-1].WeekStart, w.WeekStart)
			}
			d, err := logs.ParseDate(w.WeekStart)
			require.NoError(t, err)
			assert.Equal(t, time.Sunday, d.Weekday())
		}
		// every bucket is rounded on its own
		assert.InDelta(t, first.TotalVolume, weekly, float64(len(first.WeeklyVolume))/2+1e-6)
	}
}
