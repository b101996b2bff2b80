package logs_test

import (
	"context"
	"testing"
	"time"

	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemStore_UpsertMerge(t *testing.T) {
	ctx := context.Background()
	store := logs.NewMemStore()

	sleep := 8.0
	readiness := 6
	require.NoError(t, store.UpsertRecovery(ctx, "u1", "2024-01-02", logs.RecoveryLog{SleepHours: &sleep}))
	require.NoError(t, store.UpsertRecovery(ctx, "u1", "2024-01-02", logs.RecoveryLog{Readiness: &readiness}))

	w, _ := program.Default().Workout(2)
	l := logs.NewWorkoutLog(w)
	l.IsComplete = true // derived, must be recomputed on write
	require.NoError(t, store.UpsertWorkout(ctx, "u1", "2024-01-02", l))

	snapshot, err := store.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", snapshot.UserID)
	assert.EqualValues(t, 3, snapshot.Version)

	rec := snapshot.Recovery["2024-01-02"]
	require.NotNil(t, rec.SleepHours)
	require.NotNil(t, rec.Readiness)
	assert.Equal(t, 8.0, *rec.SleepHours)
	assert.Equal(t, 6, *rec.Readiness)

	stored := snapshot.Workouts["2024-01-02"]
	assert.Equal(t, "Lower A", stored.Name)
	assert.False(t, stored.IsComplete)

	other, err := store.Snapshot(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other.Workouts)
	assert.Empty(t, other.Recovery)
}

func TestMemStore_Validation(t *testing.T) {
	ctx := context.Background()
	store := logs.NewMemStore()

	assert.ErrorIs(t, store.UpsertWorkout(ctx, "", "2024-01-02", logs.WorkoutLog{}), logs.ErrEmptyUserID)
	assert.ErrorIs(t, store.UpsertWorkout(ctx, "u1", "yesterday", logs.WorkoutLog{}), logs.ErrInvalidDate)

	bad := 0
	assert.Error(t, store.UpsertRecovery(ctx, "u1", "2024-01-02", logs.RecoveryLog{Readiness: &bad}))

	_, err := store.Snapshot(ctx, "")
	assert.ErrorIs(t, err, logs.ErrEmptyUserID)
}

func TestMemStore_Subscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := logs.NewMemStore()

	snapshots, err := store.Subscribe(ctx, "u1")
	require.NoError(t, err)

	select {
	case s := <-snapshots:
		assert.Empty(t, s.Workouts)
	case <-time.After(time.Second):
		t.Fatal("initial snapshot not pushed")
	}

	w, _ := program.Default().Workout(1)
	require.NoError(t, store.UpsertWorkout(ctx, "u1", "2024-01-01", logs.NewWorkoutLog(w)))

	select {
	case s := <-snapshots:
		assert.Contains(t, s.Workouts, "2024-01-01")
	case <-time.After(time.Second):
		t.Fatal("change snapshot not pushed")
	}

	cancel()
	for range snapshots {
		// drain until closed
	}
}
