// Package selector decides which workout of the rotation is due.
package selector

import (
	"sort"
	"time"

	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"
)

// DueWorkout returns the workout for the given day, or nil on a rest day.
// The workout is the rotation successor of the most recently completed log,
// or the first rotation slot when there is none or it cannot be resolved.
func DueWorkout(p *program.Program, date time.Time, history logs.History) *program.WorkoutDefinition {
	if p.IsRestDay(date.Weekday()) {
		return nil
	}
	return NextInRotation(p, history)
}

// NextInRotation returns the rotation successor of the last completed
// session, regardless of the weekday.
func NextInRotation(p *program.Program, history logs.History) *program.WorkoutDefinition {
	last, ok := LastCompleted(history)
	if !ok {
		return p.AtRotation(0)
	}

	w, ok := p.ResolveSlot(last.Slot, last.Name)
	if !ok {
		return p.AtRotation(0)
	}
	index := p.RotationIndex(w.Slot)
	if index < 0 {
		return p.AtRotation(0)
	}
	return p.AtRotation(index + 1)
}

// LastCompleted returns the most recent log whose sets are all done.
// Completion is recomputed from the sets, the stored flag is ignored.
func LastCompleted(history logs.History) (logs.WorkoutLog, bool) {
	dates := CompletedDates(history)
	if len(dates) == 0 {
		return logs.WorkoutLog{}, false
	}
	return history[dates[0]], true
}

// CompletedDates returns the dates of completed logs, most recent first.
func CompletedDates(history logs.History) []string {
	dates := make([]string, 0, len(history))
	for date, l := range history {
		if l.AllSetsDone() {
			dates = append(dates, date)
		}
	}
	// YYYY-MM-DD keys sort chronologically
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}
