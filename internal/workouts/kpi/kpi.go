package kpi

import (
	"math"
	"sort"

	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"
)

type WeekVolume struct {
	// WeekStart is the Sunday starting the week, YYYY-MM-DD
	WeekStart string  `json:"weekStartDate"`
	Volume    float64 `json:"volume"`
}

type KPIs struct {
	TotalVolume        float64      `json:"totalVolume"`
	ConsistencyScore   int          `json:"consistencyScore"`
	OverloadRatio      int          `json:"overloadRatio"`
	TotalSetsCompleted int          `json:"totalSetsCompleted"`
	TotalSetsPlanned   int          `json:"totalSetsPlanned"`
	NewMaxEvents       int          `json:"newMaxEvents"`
	WeeklyVolume       []WeekVolume `json:"weeklyVolumeSeries"`
}

// Compute aggregates the whole history, processing dates in ascending order.
//
// Planned sets only count for logs resolving to a known workout, while
// qualifying sets (done, weight > 0, reps > 0) always count as completed.
// A new-max event is a qualifying set whose volume exceeds every earlier
// volume of the same exercise id.
func Compute(p *program.Program, history logs.History) KPIs {
	dates := make([]string, 0, len(history))
	for date := range history {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var (
		totalVolume   float64
		setsCompleted int
		setsPlanned   int
		newMaxEvents  int
		maxVolumeByID = make(map[int]float64)
		weekVolumes   = make(map[string]float64)
	)

	for _, date := range dates {
		l := history[date]

		if w, ok := p.ResolveSlot(l.Slot, l.Name); ok {
			for _, ex := range l.Exercises {
				if def, ok := w.Exercise(ex.ID); ok {
					setsPlanned += def.Sets
				}
			}
		}

		// a malformed date key still counts, it only has no week bucket
		week, ok := weekStart(date)

		for _, ex := range l.Exercises {
			for _, set := range ex.SetsData {
				if !set.Qualifies() {
					continue
				}
				volume := set.Volume()
				totalVolume += volume
				setsCompleted++
				if ok {
					weekVolumes[week] += volume
				}

				if volume > maxVolumeByID[ex.ID] {
					newMaxEvents++
					maxVolumeByID[ex.ID] = volume
				}
			}
		}
	}

	weeks := make([]string, 0, len(weekVolumes))
	for week := range weekVolumes {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	series := make([]WeekVolume, 0, len(weeks))
	for _, week := range weeks {
		series = append(series, WeekVolume{
			WeekStart: week,
			Volume:    math.Round(weekVolumes[week]),
		})
	}

	return KPIs{
		TotalVolume:        totalVolume,
		ConsistencyScore:   ConsistencyScore(setsCompleted, setsPlanned),
		OverloadRatio:      OverloadRatio(newMaxEvents, setsCompleted),
		TotalSetsCompleted: setsCompleted,
		TotalSetsPlanned:   setsPlanned,
		NewMaxEvents:       newMaxEvents,
		WeeklyVolume:       series,
	}
}

// ConsistencyScore is the completed/planned percentage capped at 100, 0 without planned sets.
func ConsistencyScore(completed, planned int) int {
	if planned <= 0 {
		return 0
	}
	return int(math.Round(math.Min(100, 100*float64(completed)/float64(planned))))
}

// OverloadRatio is the percentage of completed sets that were new-max events.
func OverloadRatio(newMaxEvents, completed int) int {
	if completed <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(newMaxEvents) / float64(completed)))
}

// weekStart returns the Sunday on or before the date.
func weekStart(date string) (string, bool) {
	d, err := logs.ParseDate(date)
	if err != nil {
		return "", false
	}
	return logs.DateKey(d.AddDate(0, 0, -int(d.Weekday()))), true
}
