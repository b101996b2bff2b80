package progression

import (
	"math"

	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/program"
	"github.com/2beens/liftlog/internal/workouts/selector"
)

// roundingEpsilon keeps exact multiples of the load step from being pushed one step up by float error.
const roundingEpsilon = 1e-9

type Phase string

const (
	PhaseFloor     Phase = "floor"
	PhaseIncrement Phase = "increment"
	PhaseLoadUp    Phase = "load_up"
)

type Target struct {
	Weight float64 `json:"targetWeight"`
	Reps   int     `json:"targetReps"`
	Phase  Phase   `json:"phase"`
}

// PredictNextSet applies double progression to the prior set: reach the floor
// of the rep range, then add one rep per session, then raise the load and
// reset the reps once the ceiling is reached. Returns nil without a prior set,
// when the prior weight is 0, or when the rep range is malformed.
func PredictNextSet(p *program.Program, def program.ExerciseDefinition, prior *logs.SetRecord) *Target {
	if prior == nil || prior.Weight <= 0 {
		return nil
	}
	minReps, maxReps, err := def.Reps()
	if err != nil {
		return nil
	}

	switch {
	case prior.Reps < minReps:
		return &Target{Weight: prior.Weight, Reps: minReps, Phase: PhaseFloor}
	case prior.Reps < maxReps:
		return &Target{Weight: prior.Weight, Reps: prior.Reps + 1, Phase: PhaseIncrement}
	default:
		return &Target{
			Weight: LoadUp(prior.Weight, p.LoadIncrease(), p.LoadStep()),
			Reps:   minReps,
			Phase:  PhaseLoadUp,
		}
	}
}

// LoadUp raises the weight by the increase factor, rounded up to the next step.
func LoadUp(weight, increase, step float64) float64 {
	steps := math.Ceil(weight*(1+increase)/step - roundingEpsilon)
	return steps * step
}

// PriorSet returns the set at the same index of the same exercise from the
// most recent completed log of the same workout dated before the given date.
func PriorSet(
	p *program.Program,
	history logs.History,
	before string,
	slot program.Slot,
	exerciseID, set int,
) *logs.SetRecord {
	for _, date := range selector.CompletedDates(history) {
		if date >= before {
			continue
		}
		l := history[date]
		w, ok := p.ResolveSlot(l.Slot, l.Name)
		if !ok || w.Slot != slot {
			continue
		}
		ex := l.Exercise(exerciseID)
		if ex == nil {
			return nil
		}
		rec, ok := ex.SetAt(set)
		if !ok {
			return nil
		}
		return &rec
	}
	return nil
}

// PredictWorkout returns the targets of every set position of the workout,
// keyed by exercise id. Positions without a usable prior set are nil.
func PredictWorkout(
	p *program.Program,
	workout *program.WorkoutDefinition,
	history logs.History,
	date string,
) map[int][]*Target {
	predictions := make(map[int][]*Target, len(workout.Exercises))
	for _, def := range workout.Exercises {
		targets := make([]*Target, def.Sets)
		for i := range targets {
			prior := PriorSet(p, history, date, workout.Slot, def.ID, i+1)
			targets[i] = PredictNextSet(p, def, prior)
		}
		predictions[def.ID] = targets
	}
	return predictions
}
