package coach

import (
	"fmt"
	"strings"

	"github.com/2beens/liftlog/internal/workouts/kpi"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/progression"
)

const systemPrompt = `You are a strength coach reviewing a lifter's training log.
Give short, concrete advice for today's session: which sets to push, which to hold,
and whether recovery data suggests backing off. Answer in at most 6 sentences.`

type PromptInput struct {
	Date        string
	KPIs        kpi.KPIs
	Today       *logs.WorkoutLog
	Recovery    *logs.RecoveryLog
	Predictions map[int][]*progression.Target
}

// BuildPrompt renders the input as plain text. The output is deterministic so
// it can be used as a cache key.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	if in.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", in.Date)
	}

	b.WriteString("\nTraining summary:\n")
	fmt.Fprintf(&b, "- total volume: %.1f kg\n", in.KPIs.TotalVolume)
	fmt.Fprintf(&b, "- sets completed: %d of %d planned (consistency %d%%)\n",
		in.KPIs.TotalSetsCompleted, in.KPIs.TotalSetsPlanned, in.KPIs.ConsistencyScore)
	fmt.Fprintf(&b, "- new max events: %d (overload ratio %d%%)\n", in.KPIs.NewMaxEvents, in.KPIs.OverloadRatio)
	if n := len(in.KPIs.WeeklyVolume); n > 0 {
		recent := in.KPIs.WeeklyVolume
		if n > 4 {
			recent = recent[n-4:]
		}
		parts := make([]string, len(recent))
		for i, w := range recent {
			parts[i] = fmt.Sprintf("%s: %.1f", w.WeekStart, w.Volume)
		}
		fmt.Fprintf(&b, "- weekly volume: %s\n", strings.Join(parts, ", "))
	}

	if in.Recovery != nil {
		b.WriteString("\nRecovery:\n")
		writeRecovery(&b, *in.Recovery)
	}

	if in.Today == nil {
		b.WriteString("\nToday is a rest day.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nToday's workout: %s\n", in.Today.Name)
	for _, ex := range in.Today.Exercises {
		fmt.Fprintf(&b, "* %s (%d sets, %s reps)\n", ex.Name, ex.Sets, ex.RepRange)
		targets := in.Predictions[ex.ID]
		for i, set := range ex.SetsData {
			line := fmt.Sprintf("  set %d: %.1f kg x %d", set.Set, set.Weight, set.Reps)
			if set.IsDone {
				line += " done"
			}
			if i < len(targets) && targets[i] != nil {
				line += fmt.Sprintf(" | target %.1f kg x %d (%s)", targets[i].Weight, targets[i].Reps, targets[i].Phase)
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

func writeRecovery(b *strings.Builder, r logs.RecoveryLog) {
	var lines []string
	if r.SleepHours != nil {
		lines = append(lines, fmt.Sprintf("- sleep: %.1f h", *r.SleepHours))
	}
	if r.HRV != nil {
		lines = append(lines, fmt.Sprintf("- hrv: %.0f ms", *r.HRV))
	}
	if r.Readiness != nil {
		lines = append(lines, fmt.Sprintf("- readiness: %d/10", *r.Readiness))
	}
	if r.Soreness != nil {
		lines = append(lines, fmt.Sprintf("- soreness: %d/10", *r.Soreness))
	}
	if r.CardioDuration != nil {
		lines = append(lines, fmt.Sprintf("- cardio: %.0f min", *r.CardioDuration))
	}
	if r.CardioNotes != nil && *r.CardioNotes != "" {
		lines = append(lines, "- cardio notes: "+*r.CardioNotes)
	}
	if len(lines) == 0 {
		lines = append(lines, "- nothing logged")
	}
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
}
