package program

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Slot is a day slot of the week, same numbering as time.Weekday (0 = Sunday).
type Slot int

// SlotUnknown marks logs which carry no slot (legacy records), those are resolved by name.
const SlotUnknown Slot = -1

const (
	DefaultLoadStep     = 2.5
	DefaultLoadIncrease = 0.025
)

var ErrInvalidRepRange = errors.New("invalid rep range")

type ExerciseDefinition struct {
	ID        int    `json:"id" toml:"id"`
	Name      string `json:"name" toml:"name"`
	Sets      int    `json:"sets" toml:"sets"`
	RepRange  string `json:"repRange" toml:"rep_range"`
	Rest      int    `json:"rest" toml:"rest"` // seconds
	Technique string `json:"technique" toml:"technique"`
	Muscle    string `json:"muscle" toml:"muscle"`
}

// Reps returns the parsed rep range bounds.
func (e ExerciseDefinition) Reps() (min, max int, err error) {
	return ParseRepRange(e.RepRange)
}

type WorkoutDefinition struct {
	Slot      Slot                 `json:"slot"`
	Name      string               `json:"name"`
	Exercises []ExerciseDefinition `json:"exercises"`
}

// Exercise returns the definition with the given id.
func (w *WorkoutDefinition) Exercise(id int) (ExerciseDefinition, bool) {
	for _, ex := range w.Exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return ExerciseDefinition{}, false
}

// PlannedSets is the sum of sets of all exercises in the workout.
func (w *WorkoutDefinition) PlannedSets() int {
	total := 0
	for _, ex := range w.Exercises {
		total += ex.Sets
	}
	return total
}

// Program is the immutable training configuration: schedule table, rotation
// and the load progression constants. Build it with New, Default or LoadFile.
type Program struct {
	workouts     map[Slot]WorkoutDefinition
	rotation     []Slot
	loadStep     float64
	loadIncrease float64
}

type Params struct {
	Workouts     []WorkoutDefinition
	Rotation     []Slot
	LoadStep     float64
	LoadIncrease float64
}

func New(params Params) (*Program, error) {
	if len(params.Rotation) == 0 {
		return nil, errors.New("rotation is empty")
	}
	if params.LoadStep <= 0 {
		return nil, fmt.Errorf("load step must be positive, got %v", params.LoadStep)
	}
	if params.LoadIncrease < 0 {
		return nil, fmt.Errorf("load increase must not be negative, got %v", params.LoadIncrease)
	}

	workouts := make(map[Slot]WorkoutDefinition, len(params.Workouts))
	names := make(map[string]Slot, len(params.Workouts))
	for _, w := range params.Workouts {
		if w.Slot < 0 || w.Slot > 6 {
			return nil, fmt.Errorf("workout %q: slot %d out of range", w.Name, w.Slot)
		}
		if _, ok := workouts[w.Slot]; ok {
			return nil, fmt.Errorf("slot %d defined twice", w.Slot)
		}
		if w.Name == "" {
			return nil, fmt.Errorf("slot %d: workout name empty", w.Slot)
		}
		if other, ok := names[w.Name]; ok {
			return nil, fmt.Errorf("workout name %q used by slots %d and %d", w.Name, other, w.Slot)
		}
		names[w.Name] = w.Slot

		ids := make(map[int]bool, len(w.Exercises))
		exercises := make([]ExerciseDefinition, len(w.Exercises))
		for i, ex := range w.Exercises {
			if ids[ex.ID] {
				return nil, fmt.Errorf("workout %q: exercise id %d defined twice", w.Name, ex.ID)
			}
			ids[ex.ID] = true
			if ex.Sets < 1 {
				return nil, fmt.Errorf("workout %q, exercise %d: sets must be positive", w.Name, ex.ID)
			}
			if _, _, err := ParseRepRange(ex.RepRange); err != nil {
				return nil, fmt.Errorf("workout %q, exercise %d: %w", w.Name, ex.ID, err)
			}
			exercises[i] = ex
		}
		w.Exercises = exercises
		workouts[w.Slot] = w
	}

	seen := make(map[Slot]bool, len(params.Rotation))
	for _, s := range params.Rotation {
		if _, ok := workouts[s]; !ok {
			return nil, fmt.Errorf("rotation slot %d has no workout", s)
		}
		if seen[s] {
			return nil, fmt.Errorf("rotation slot %d listed twice", s)
		}
		seen[s] = true
	}

	return &Program{
		workouts:     workouts,
		rotation:     append([]Slot(nil), params.Rotation...),
		loadStep:     params.LoadStep,
		loadIncrease: params.LoadIncrease,
	}, nil
}

func (p *Program) LoadStep() float64     { return p.loadStep }
func (p *Program) LoadIncrease() float64 { return p.loadIncrease }

// Rotation returns a copy of the rotation sequence.
func (p *Program) Rotation() []Slot {
	return append([]Slot(nil), p.rotation...)
}

// RotationIndex returns the index of the slot in the rotation, or -1.
func (p *Program) RotationIndex(slot Slot) int {
	for i, s := range p.rotation {
		if s == slot {
			return i
		}
	}
	return -1
}

// AtRotation returns the workout at the given rotation index, wrapping around.
func (p *Program) AtRotation(index int) *WorkoutDefinition {
	n := len(p.rotation)
	index = ((index % n) + n) % n
	w := p.workouts[p.rotation[index]]
	return &w
}

// IsRestDay reports whether the weekday is not part of the rotation.
func (p *Program) IsRestDay(day time.Weekday) bool {
	return p.RotationIndex(Slot(day)) < 0
}

// Workout returns the definition for the slot, if any.
func (p *Program) Workout(slot Slot) (*WorkoutDefinition, bool) {
	w, ok := p.workouts[slot]
	if !ok {
		return nil, false
	}
	return &w, true
}

// SlotByName resolves a workout name to its slot.
func (p *Program) SlotByName(name string) (Slot, bool) {
	for slot, w := range p.workouts {
		if w.Name == name {
			return slot, true
		}
	}
	return SlotUnknown, false
}

// ResolveSlot returns the workout a log belongs to: the stored slot when it is
// known, the name otherwise.
func (p *Program) ResolveSlot(slot Slot, name string) (*WorkoutDefinition, bool) {
	if slot != SlotUnknown {
		if w, ok := p.Workout(slot); ok {
			return w, true
		}
	}
	if s, ok := p.SlotByName(name); ok {
		return p.Workout(s)
	}
	return nil, false
}

// Workouts returns all workouts ordered by slot.
func (p *Program) Workouts() []WorkoutDefinition {
	list := make([]WorkoutDefinition, 0, len(p.workouts))
	for s := Slot(0); s <= 6; s++ {
		if w, ok := p.workouts[s]; ok {
			list = append(list, w)
		}
	}
	return list
}

// ParseRepRange parses "min-max" into inclusive bounds.
func ParseRepRange(repRange string) (min, max int, err error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(repRange), "-")
	if !found {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRepRange, repRange)
	}
	min, err = strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRepRange, repRange)
	}
	max, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRepRange, repRange)
	}
	if min < 0 || max < min {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRepRange, repRange)
	}
	return min, max, nil
}
