package program

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// programToml is the file representation of a program:
//
//	rotation = [1, 2, 4, 5]
//	load_step = 2.5
//	load_increase = 0.025
//
//	[[workouts]]
//	slot = 1
//	name = "Upper A"
//	  [[workouts.exercises]]
//	  id = 101
//	  name = "Bench Press"
//	  sets = 3
//	  rep_range = "6-8"
type programToml struct {
	Rotation     []int         `toml:"rotation"`
	LoadStep     float64       `toml:"load_step"`
	LoadIncrease *float64      `toml:"load_increase"`
	Workouts     []workoutToml `toml:"workouts"`
}

type workoutToml struct {
	Slot      int                  `toml:"slot"`
	Name      string               `toml:"name"`
	Exercises []ExerciseDefinition `toml:"exercises"`
}

// LoadFile reads a program from a TOML file. Missing load constants fall back to the defaults.
func LoadFile(path string) (*Program, error) {
	var pt programToml
	if _, err := toml.DecodeFile(path, &pt); err != nil {
		return nil, fmt.Errorf("decode program file: %w", err)
	}
	return pt.toProgram()
}

// Parse reads a program from TOML data.
func Parse(data string) (*Program, error) {
	var pt programToml
	if _, err := toml.Decode(data, &pt); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	return pt.toProgram()
}

func (pt programToml) toProgram() (*Program, error) {
	params := Params{
		LoadStep:     pt.LoadStep,
		LoadIncrease: DefaultLoadIncrease,
	}
	if params.LoadStep == 0 {
		params.LoadStep = DefaultLoadStep
	}
	if pt.LoadIncrease != nil {
		params.LoadIncrease = *pt.LoadIncrease
	}
	for _, s := range pt.Rotation {
		params.Rotation = append(params.Rotation, Slot(s))
	}
	for _, w := range pt.Workouts {
		params.Workouts = append(params.Workouts, WorkoutDefinition{
			Slot:      Slot(w.Slot),
			Name:      w.Name,
			Exercises: w.Exercises,
		})
	}

	p, err := New(params)
	if err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}
	return p, nil
}
