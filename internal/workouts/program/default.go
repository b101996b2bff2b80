package program

// Default returns the built-in four day upper/lower program:
// Monday, Tuesday, Thursday and Friday, rest on the other days.
func Default() *Program {
	p, err := New(Params{
		Workouts:     defaultWorkouts(),
		Rotation:     []Slot{1, 2, 4, 5},
		LoadStep:     DefaultLoadStep,
		LoadIncrease: DefaultLoadIncrease,
	})
	if err != nil {
		// the built-in table is static, so this is a programming error
		panic(err)
	}
	return p
}

func defaultWorkouts() []WorkoutDefinition {
	return []WorkoutDefinition{
		{
			Slot: 1,
			Name: "Upper A",
			Exercises: []ExerciseDefinition{
				{ID: 101, Name: "Bench Press", Sets: 3, RepRange: "6-8", Rest: 180, Technique: "Pause on chest, drive feet", Muscle: "chest"},
				{ID: 102, Name: "Barbell Row", Sets: 3, RepRange: "8-10", Rest: 120, Technique: "Flat back, pull to navel", Muscle: "back"},
				{ID: 103, Name: "Overhead Press", Sets: 3, RepRange: "8-10", Rest: 120, Technique: "Squeeze glutes, bar over mid-foot", Muscle: "shoulders"},
				{ID: 104, Name: "Lat Pulldown", Sets: 3, RepRange: "10-12", Rest: 90, Technique: "Elbows to ribs", Muscle: "back"},
				{ID: 105, Name: "Incline Dumbbell Curl", Sets: 2, RepRange: "10-12", Rest: 60, Technique: "Full stretch at the bottom", Muscle: "biceps"},
			},
		},
		{
			Slot: 2,
			Name: "Lower A",
			Exercises: []ExerciseDefinition{
				{ID: 201, Name: "Back Squat", Sets: 3, RepRange: "6-8", Rest: 180, Technique: "Brace, break at hips and knees together", Muscle: "legs"},
				{ID: 202, Name: "Romanian Deadlift", Sets: 3, RepRange: "8-10", Rest: 150, Technique: "Soft knees, hinge until hamstring stretch", Muscle: "hamstrings"},
				{ID: 203, Name: "Leg Press", Sets: 3, RepRange: "10-12", Rest: 120, Technique: "Do not lock out", Muscle: "legs"},
				{ID: 204, Name: "Standing Calf Raise", Sets: 3, RepRange: "12-15", Rest: 60, Technique: "Pause at the bottom", Muscle: "calves"},
			},
		},
		{
			Slot: 4,
			Name: "Upper B",
			Exercises: []ExerciseDefinition{
				{ID: 401, Name: "Incline Bench Press", Sets: 3, RepRange: "8-10", Rest: 150, Technique: "30 degree bench", Muscle: "chest"},
				{ID: 402, Name: "Weighted Pull-up", Sets: 3, RepRange: "6-8", Rest: 150, Technique: "Dead hang start", Muscle: "back"},
				{ID: 403, Name: "Seated Dumbbell Press", Sets: 3, RepRange: "10-12", Rest: 90, Technique: "Stop just short of lockout", Muscle: "shoulders"},
				{ID: 404, Name: "Cable Row", Sets: 3, RepRange: "10-12", Rest: 90, Technique: "Chest up, squeeze shoulder blades", Muscle: "back"},
				{ID: 405, Name: "Triceps Pushdown", Sets: 2, RepRange: "12-15", Rest: 60, Technique: "Elbows pinned", Muscle: "triceps"},
			},
		},
		{
			Slot: 5,
			Name: "Lower B",
			Exercises: []ExerciseDefinition{
				{ID: 501, Name: "Deadlift", Sets: 3, RepRange: "4-6", Rest: 180, Technique: "Bar over mid-foot, push the floor away", Muscle: "back"},
				{ID: 502, Name: "Front Squat", Sets: 3, RepRange: "6-8", Rest: 150, Technique: "Elbows high", Muscle: "legs"},
				{ID: 503, Name: "Walking Lunge", Sets: 2, RepRange: "10-12", Rest: 90, Technique: "Long stride, upright torso", Muscle: "legs"},
				{ID: 504, Name: "Seated Leg Curl", Sets: 3, RepRange: "10-12", Rest: 60, Technique: "Control the eccentric", Muscle: "hamstrings"},
			},
		},
	}
}
