package testinternals

import (
	"time"

	"github.com/Flynotfly/gymstat/internal/bodymetrics"
	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/internal/training/fields"
)

// Internals bundles a seeded fake backend and the seeded entities, for tests
// that drive the whole client stack.
type Internals struct {
	Backend *Backend

	BenchPress training.ExerciseTemplate
	Running    training.ExerciseTemplate
	Plank      training.ExerciseTemplate

	InitialTraining training.Training
	BodyWeight      bodymetrics.Metric
}

func NewTestingInternals() *Internals {
	backend := NewBackend()

	seeded := backend.SeedExerciseTemplates(
		training.ExerciseTemplate{
			Name:   "Bench press",
			Fields: []fields.Name{fields.Weight, fields.Reps},
			Tags:   []string{"chest"},
		},
		training.ExerciseTemplate{
			Name:   "Running",
			Fields: []fields.Name{fields.Distance, fields.Time},
			Tags:   []string{"cardio"},
		},
		training.ExerciseTemplate{
			Name:    "Plank",
			Fields:  []fields.Name{fields.Time},
			Tags:    []string{"core"},
			IsAdmin: true,
		},
	)

	initial := backend.SeedTraining(training.NewTraining{
		Conducted: time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC),
		Title:     "Push day",
		Notes: []training.TrainingNote{
			{Name: "Mood", Field: fields.KindFiveStar, Required: true, Value: "4"},
		},
		Exercises: []training.Exercise{
			{
				Template: seeded[0].ID,
				Order:    1,
				Units:    map[string]string{"weight": "kg"},
				Sets:     []training.SetData{{"weight": 80.0, "reps": 8.0}},
			},
		},
	})

	bodyWeight := backend.SeedMetric(bodymetrics.Metric{Name: "Body weight", Unit: "kg"})

	return &Internals{
		Backend:         backend,
		BenchPress:      seeded[0],
		Running:         seeded[1],
		Plank:           seeded[2],
		InitialTraining: initial,
		BodyWeight:      bodyWeight,
	}
}

func (i *Internals) Close() {
	i.Backend.Close()
}
