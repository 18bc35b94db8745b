package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"classroom-sim-service/internal/config"
	"classroom-sim-service/internal/domain"
)

func TestRunSimulationPrintsReflection(t *testing.T) {
	cfg := config.Config{}
	cfg.Log.Mode = "prod"
	cfg.Classroom.Seed = 42

	opts := simulateOptions{
		topic: "Fractions",
		mode:  string(domain.ModeQuick),
		explanations: []string{
			"First, a fraction names equal parts because we split one whole. For example, half a pizza is one of two slices.",
			"Then compare fractions by the size of each part, so that bigger denominators mean smaller slices.",
		},
		checks:  1,
		respond: true,
	}

	var out bytes.Buffer
	if err := runSimulation(context.Background(), cfg, opts, &out); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	var result struct {
		Reflection domain.Reflection `json:"reflection"`
		Students   []domain.Student  `json:"students"`
		Streak     domain.Streak     `json:"streak"`
	}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if result.Reflection.Topic != "Fractions" || result.Reflection.Mode != domain.ModeQuick {
		t.Fatalf("unexpected reflection %+v", result.Reflection)
	}
	if result.Reflection.Explanations != 2 || result.Reflection.Checks != 1 {
		t.Fatalf("expected 2 explanations and 1 check, got %+v", result.Reflection)
	}
	if len(result.Students) != 6 || len(result.Reflection.Students) != 6 {
		t.Fatalf("expected six students, got %d", len(result.Students))
	}
	if result.Streak.Days != 1 {
		t.Fatalf("expected a one day streak, got %+v", result.Streak)
	}
	for _, s := range result.Students {
		if s.XP <= 0 {
			t.Fatalf("expected every student to earn xp, got %+v", s)
		}
	}
}

func TestRunSimulationRejectsEmptyTopic(t *testing.T) {
	opts := simulateOptions{mode: string(domain.ModeStandard)}
	cfg := config.Config{}
	cfg.Log.Mode = "prod"
	err := runSimulation(context.Background(), cfg, opts, &bytes.Buffer{})
	if err != domain.ErrEmptyTopic {
		t.Fatalf("expected empty topic error, got %v", err)
	}
}
