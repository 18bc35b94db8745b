package sim

import (
	"strings"

	"classroom-sim-service/internal/domain"
)

var (
	exampleCues   = []string{"example", "for instance", "e.g.", "suppose"}
	reasoningCues = []string{"because", "therefore", "so that", "why"}
	structureCues = []string{"first", "second", "finally", "step", "then"}
)

// Evaluate scores an explanation with lexical cues.
// Cues match case-insensitively anywhere in the text.
func Evaluate(text string) domain.Evaluation {
	words := len(strings.Fields(text))
	lower := strings.ToLower(text)

	eval := domain.Evaluation{
		Words:           words,
		MasteryDelta:    2,
		ConfidenceDelta: 1,
		HasExample:      containsAny(lower, exampleCues),
		HasReasoning:    containsAny(lower, reasoningCues),
		HasStructure:    containsAny(lower, structureCues),
	}
	if words > 20 {
		eval.MasteryDelta = 6
	}
	if words > 12 {
		eval.ConfidenceDelta = 4
	}
	if eval.HasExample {
		eval.MasteryDelta += 4
	}
	if eval.HasReasoning {
		eval.MasteryDelta += 3
	}
	if eval.HasStructure {
		eval.ConfidenceDelta += 3
	}
	return eval
}

func containsAny(text string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}
