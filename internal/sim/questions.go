package sim

import (
	"strings"

	"classroom-sim-service/internal/domain"
)

// MisconceptionPrefix marks questions raised by a failed mini check.
const MisconceptionPrefix = "Misconception check:"

var (
	sharedStems = []string{
		"Can you give one concrete example?",
		"Why does this step work?",
		"What misconception should we avoid here?",
		"How is this different from a similar concept?",
		"Can we walk through one edge case?",
		"What should I memorize vs truly understand?",
	}
	curiosityStems = []string{
		"Why does this step work?",
		"How is this different from a similar concept?",
		"What happens if we change one part of this?",
		"Can you give one concrete example?",
	}
	rigorStems = []string{
		"What evidence shows this is actually true?",
		"Can we walk through one edge case?",
		"Where does this explanation break down?",
		"Is that always true, or only sometimes?",
	}
	practicalStems = []string{
		"Where would I use this in real life?",
		"Can you show the big picture before the details?",
		"What should I memorize vs truly understand?",
		"How would this help me solve a real problem?",
	}
	misconceptionStems = []string{
		"What misconception should we avoid here?",
		"I thought it worked the other way around. Which part did I get wrong?",
		"Can you re-teach this with a worked example?",
		"Which step do most people get wrong?",
	}
)

// QuestionProbability is the chance a student raises a hand after an explanation.
func QuestionProbability(s domain.Student, eval domain.Evaluation, rules Ruleset) float64 {
	p := rules.AskBase
	if s.SessionConfidence < rules.LowConfidenceThreshold {
		p += rules.LowConfidenceBonus
	}
	if s.SessionMastery < rules.LowMasteryThreshold {
		p += rules.LowMasteryBonus
	}
	p += s.Skepticism * rules.SkepticismWeight
	if eval.MasteryDelta > rules.HighQualityDelta {
		p -= rules.HighQualityPenalty
	}
	return ClampFloat(p, rules.AskMin, rules.AskMax)
}

// TickProbability is the chance a student asks something unprompted.
func TickProbability(s domain.Student, rules Ruleset) float64 {
	uncertainty := float64(100-s.SessionMastery) / 100
	return rules.TickAskBase + uncertainty*rules.TickUncertaintyWeight + s.Curiosity*rules.TickCuriosityWeight
}

// StemPool returns the question stems a student draws from.
func StemPool(s domain.Student, misconception bool, rules Ruleset) []string {
	if !rules.ArchetypeStems {
		return sharedStems
	}
	switch {
	case misconception:
		return misconceptionStems
	case s.Skepticism > 0.75:
		return rigorStems
	case strings.Contains(s.Archetype, "Practical"), strings.Contains(s.Archetype, "Big Picture"):
		return practicalStems
	default:
		return curiosityStems
	}
}

// NewQuestion draws a stem for the student and builds a queue entry.
func NewQuestion(s domain.Student, misconception bool, r Rand, rules Ruleset) domain.Question {
	pool := StemPool(s, misconception, rules)
	text := pool[r.Intn(len(pool))]
	if misconception {
		text = MisconceptionPrefix + " " + text
	}
	return domain.Question{
		StudentID:     s.ID,
		StudentName:   s.Name,
		Text:          text,
		Misconception: misconception,
	}
}
