package sim

import (
	"fmt"

	"classroom-sim-service/internal/domain"
)

// Moods shown next to each student.
const (
	MoodReady     = "ready"
	MoodGettingIt = "getting it"
	MoodConfused  = "confused"
	MoodEngaged   = "engaged"
	MoodClarified = "clarified"
)

// Archetypes is the fixed roster profile, one per seat.
var Archetypes = []domain.Archetype{
	{Label: "Curious Fox", Style: "asks many why/how questions", Curiosity: 0.9, Skepticism: 0.35, Affinity: domain.AffinityReasoning},
	{Label: "Skeptical Owl", Style: "challenges weak logic", Curiosity: 0.5, Skepticism: 0.9, Affinity: domain.AffinityReasoning},
	{Label: "Shy Rabbit", Style: "needs examples and reassurance", Curiosity: 0.3, Skepticism: 0.2, Affinity: domain.AffinityExample},
	{Label: "Detail Beaver", Style: "wants precise terminology", Curiosity: 0.6, Skepticism: 0.6, Affinity: domain.AffinityStructure},
	{Label: "Big Picture Bear", Style: "asks for intuition first", Curiosity: 0.7, Skepticism: 0.3, Affinity: domain.AffinityExample},
	{Label: "Practical Squirrel", Style: "demands real-world use cases", Curiosity: 0.5, Skepticism: 0.5, Affinity: domain.AffinityExample},
}

var studentNames = []string{"Milo", "Nori", "Poppy", "Jun", "Tama", "Coco"}

// StudentID returns the stable key of the seat at index i.
func StudentID(i int) string {
	return fmt.Sprintf("s-%d", i)
}

// NewRoster seats one freshly randomized student per archetype.
func NewRoster(r Rand, rules Ruleset) []domain.Student {
	students := make([]domain.Student, 0, len(Archetypes))
	for i, a := range Archetypes {
		mastery := rules.InitialMastery.draw(r)
		confidence := rules.InitialConfidence.draw(r)
		students = append(students, domain.Student{
			ID:                StudentID(i),
			Name:              studentNames[i],
			Archetype:         a.Label,
			Style:             a.Style,
			Curiosity:         a.Curiosity,
			Skepticism:        a.Skepticism,
			Affinity:          a.Affinity,
			Mastery:           mastery,
			Confidence:        confidence,
			SessionMastery:    mastery,
			SessionConfidence: confidence,
			Level:             1,
			Mood:              MoodReady,
		})
	}
	return students
}

// ValidRoster reports whether a loaded roster still matches the fixed seating.
func ValidRoster(students []domain.Student) bool {
	if len(students) != len(Archetypes) {
		return false
	}
	for i, s := range students {
		if s.ID != StudentID(i) || s.Archetype != Archetypes[i].Label {
			return false
		}
	}
	return true
}

// NormalizeRoster clamps stats and re-derives levels on a loaded roster.
// Personality fields always come from the archetype table, never the blob.
func NormalizeRoster(students []domain.Student, rules Ruleset) {
	for i := range students {
		s := &students[i]
		a := Archetypes[i]
		s.Name = studentNames[i]
		s.Archetype = a.Label
		s.Style = a.Style
		s.Curiosity = a.Curiosity
		s.Skepticism = a.Skepticism
		s.Affinity = a.Affinity
		s.Mastery = clampStat(s.Mastery)
		s.Confidence = clampStat(s.Confidence)
		s.SessionMastery = clampStat(s.SessionMastery)
		s.SessionConfidence = clampStat(s.SessionConfidence)
		if s.XP < 0 {
			s.XP = 0
		}
		s.Level = LevelForXP(s.XP, rules.XPPerLevel)
	}
}

// LevelForXP returns floor(xp/perLevel)+1.
func LevelForXP(xp, perLevel int) int {
	if perLevel <= 0 || xp <= 0 {
		return 1
	}
	return xp/perLevel + 1
}

// MoodFor maps session stats to a mood label.
func MoodFor(mastery, confidence int, rules Ruleset) string {
	switch {
	case mastery > rules.MoodPositiveMastery:
		return MoodGettingIt
	case confidence < rules.MoodNegativeConfidence:
		return MoodConfused
	default:
		return MoodEngaged
	}
}

func addXP(s *domain.Student, gain, perLevel int) bool {
	before := s.Level
	if gain > 0 {
		s.XP += gain
	}
	s.Level = LevelForXP(s.XP, perLevel)
	return s.Level > before
}

func affinityBoost(s domain.Student, eval domain.Evaluation, rules Ruleset) int {
	hit := false
	switch s.Affinity {
	case domain.AffinityExample:
		hit = eval.HasExample
	case domain.AffinityReasoning:
		hit = eval.HasReasoning
	case domain.AffinityStructure:
		hit = eval.HasStructure
	}
	if hit {
		return rules.AffinityBoost
	}
	return 0
}
