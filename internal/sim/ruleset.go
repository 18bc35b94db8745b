package sim

import (
	"fmt"
	"time"

	"classroom-sim-service/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	// RulesetArchetype is the walk-around classroom: weighted archetypes,
	// persisted roster and a passive tick.
	RulesetArchetype = "archetype"
	// RulesetFlat is the single-page classroom: a fresh roster every lesson
	// and one shared question pool.
	RulesetFlat = "flat"
)

// IntRange is an inclusive integer range used for random magnitudes.
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

func (r IntRange) draw(rnd Rand) int {
	return RandomInt(rnd, r.Min, r.Max)
}

// Ruleset holds every tunable constant of the simulation.
type Ruleset struct {
	Name string `yaml:"-" json:"name"`

	// Hand-raising after an explanation.
	AskBase                float64 `yaml:"askBase"`
	LowConfidenceThreshold int     `yaml:"lowConfidenceThreshold"`
	LowConfidenceBonus     float64 `yaml:"lowConfidenceBonus"`
	LowMasteryThreshold    int     `yaml:"lowMasteryThreshold"`
	LowMasteryBonus        float64 `yaml:"lowMasteryBonus"`
	SkepticismWeight       float64 `yaml:"skepticismWeight"`
	HighQualityDelta       int     `yaml:"highQualityDelta"`
	HighQualityPenalty     float64 `yaml:"highQualityPenalty"`
	AskMin                 float64 `yaml:"askMin"`
	AskMax                 float64 `yaml:"askMax"`
	ArchetypeStems         bool    `yaml:"archetypeStems"`

	// Teaching.
	AffinityBoost          int      `yaml:"affinityBoost"`
	MasteryJitter          IntRange `yaml:"masteryJitter"`
	ConfidenceJitter       IntRange `yaml:"confidenceJitter"`
	MoodPositiveMastery    int      `yaml:"moodPositiveMastery"`
	MoodNegativeConfidence int      `yaml:"moodNegativeConfidence"`

	// Mini checks.
	ReviewThreshold      float64  `yaml:"reviewThreshold"`
	ReviewConfidenceDrop IntRange `yaml:"reviewConfidenceDrop"`
	MisconceptionChance  float64  `yaml:"misconceptionChance"`
	CheckMasteryGain     IntRange `yaml:"checkMasteryGain"`
	CheckConfidenceGain  IntRange `yaml:"checkConfidenceGain"`

	// Answering a raised hand.
	RespondConfidenceGain IntRange `yaml:"respondConfidenceGain"`
	RespondMasteryGain    IntRange `yaml:"respondMasteryGain"`

	// Passive classroom behaviour between actions.
	TickEnabled           bool          `yaml:"tickEnabled"`
	TickInterval          time.Duration `yaml:"tickInterval"`
	TickAskBase           float64       `yaml:"tickAskBase"`
	TickUncertaintyWeight float64       `yaml:"tickUncertaintyWeight"`
	TickCuriosityWeight   float64       `yaml:"tickCuriosityWeight"`
	TickDecayChance       float64       `yaml:"tickDecayChance"`
	TickConfidenceDecay   IntRange      `yaml:"tickConfidenceDecay"`

	// Planned lesson length per mode; exceeding it raises an advisory notice.
	Durations map[domain.Mode]time.Duration `yaml:"durations"`

	// Progression at lesson end.
	XPGainWeight     float64  `yaml:"xpGainWeight"`
	XPBonus          IntRange `yaml:"xpBonus"`
	XPQualityDivisor float64  `yaml:"xpQualityDivisor"`
	XPPerLevel       int      `yaml:"xpPerLevel"`
	FoldOldWeight    float64  `yaml:"foldOldWeight"`
	PersistRoster    bool     `yaml:"persistRoster"`

	// Fresh roster defaults.
	InitialMastery    IntRange `yaml:"initialMastery"`
	InitialConfidence IntRange `yaml:"initialConfidence"`

	// History.
	HistoryCap int `yaml:"historyCap"`
	// AutoSummaryExplanations > 0 logs a summary mid-lesson once the class
	// clears AutoSummaryMastery after that many explanations.
	AutoSummaryExplanations int `yaml:"autoSummaryExplanations"`
	AutoSummaryMastery      int `yaml:"autoSummaryMastery"`
}

// ArchetypeRules returns the walk-around classroom preset.
func ArchetypeRules() Ruleset {
	return Ruleset{
		Name:                   RulesetArchetype,
		AskBase:                0.12,
		LowConfidenceThreshold: 40,
		LowConfidenceBonus:     0.22,
		LowMasteryThreshold:    50,
		LowMasteryBonus:        0.20,
		SkepticismWeight:       0.08,
		HighQualityDelta:       10,
		HighQualityPenalty:     0.10,
		AskMin:                 0.05,
		AskMax:                 0.80,
		ArchetypeStems:         true,

		AffinityBoost:          2,
		MasteryJitter:          IntRange{Min: -2, Max: 4},
		ConfidenceJitter:       IntRange{Min: -2, Max: 3},
		MoodPositiveMastery:    72,
		MoodNegativeConfidence: 35,

		ReviewThreshold:      56,
		ReviewConfidenceDrop: IntRange{Min: 3, Max: 9},
		MisconceptionChance:  0.62,
		CheckMasteryGain:     IntRange{Min: 2, Max: 7},
		CheckConfidenceGain:  IntRange{Min: 1, Max: 4},

		RespondConfidenceGain: IntRange{Min: 5, Max: 12},
		RespondMasteryGain:    IntRange{Min: 2, Max: 8},

		TickEnabled:           true,
		TickInterval:          5 * time.Second,
		TickAskBase:           0.07,
		TickUncertaintyWeight: 0.25,
		TickCuriosityWeight:   0.07,
		TickDecayChance:       0.18,
		TickConfidenceDecay:   IntRange{Min: 1, Max: 3},
		Durations:             defaultDurations(),

		XPGainWeight:     0.4,
		XPBonus:          IntRange{Min: 4, Max: 10},
		XPQualityDivisor: 20,
		XPPerLevel:       120,
		FoldOldWeight:    0.6,
		PersistRoster:    true,

		InitialMastery:    IntRange{Min: 18, Max: 45},
		InitialConfidence: IntRange{Min: 25, Max: 55},

		HistoryCap: 20,
	}
}

// FlatRules returns the single-page classroom preset.
func FlatRules() Ruleset {
	r := ArchetypeRules()
	r.Name = RulesetFlat
	r.AskBase = 0.18
	r.LowConfidenceBonus = 0.20
	r.SkepticismWeight = 0
	r.AskMax = 0.75
	r.ArchetypeStems = false
	r.AffinityBoost = 0
	r.MoodPositiveMastery = 70
	r.ReviewThreshold = 55
	r.MisconceptionChance = 0.65
	r.TickEnabled = false
	r.PersistRoster = false
	r.AutoSummaryExplanations = 3
	r.AutoSummaryMastery = 65
	return r
}

// Preset returns the named ruleset. An empty name selects the archetype preset.
func Preset(name string) (Ruleset, error) {
	switch name {
	case "", RulesetArchetype:
		return ArchetypeRules(), nil
	case RulesetFlat:
		return FlatRules(), nil
	default:
		return Ruleset{}, fmt.Errorf("unknown ruleset %q", name)
	}
}

// Load resolves the named preset and decodes overrides on top of it.
// Keys absent from overrides keep their preset values.
func Load(name string, overrides *yaml.Node) (Ruleset, error) {
	rules, err := Preset(name)
	if err != nil {
		return Ruleset{}, err
	}
	if overrides != nil && overrides.Kind != 0 {
		if err := overrides.Decode(&rules); err != nil {
			return Ruleset{}, fmt.Errorf("decode %s rule overrides: %w", rules.Name, err)
		}
	}
	if err := rules.Validate(); err != nil {
		return Ruleset{}, err
	}
	return rules, nil
}

// Duration returns the planned length of a lesson in the given mode.
func (r Ruleset) Duration(mode domain.Mode) time.Duration {
	if d, ok := r.Durations[mode]; ok {
		return d
	}
	return defaultDurations()[domain.ModeStandard]
}

// Validate rejects rulesets that would break the stat invariants.
func (r Ruleset) Validate() error {
	ranges := map[string]IntRange{
		"masteryJitter":         r.MasteryJitter,
		"confidenceJitter":      r.ConfidenceJitter,
		"reviewConfidenceDrop":  r.ReviewConfidenceDrop,
		"checkMasteryGain":      r.CheckMasteryGain,
		"checkConfidenceGain":   r.CheckConfidenceGain,
		"respondConfidenceGain": r.RespondConfidenceGain,
		"respondMasteryGain":    r.RespondMasteryGain,
		"tickConfidenceDecay":   r.TickConfidenceDecay,
		"xpBonus":               r.XPBonus,
		"initialMastery":        r.InitialMastery,
		"initialConfidence":     r.InitialConfidence,
	}
	for name, rg := range ranges {
		if rg.Min > rg.Max {
			return fmt.Errorf("ruleset %s: %s min %d above max %d", r.Name, name, rg.Min, rg.Max)
		}
	}
	probabilities := map[string]float64{
		"askMin":              r.AskMin,
		"askMax":              r.AskMax,
		"misconceptionChance": r.MisconceptionChance,
		"tickDecayChance":     r.TickDecayChance,
	}
	for name, p := range probabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("ruleset %s: %s must be within [0,1]", r.Name, name)
		}
	}
	if r.AskMin > r.AskMax {
		return fmt.Errorf("ruleset %s: askMin above askMax", r.Name)
	}
	if r.XPBonus.Min < 0 {
		return fmt.Errorf("ruleset %s: xpBonus must not be negative", r.Name)
	}
	if r.XPPerLevel <= 0 {
		return fmt.Errorf("ruleset %s: xpPerLevel must be positive", r.Name)
	}
	if r.XPQualityDivisor <= 0 {
		return fmt.Errorf("ruleset %s: xpQualityDivisor must be positive", r.Name)
	}
	if r.FoldOldWeight < 0 || r.FoldOldWeight > 1 {
		return fmt.Errorf("ruleset %s: foldOldWeight must be within [0,1]", r.Name)
	}
	if r.HistoryCap <= 0 {
		return fmt.Errorf("ruleset %s: historyCap must be positive", r.Name)
	}
	if r.TickEnabled && r.TickInterval <= 0 {
		return fmt.Errorf("ruleset %s: tickInterval must be positive", r.Name)
	}
	return nil
}

func defaultDurations() map[domain.Mode]time.Duration {
	return map[domain.Mode]time.Duration{
		domain.ModeQuick:    10 * time.Minute,
		domain.ModeStandard: 25 * time.Minute,
		domain.ModeDeep:     45 * time.Minute,
	}
}
