package sim_test

import (
	"testing"
	"time"

	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPresetsValidate(t *testing.T) {
	for _, name := range []string{"", sim.RulesetArchetype, sim.RulesetFlat} {
		rules, err := sim.Preset(name)
		require.NoError(t, err)
		require.NoError(t, rules.Validate(), name)
	}
	_, err := sim.Preset("chaos")
	assert.Error(t, err)
}

func TestLoadAppliesOverrides(t *testing.T) {
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`
reviewThreshold: 60
tickInterval: 2s
respondMasteryGain: {min: 1, max: 3}
durations:
  quick: 5m
`), &node))

	rules, err := sim.Load(sim.RulesetArchetype, &node)
	require.NoError(t, err)
	assert.Equal(t, 60.0, rules.ReviewThreshold)
	assert.Equal(t, 2*time.Second, rules.TickInterval)
	assert.Equal(t, sim.IntRange{Min: 1, Max: 3}, rules.RespondMasteryGain)
	assert.Equal(t, 5*time.Minute, rules.Duration(domain.ModeQuick))
	assert.Equal(t, 45*time.Minute, rules.Duration(domain.ModeDeep), "untouched modes keep preset values")
	assert.Equal(t, 0.12, rules.AskBase)
}

func TestLoadRejectsInvertedRanges(t *testing.T) {
	for _, raw := range []string{
		`masteryJitter: {min: 5, max: 1}`,
		`askMax: 3`,
		`askMin: -0.1`,
		`misconceptionChance: 1.5`,
		`tickDecayChance: -1`,
	} {
		var node yaml.Node
		require.NoError(t, yaml.Unmarshal([]byte(raw), &node))
		_, err := sim.Load(sim.RulesetFlat, &node)
		assert.Error(t, err, raw)
	}
}

func TestLoadWithoutOverrides(t *testing.T) {
	rules, err := sim.Load(sim.RulesetFlat, nil)
	require.NoError(t, err)
	assert.Equal(t, sim.FlatRules().AskBase, rules.AskBase)
}
