package sim_test

import (
	"fmt"
	"testing"
	"time"

	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateStreak(t *testing.T) {
	day := time.Date(2024, 3, 11, 22, 30, 0, 0, time.UTC)

	first := sim.UpdateStreak(domain.Streak{}, day)
	assert.Equal(t, domain.Streak{Days: 1, LastDate: "2024-03-11"}, first)

	same := sim.UpdateStreak(first, day.Add(time.Hour/2))
	assert.Equal(t, first, same, "same calendar day leaves the streak alone")

	next := sim.UpdateStreak(first, day.Add(24*time.Hour))
	assert.Equal(t, domain.Streak{Days: 2, LastDate: "2024-03-12"}, next)

	gap := sim.UpdateStreak(next, day.Add(72*time.Hour))
	assert.Equal(t, domain.Streak{Days: 1, LastDate: "2024-03-14"}, gap)
}

func TestUpdateStreakAcrossMonth(t *testing.T) {
	streak := domain.Streak{Days: 4, LastDate: "2024-02-29"}
	got := sim.UpdateStreak(streak, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, 5, got.Days)
}

func TestAppendHistoryCapsAndOrders(t *testing.T) {
	var history []domain.HistorySummary
	for i := 0; i < 25; i++ {
		var added bool
		history, added = sim.AppendHistory(history, domain.HistorySummary{LessonID: fmt.Sprintf("l-%d", i)}, 20)
		require.True(t, added)
	}
	require.Len(t, history, 20)
	assert.Equal(t, "l-24", history[0].LessonID)
	assert.Equal(t, "l-5", history[19].LessonID)
}

func TestAppendHistoryDedupes(t *testing.T) {
	history, _ := sim.AppendHistory(nil, domain.HistorySummary{LessonID: "l-1", Mastery: 40}, 20)
	history, added := sim.AppendHistory(history, domain.HistorySummary{LessonID: "l-1", Mastery: 80}, 20)
	assert.False(t, added)
	require.Len(t, history, 1)
	assert.Equal(t, 40, history[0].Mastery)
}

func TestLevelForXP(t *testing.T) {
	cases := map[int]int{0: 1, 119: 1, 120: 2, 239: 2, 250: 3, -5: 1}
	for xp, level := range cases {
		assert.Equal(t, level, sim.LevelForXP(xp, 120), "xp %d", xp)
	}
}

func TestMathHelpers(t *testing.T) {
	assert.Equal(t, 0, sim.Clamp(-4, 0, 100))
	assert.Equal(t, 100, sim.Clamp(140, 0, 100))
	assert.Equal(t, 0.0, sim.Average(nil))
	assert.InDelta(t, 2.5, sim.Average([]int{1, 4}), 1e-9)
	assert.Equal(t, 3, sim.RandomInt(lowRand, 3, 9))
	assert.Equal(t, 9, sim.RandomInt(highRand, 3, 9))
	assert.Equal(t, 5, sim.RandomInt(highRand, 5, 5))
}
