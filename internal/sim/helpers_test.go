package sim_test

import (
	"fmt"
	"time"

	"classroom-sim-service/internal/sim"
)

// edgeRand pins every draw to one end of its range.
// high=true: Float64 returns 0 (every chance succeeds) and Intn the maximum.
type edgeRand struct {
	high bool
}

func (r edgeRand) Float64() float64 {
	if r.high {
		return 0
	}
	return 0.999999
}

func (r edgeRand) Intn(n int) int {
	if r.high {
		return n - 1
	}
	return 0
}

var (
	lowRand  = edgeRand{high: false}
	highRand = edgeRand{high: true}
)

var baseTime = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(rules sim.Ruleset, r sim.Rand) (*sim.Engine, *testClock) {
	clock := &testClock{now: baseTime}
	seq := 0
	engine := &sim.Engine{
		Rules: rules,
		Rand:  r,
		Now:   clock.Now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("lesson-%d", seq)
		},
	}
	return engine, clock
}
