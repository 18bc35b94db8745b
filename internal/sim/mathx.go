// Package sim holds the classroom simulation rules: how explanations, mini
// checks, responses and the passage of time move student mastery and
// confidence, and when students raise their hands.
//
// Every function works on an explicit Classroom value and draws randomness from
// an injected Rand, so callers own concurrency and tests can script outcomes.
package sim

import "math"

// Rand is the randomness capability the rules need.
// *math/rand.Rand satisfies it.
type Rand interface {
	// Float64 returns a uniform draw in [0, 1).
	Float64() float64
	// Intn returns a uniform draw in [0, n).
	Intn(n int) int
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat bounds v to [lo, hi].
func ClampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// RandomInt returns a uniform integer in [min, max], both inclusive.
func RandomInt(r Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// Average returns the arithmetic mean, or 0 for an empty slice.
func Average(nums []int) float64 {
	if len(nums) == 0 {
		return 0
	}
	total := 0
	for _, n := range nums {
		total += n
	}
	return float64(total) / float64(len(nums))
}

func clampStat(v int) int {
	return Clamp(v, 0, 100)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
