package volume

import (
	"math"
	"strings"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/muscles"
)

const (
	primaryWeight   = 1.0
	secondaryWeight = 0.5
)

// Variance compares achieved volume for one muscle against its target.
type Variance struct {
	Target  float64 `json:"target"`
	Actual  float64 `json:"actual"`
	Diff    float64 `json:"diff"`
	Percent int     `json:"percent"`
}

// Attributor resolves which muscles an exercise trains.
type Attributor interface {
	Resolve(ex types.Exercise) muscles.Attribution
}

// Compute returns one Variance per muscle in target. Muscles only present in
// actual are not reported.
func Compute(target, actual map[string]float64) map[string]Variance {
	out := make(map[string]Variance, len(target))
	for muscle, t := range target {
		a := actual[muscle]
		diff := a - t
		pct := 0
		if t > 0 {
			// Halves round up, so -12.5 is -12 and 12.5 is 13.
			pct = int(math.Floor(diff/t*100 + 0.5))
		}
		out[muscle] = Variance{Target: t, Actual: a, Diff: diff, Percent: pct}
	}
	return out
}

// NormalizeExerciseName is the key used to match set logs to exercises.
func NormalizeExerciseName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CountSets tallies non-skipped sets per normalized exercise name.
func CountSets(logs []*types.SetLog) map[string]int {
	out := map[string]int{}
	for _, l := range logs {
		if l == nil || l.Skipped {
			continue
		}
		key := NormalizeExerciseName(l.ExerciseName)
		if key == "" {
			continue
		}
		out[key]++
	}
	return out
}

// ActualVolume sums weighted set counts per muscle across a workout's exercises.
// Exercises the attributor cannot place are skipped.
func ActualVolume(exercises []types.Exercise, setCounts map[string]int, attr Attributor) map[string]float64 {
	out := map[string]float64{}
	seen := map[string]bool{}
	for _, ex := range exercises {
		key := NormalizeExerciseName(ex.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		sets := setCounts[key]
		if sets == 0 {
			continue
		}
		a := attr.Resolve(ex)
		for _, m := range a.Primary {
			out[m] += float64(sets) * primaryWeight
		}
		for _, m := range a.Secondary {
			out[m] += float64(sets) * secondaryWeight
		}
	}
	return out
}
