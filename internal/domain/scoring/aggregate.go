package scoring

import (
	"math"

	"github.com/google/uuid"
)

// Weighted is a score value paired with the weight of its criterion
type Weighted struct {
	EvaluatorID uuid.UUID
	Value       int
	Weight      float64
}

// Round2 rounds to two decimal places
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Aggregate is the persisted score of a participant:
// Σ value·weight / (W·n), with W the event's total weight and n the number of distinct evaluators.
// A zero total weight counts as 1; no evaluators yields 0.
func Aggregate(scores []Weighted, totalWeight float64) float64 {
	if totalWeight == 0 {
		totalWeight = 1
	}

	evaluators := make(map[uuid.UUID]struct{})
	var sum float64
	for _, s := range scores {
		evaluators[s.EvaluatorID] = struct{}{}
		sum += float64(s.Value) * s.Weight
	}

	n := len(evaluators)
	if n == 0 {
		return 0
	}
	return Round2(sum / (totalWeight * float64(n)))
}

// Contribution is the share of one score on the 100-point display scale
func Contribution(value int, weight float64) float64 {
	return float64(value) * weight / 100
}

// DisplayAverage averages the summed contributions over evaluators.
// It is nil when nobody has scored yet.
func DisplayAverage(contributions float64, evaluators int) *float64 {
	if evaluators == 0 {
		return nil
	}
	avg := Round2(contributions / float64(evaluators))
	return &avg
}
