package matrix

import (
	"fmt"
	"math"
	"strings"
)

// Reduction combines the present scores of a collapse group into one value.
// It is only called with at least one value and never sees absent cells.
type Reduction func(values []float64) float64

func ReduceMax(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

func ReduceMin(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

func ReduceMean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ReductionByName returns the reduction for "max", "min" or "mean".
// An empty name selects max.
func ReductionByName(name string) (Reduction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "max":
		return ReduceMax, nil
	case "min":
		return ReduceMin, nil
	case "mean", "avg", "average":
		return ReduceMean, nil
	default:
		return nil, fmt.Errorf("unknown reduction %q, must be max, min or mean", name)
	}
}

// reduceGroup applies f over the present values, returning absent if there are none.
func reduceGroup(f Reduction, values []float64) float64 {
	present := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}
	return f(present)
}
