package core

import (
	"math"
	"sort"
)

// SpendStats characterizes a category's recent expense history.
type SpendStats struct {
	N      int
	Mean   float64 // currency units
	StdDev float64 // population standard deviation, currency units
}

// ComputeSpendStats derives mean and population standard deviation from a
// history of expense magnitudes.
func ComputeSpendStats(history []Money) SpendStats {
	n := len(history)
	if n == 0 {
		return SpendStats{}
	}
	var sum float64
	for _, m := range history {
		sum += m.Units()
	}
	mean := sum / float64(n)

	var varianceSum float64
	for _, m := range history {
		d := m.Units() - mean
		varianceSum += d * d
	}
	return SpendStats{
		N:      n,
		Mean:   mean,
		StdDev: math.Sqrt(varianceSum / float64(n)),
	}
}

// IsUnusualAmount flags an expense as unusual against a trailing history
// using a z-score/percentile blend: the amount exceeds mean + 2 standard
// deviations, or it lands in the top 10% of the history by value. An empty
// history characterizes nothing and never flags, avoiding false positives on
// sparse data. This is a heuristic, not a seasonal anomaly model.
func IsUnusualAmount(amount Money, history []Money) bool {
	n := len(history)
	if n < 1 {
		return false
	}

	stats := ComputeSpendStats(history)
	if amount.Units() > stats.Mean+2*stats.StdDev {
		return true
	}

	sorted := make([]int64, n)
	for i, m := range history {
		sorted[i] = m.Cents
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	decile := sorted[n/10]
	return amount.Cents >= decile
}
