// Package ranking scores and selects the top candidates from a collection
// using a weighted, log-normalized multi-metric formula with a minimum
// quality filter. Selection is deterministic: stable descending sort with
// ties broken by input order.
package ranking

import (
	"math"
	"sort"

	"go.uber.org/zap"
)

// weightSumTolerance: a weight sum outside [1-tol, 1+tol] is logged as a
// configuration warning. Weights are not required to sum to 1.
const weightSumTolerance = 0.2

// Candidate is one rankable record. Metrics that may legitimately be zero
// (e.g. engagement counts on fresh content) are clamped to 1 before the log
// transform so scores stay non-negative.
type Candidate struct {
	Title   string
	Metrics map[string]float64
	Payload any
}

// Ranked is a candidate augmented with its computed score and 1-based rank.
type Ranked struct {
	Candidate
	Score float64
	Rank  int
}

// Result carries the ranked selection plus selection diagnostics.
type Result struct {
	Candidates []Ranked
	// Short is set when fewer candidates survived filtering than requested.
	Short bool
	// Filtered counts candidates dropped by the quality filter.
	Filtered int
}

// Rank filters, scores, and selects the top n candidates.
//
// Filtering drops candidates with an empty title or any metric below its
// declared minimum threshold. Each configured metric m contributes
// weight * log10(max(m, 1)) to the score.
func Rank(candidates []Candidate, weights map[string]float64, minThresholds map[string]float64, topN int) Result {
	warnWeightSum(weights)

	kept := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		if c.Title == "" {
			continue
		}
		if belowThreshold(c, minThresholds) {
			continue
		}
		kept = append(kept, Ranked{Candidate: c, Score: score(c, weights)})
	}

	// Stable sort preserves input order for equal scores.
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })

	result := Result{Filtered: len(candidates) - len(kept)}
	if topN > 0 && len(kept) > topN {
		kept = kept[:topN]
	}
	if topN > 0 && len(kept) < topN {
		result.Short = true
		zap.L().Warn("ranking: fewer candidates than requested",
			zap.Int("requested", topN),
			zap.Int("returned", len(kept)),
		)
	}
	for i := range kept {
		kept[i].Rank = i + 1
	}
	result.Candidates = kept
	return result
}

func score(c Candidate, weights map[string]float64) float64 {
	var total float64
	for metric, weight := range weights {
		v := c.Metrics[metric]
		if v < 1 {
			v = 1
		}
		total += weight * math.Log10(v)
	}
	return total
}

func belowThreshold(c Candidate, minThresholds map[string]float64) bool {
	for metric, minVal := range minThresholds {
		if c.Metrics[metric] < minVal {
			return true
		}
	}
	return false
}

func warnWeightSum(weights map[string]float64) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		zap.L().Warn("ranking: metric weights sum far from 1",
			zap.Float64("sum", sum),
		)
	}
}
