package orchestrator

import (
	"fmt"
	"strings"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

// Aggregation summarizes a set of branch outcomes under at-least-one-success
// semantics: the set is successful iff any single outcome succeeded.
type Aggregation struct {
	Success       bool
	SuccessCount  int
	BranchSuccess map[string]bool
	// Error concatenates every branch's error, tagged by branch id. Empty
	// unless all outcomes failed.
	Error string
}

// Aggregate computes the at-least-one-success summary in one pass over the
// outcomes. Failed branches keep their recorded error; consumers must treat
// a missing per-branch payload as "recommendation unavailable for this
// path", not as an overall failure.
func Aggregate(outcomes []model.BranchOutcome) Aggregation {
	agg := Aggregation{
		BranchSuccess: make(map[string]bool, len(outcomes)),
	}

	var errs []string
	for _, o := range outcomes {
		agg.BranchSuccess[o.Branch] = o.Success
		if o.Success {
			agg.SuccessCount++
		} else {
			errs = append(errs, fmt.Sprintf("[%s] %s", o.Branch, o.Error))
		}
	}

	agg.Success = agg.SuccessCount > 0
	if !agg.Success {
		agg.Error = strings.Join(errs, "; ")
	}
	return agg
}

// outcomeRef returns a pointer to a copy of the outcome at index i, or nil
// when the index is out of range. Report assembly stores per-leaf outcomes
// by pointer so skipped leaves stay null.
func outcomeRef(outcomes []model.BranchOutcome, i int) *model.BranchOutcome {
	if i < 0 || i >= len(outcomes) {
		return nil
	}
	o := outcomes[i]
	return &o
}
