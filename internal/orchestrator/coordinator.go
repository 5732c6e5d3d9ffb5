package orchestrator

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

// compositeBranch groups a set of leaf branches under one coordinator. The
// coordinator's payload is the ordered leaf outcome slice; the coordinator
// itself fails only when every leaf failed, mirroring the top-level
// aggregation rule one level down.
func (o *Orchestrator) compositeBranch(id string, leaves []Branch) Branch {
	return Branch{
		ID: id,
		Run: func(ctx context.Context) (any, string, error) {
			outcomes := RunGroup(ctx, leaves, o.cfg.Mode, o.cfg.BranchTimeout)
			agg := Aggregate(outcomes)
			if !agg.Success {
				return outcomes, "", eris.Wrap(eris.New(agg.Error), id)
			}
			return outcomes, "", nil
		},
	}
}

// leafOutcomes recovers the ordered leaf outcomes from a coordinator
// outcome. Works for failed coordinators too, since the payload is recorded
// either way.
func leafOutcomes(coordinator model.BranchOutcome) []model.BranchOutcome {
	leaves, _ := coordinator.Payload.([]model.BranchOutcome)
	return leaves
}
