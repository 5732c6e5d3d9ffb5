package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

// Mode selects how a branch group executes.
type Mode int

const (
	// Parallel runs all branches concurrently; the production default.
	Parallel Mode = iota
	// Serial runs branches one at a time in declared order. Used for
	// diagnostics and benchmarking only.
	Serial
)

// RunGroup executes a group of sibling branches and returns their outcomes
// in declared order regardless of completion order. One branch failing or
// timing out never cancels or delays its siblings; the group completes when
// every branch has either finished or been marked as timed out.
func RunGroup(ctx context.Context, branches []Branch, mode Mode, perBranchTimeout time.Duration) []model.BranchOutcome {
	outcomes := make([]model.BranchOutcome, len(branches))

	if mode == Serial {
		for i, b := range branches {
			outcomes[i] = runWithTimeout(ctx, b, perBranchTimeout)
		}
		return outcomes
	}

	var g errgroup.Group
	for i, b := range branches {
		g.Go(func() error {
			outcomes[i] = runWithTimeout(ctx, b, perBranchTimeout)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// runWithTimeout enforces an independent deadline per branch. Cancellation
// of the underlying call is best-effort: the branch context is cancelled on
// timeout, but if the call does not honor it the result is simply discarded
// so a hung branch cannot hold up its group.
func runWithTimeout(ctx context.Context, b Branch, timeout time.Duration) model.BranchOutcome {
	if timeout <= 0 {
		return runBranch(ctx, b)
	}

	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan model.BranchOutcome, 1)
	go func() {
		done <- runBranch(bctx, b)
	}()

	select {
	case out := <-done:
		return out
	case <-bctx.Done():
		// Give an already-cancelled branch a brief chance to deliver its
		// outcome before abandoning it.
		select {
		case out := <-done:
			return out
		case <-time.After(50 * time.Millisecond):
		}
		msg := fmt.Sprintf("timeout after %s", timeout)
		if ctx.Err() != nil {
			msg = "cancelled: " + ctx.Err().Error()
		}
		return model.Failed(b.ID, "", msg, timeout)
	}
}
