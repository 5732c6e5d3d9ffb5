package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

func TestAggregate_AllSucceeded(t *testing.T) {
	outcomes := []model.BranchOutcome{
		model.Succeeded("a", model.SourceLLM, "p1", time.Millisecond),
		model.Succeeded("b", model.SourceSearch, "p2", time.Millisecond),
	}

	agg := Aggregate(outcomes)

	assert.True(t, agg.Success)
	assert.Equal(t, 2, agg.SuccessCount)
	assert.Empty(t, agg.Error)
	assert.Equal(t, map[string]bool{"a": true, "b": true}, agg.BranchSuccess)
}

func TestAggregate_OneSuccessIsEnough(t *testing.T) {
	outcomes := []model.BranchOutcome{
		model.Failed("a", "", "boom", time.Millisecond),
		model.Succeeded("b", model.SourceFallback, "p", time.Millisecond),
		model.Failed("c", "", "also boom", time.Millisecond),
	}

	agg := Aggregate(outcomes)

	assert.True(t, agg.Success)
	assert.Equal(t, 1, agg.SuccessCount)
	// The combined error is only reported when everything failed.
	assert.Empty(t, agg.Error)
	assert.False(t, agg.BranchSuccess["a"])
	assert.True(t, agg.BranchSuccess["b"])
}

func TestAggregate_AllFailedConcatenatesErrors(t *testing.T) {
	outcomes := []model.BranchOutcome{
		model.Failed("renovation_plan", "", "timeout after 5s", time.Second),
		model.Failed("video_tutorials", "", "search unavailable", time.Second),
	}

	agg := Aggregate(outcomes)

	assert.False(t, agg.Success)
	assert.Equal(t, 0, agg.SuccessCount)
	assert.Equal(t, "[renovation_plan] timeout after 5s; [video_tutorials] search unavailable", agg.Error)
}

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil)

	assert.False(t, agg.Success)
	assert.Equal(t, 0, agg.SuccessCount)
	assert.Empty(t, agg.BranchSuccess)
}

func TestOutcomeRef(t *testing.T) {
	outcomes := []model.BranchOutcome{
		model.Succeeded("a", model.SourceLLM, "p", time.Millisecond),
	}

	ref := outcomeRef(outcomes, 0)
	require.NotNil(t, ref)
	assert.Equal(t, "a", ref.Branch)

	// The ref is a copy, not an alias.
	ref.Branch = "mutated"
	assert.Equal(t, "a", outcomes[0].Branch)

	assert.Nil(t, outcomeRef(outcomes, 1))
	assert.Nil(t, outcomeRef(outcomes, -1))
}
