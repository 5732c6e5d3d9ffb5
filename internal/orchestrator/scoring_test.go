package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

func TestScoreRecord_ToScores(t *testing.T) {
	rec := scoreRecord{
		CreativeScore:     30,
		CreativeReasons:   []string{"结构完整"},
		RecyclingScore:    25,
		SecondhandScore:   45,
		SecondhandReasons: []string{"保值品类"},
		Recommendation:    "secondhand",
	}

	scores := rec.toScores()

	assert.Equal(t, 30, scores.Creative.Score)
	assert.Equal(t, 45, scores.Secondhand.Score)
	assert.Equal(t, "secondhand", scores.Recommendation)
	assert.Equal(t, 100, scores.Total())
}

func TestScoreRecord_EmptyRecommendationDerived(t *testing.T) {
	rec := scoreRecord{CreativeScore: 20, RecyclingScore: 60, SecondhandScore: 30}

	scores := rec.toScores()

	assert.Equal(t, "recycling", scores.Recommendation)
}

func TestDisposalScores_TieOrder(t *testing.T) {
	scores := model.DisposalScores{
		Creative:   model.PathScore{Score: 40},
		Recycling:  model.PathScore{Score: 40},
		Secondhand: model.PathScore{Score: 40},
	}
	assert.Equal(t, "creative", scores.Primary())

	scores.Creative.Score = 10
	assert.Equal(t, "recycling", scores.Primary())
}

func TestFallbackScores_CategoryTable(t *testing.T) {
	scores := fallbackScores(model.ItemAnalysis{Category: "家电", Condition: "正常"})

	// Appliances lean away from creative reuse.
	assert.Greater(t, scores.Secondhand.Score, scores.Creative.Score)
	assert.NotEmpty(t, scores.Recommendation)
	assert.NotEmpty(t, scores.Creative.Reasons)
}

func TestFallbackScores_ConditionModifier(t *testing.T) {
	good := fallbackScores(model.ItemAnalysis{Category: "数码", Condition: "全新未拆封"})
	broken := fallbackScores(model.ItemAnalysis{Category: "数码", Condition: "屏幕损坏"})

	assert.Greater(t, good.Secondhand.Score, broken.Secondhand.Score)
	assert.Greater(t, broken.Recycling.Score, good.Recycling.Score)
}

func TestFallbackScores_UnknownCategoryUsesDefaults(t *testing.T) {
	scores := fallbackScores(model.ItemAnalysis{Category: "奇怪的东西"})

	assert.Equal(t, fallbackTable.Defaults.Creative, scores.Creative.Score)
	assert.Equal(t, fallbackTable.Defaults.Recycling, scores.Recycling.Score)
	assert.Equal(t, fallbackTable.Defaults.Secondhand, scores.Secondhand.Score)
}

func TestFallbackScores_AmbiguousCategoryMatchesDeclaredOrder(t *testing.T) {
	// "家电数码" hits both the 家电 and 数码 entries; the earlier entry must
	// win on every call.
	first := fallbackScores(model.ItemAnalysis{Category: "家电数码"})
	for i := 0; i < 200; i++ {
		scores := fallbackScores(model.ItemAnalysis{Category: "家电数码"})
		require.Equal(t, first, scores)
	}
	assert.Equal(t, 20, first.Creative.Score)
	assert.Equal(t, 40, first.Recycling.Score)
	assert.Equal(t, 45, first.Secondhand.Score)
}

func TestFallbackScores_Clamped(t *testing.T) {
	for _, cond := range []string{"全新", "九成新", "严重损坏", ""} {
		for _, entry := range fallbackTable.Categories {
			scores := fallbackScores(model.ItemAnalysis{Category: entry.Match, Condition: cond})
			for _, s := range []int{scores.Creative.Score, scores.Recycling.Score, scores.Secondhand.Score} {
				assert.GreaterOrEqual(t, s, 0)
				assert.LessOrEqual(t, s, 100)
			}
		}
	}
}

func TestScoringBranch_LLMSuccess(t *testing.T) {
	llmMock := &mockLLMClient{}
	llmMock.On("Complete", mock.Anything, mock.Anything).Return(
		`{"creative_score": 30, "recycling_score": 25, "secondhand_score": 45,
		  "creative_reasons": ["可改造"], "recommendation": "secondhand"}`, nil)

	o := testOrchestrator(llmMock, &mockAmapClient{}, &mockXianyuClient{}, &mockZhuanzhuanClient{}, &mockBilibiliClient{})
	out := runBranch(context.Background(), o.scoringBranch(model.ItemAnalysis{Category: "家电"}))

	require.True(t, out.Success)
	assert.Equal(t, model.SourceLLM, out.Source)
	scores, ok := out.Payload.(model.DisposalScores)
	require.True(t, ok)
	assert.Equal(t, "secondhand", scores.Recommendation)
}

func TestScoringBranch_FallsBackOnError(t *testing.T) {
	llmMock := &mockLLMClient{}
	llmMock.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("api down"))

	o := testOrchestrator(llmMock, &mockAmapClient{}, &mockXianyuClient{}, &mockZhuanzhuanClient{}, &mockBilibiliClient{})
	out := runBranch(context.Background(), o.scoringBranch(model.ItemAnalysis{Category: "家具", Condition: "八成新"}))

	require.True(t, out.Success)
	assert.Equal(t, model.SourceFallback, out.Source)
	scores := out.Payload.(model.DisposalScores)
	assert.NotEmpty(t, scores.Recommendation)
}

func TestScoringBranch_FallsBackOnOutOfRangeScore(t *testing.T) {
	llmMock := &mockLLMClient{}
	llmMock.On("Complete", mock.Anything, mock.Anything).Return(
		`{"creative_score": 150, "recycling_score": 25, "secondhand_score": 45}`, nil)

	o := testOrchestrator(llmMock, &mockAmapClient{}, &mockXianyuClient{}, &mockZhuanzhuanClient{}, &mockBilibiliClient{})
	out := runBranch(context.Background(), o.scoringBranch(model.ItemAnalysis{Category: "家具"}))

	require.True(t, out.Success)
	assert.Equal(t, model.SourceFallback, out.Source)
}
