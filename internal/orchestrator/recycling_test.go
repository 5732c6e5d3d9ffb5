package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/amap"
)

func TestRecyclingBranch_NoLocationSkipsLocationLeaf(t *testing.T) {
	llmMock := &mockLLMClient{}
	llmMock.On("Complete", mock.Anything, mock.Anything).Return(
		`{"platforms": [{"name": "闲鱼回收", "kind": "回收"}]}`, nil)

	o := testOrchestrator(llmMock, &mockAmapClient{}, &mockXianyuClient{}, &mockZhuanzhuanClient{}, &mockBilibiliClient{})
	out := runBranch(context.Background(), o.recyclingBranch(model.ItemAnalysis{Category: "家电"}, ""))

	require.True(t, out.Success)
	leaves := leafOutcomes(out)
	// Only the platform leaf runs; the location leaf is absent, not failed.
	require.Len(t, leaves, 1)
	assert.Equal(t, model.BranchPlatformGuide, leaves[0].Branch)
}

func TestRecyclingBranch_WithLocationRunsBothLeaves(t *testing.T) {
	llmMock := &mockLLMClient{}
	llmMock.On("Complete", mock.Anything, mock.Anything).Return(
		`{"platforms": [{"name": "闲鱼回收"}]}`, nil)
	amapMock := &mockAmapClient{}
	amapMock.On("SearchAround", mock.Anything, mock.MatchedBy(func(q amap.Query) bool {
		return q.Location == "116.48,39.99"
	})).Return([]amap.POI{
		{Name: "朝阳再生资源回收站", Address: "某街道1号", Distance: "850"},
	}, nil)

	o := testOrchestrator(llmMock, amapMock, &mockXianyuClient{}, &mockZhuanzhuanClient{}, &mockBilibiliClient{})
	out := runBranch(context.Background(), o.recyclingBranch(model.ItemAnalysis{Category: "家电"}, "116.48,39.99"))

	require.True(t, out.Success)
	leaves := leafOutcomes(out)
	require.Len(t, leaves, 2)
	assert.Equal(t, model.BranchLocationPoints, leaves[1].Branch)
	require.True(t, leaves[1].Success)
	points := leaves[1].Payload.([]model.RecyclingPoint)
	require.Len(t, points, 1)
	assert.Equal(t, "朝阳再生资源回收站", points[0].Name)
}

func TestLocationBranch_SearchErrorFailsLeaf(t *testing.T) {
	amapMock := &mockAmapClient{}
	amapMock.On("SearchAround", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	o := testOrchestrator(&mockLLMClient{}, amapMock, &mockXianyuClient{}, &mockZhuanzhuanClient{}, &mockBilibiliClient{})
	out := runBranch(context.Background(), o.locationBranch(model.ItemAnalysis{}, "116.48,39.99"))

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "quota exceeded")
}

func TestRecyclingBranch_PlatformFallbackKeepsCoordinatorAlive(t *testing.T) {
	llmMock := &mockLLMClient{}
	llmMock.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("api down"))
	amapMock := &mockAmapClient{}
	amapMock.On("SearchAround", mock.Anything, mock.Anything).Return(nil, errors.New("also down"))

	o := testOrchestrator(llmMock, amapMock, &mockXianyuClient{}, &mockZhuanzhuanClient{}, &mockBilibiliClient{})
	out := runBranch(context.Background(), o.recyclingBranch(model.ItemAnalysis{Category: "家电"}, "116.48,39.99"))

	// Location failed, platform degraded to fallback: coordinator succeeds.
	require.True(t, out.Success)
	leaves := leafOutcomes(out)
	require.Len(t, leaves, 2)
	assert.True(t, leaves[0].Success)
	assert.Equal(t, model.SourceFallback, leaves[0].Source)
	assert.False(t, leaves[1].Success)
}

func TestFallbackPlatforms(t *testing.T) {
	rec := fallbackPlatforms()

	require.NotEmpty(t, rec.Platforms)
	for _, p := range rec.Platforms {
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Kind)
	}
}

func TestRecycleKeywords(t *testing.T) {
	assert.Equal(t, "家电回收|废品回收站|再生资源回收", recycleKeywords(model.ItemAnalysis{Category: "家电"}))
	assert.Equal(t, "废品回收站|再生资源回收", recycleKeywords(model.ItemAnalysis{}))
}
