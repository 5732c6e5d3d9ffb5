package orchestrator

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/amap"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/bilibili"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/llm"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/xianyu"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/zhuanzhuan"
)

// --- LLM Mock ---

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) AnalyzeImage(ctx context.Context, imagePath, prompt string) (string, error) {
	args := m.Called(ctx, imagePath, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockLLMClient) AnalyzeText(ctx context.Context, text, prompt string) (string, error) {
	args := m.Called(ctx, text, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// --- AMap Mock ---

type mockAmapClient struct {
	mock.Mock
}

func (m *mockAmapClient) SearchAround(ctx context.Context, q amap.Query) ([]amap.POI, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]amap.POI), args.Error(1)
}

// --- Xianyu Mock ---

type mockXianyuClient struct {
	mock.Mock
}

func (m *mockXianyuClient) Search(ctx context.Context, q xianyu.Query) ([]xianyu.Listing, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]xianyu.Listing), args.Error(1)
}

// --- Zhuanzhuan Mock ---

type mockZhuanzhuanClient struct {
	mock.Mock
}

func (m *mockZhuanzhuanClient) Search(ctx context.Context, q zhuanzhuan.Query) ([]zhuanzhuan.Listing, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zhuanzhuan.Listing), args.Error(1)
}

// --- Bilibili Mock ---

type mockBilibiliClient struct {
	mock.Mock
}

func (m *mockBilibiliClient) Search(ctx context.Context, keyword string, limit int) ([]bilibili.Video, error) {
	args := m.Called(ctx, keyword, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bilibili.Video), args.Error(1)
}

// testOrchestrator wires all mocks into an orchestrator with fast
// timeouts and no retry waits.
func testOrchestrator(llmMock *mockLLMClient, amapMock *mockAmapClient, xyMock *mockXianyuClient, zzMock *mockZhuanzhuanClient, biliMock *mockBilibiliClient) *Orchestrator {
	cfg := DefaultConfig()
	cfg.Retry.MaxAttempts = 1
	cfg.BranchTimeout = 2 * time.Second
	cfg.CoordinatorTimeout = 4 * time.Second
	return New(llmMock, amapMock, xyMock, zzMock, biliMock, cfg)
}
