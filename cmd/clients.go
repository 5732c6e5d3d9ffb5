package main

import (
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/orchestrator"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/amap"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/bilibili"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/llm"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/xianyu"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/zhuanzhuan"
)

// buildOrchestrator assembles the orchestrator and its capability clients
// from the loaded configuration.
func buildOrchestrator() *orchestrator.Orchestrator {
	llmClient := llm.NewClient(cfg.LLM.Key,
		llm.WithModel(cfg.LLM.Model),
		llm.WithVisionModel(cfg.LLM.VisionModel),
	)

	var amapOpts []amap.Option
	if cfg.Amap.BaseURL != "" {
		amapOpts = append(amapOpts, amap.WithBaseURL(cfg.Amap.BaseURL))
	}
	amapClient := amap.NewClient(cfg.Amap.Key, amapOpts...)

	var biliOpts []bilibili.Option
	if cfg.Bilibili.BaseURL != "" {
		biliOpts = append(biliOpts, bilibili.WithBaseURL(cfg.Bilibili.BaseURL))
	}
	biliClient := bilibili.NewClient(biliOpts...)

	return orchestrator.New(
		llmClient,
		amapClient,
		xianyu.NewClient(cfg.Xianyu.BaseURL),
		zhuanzhuan.NewClient(cfg.Zhuanzhuan.BaseURL),
		biliClient,
		cfg.Orchestrator.Orchestrator(),
	)
}
