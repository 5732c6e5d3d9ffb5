package orchestrator

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/ranking"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/schema"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/bilibili"
)

var renovationSpec = schema.FieldSpec{
	Name: "renovation_plan",
	Fields: map[string]schema.FieldRule{
		"title":        {Required: true},
		"difficulty":   {},
		"cost_range":   {},
		"time_needed":  {},
		"steps":        {MinItems: 1, MaxItems: 15},
		"materials":    {MaxItems: 15},
		"safety_notes": {MaxItems: 10},
	},
}

// creativeBranch is the creative coordinator: a DIY renovation plan plus a
// ranked list of tutorial videos, produced concurrently.
func (o *Orchestrator) creativeBranch(analysis model.ItemAnalysis) Branch {
	return o.compositeBranch(model.BranchCreative, []Branch{
		o.renovationBranch(analysis),
		o.videoBranch(analysis),
	})
}

func (o *Orchestrator) renovationBranch(analysis model.ItemAnalysis) Branch {
	return extractingBranch(model.BranchRenovationPlan, o.cfg.Retry,
		guard(o, serviceLLM, func(ctx context.Context) (string, error) {
			return o.llm.Complete(ctx, completionFor(renovationPromptTemplate, analysis))
		}),
		renovationSpec,
		func() model.RenovationPlan { return fallbackRenovation(analysis) },
	)
}

// fallbackRenovation builds a generic but usable plan from the analysis
// alone. Works for any category.
func fallbackRenovation(analysis model.ItemAnalysis) model.RenovationPlan {
	subject := analysis.Category
	if subject == "" {
		subject = "闲置物品"
	}
	return model.RenovationPlan{
		Title:      subject + "翻新再利用",
		Difficulty: "简单",
		CostRange:  "0-50元",
		TimeNeeded: "1-2小时",
		Steps: []string{
			"彻底清洁物品表面,去除灰尘和污渍",
			"检查结构和功能,修复松动或损坏的部分",
			"根据需要打磨、上漆或更换配件",
			"重新规划用途,放置到合适的使用场景",
		},
		Materials:   []string{"清洁剂", "抹布", "砂纸", "环保漆"},
		SafetyNotes: []string{"打磨和喷漆时保持通风", "使用工具时佩戴手套"},
	}
}

// videoBranch searches for tutorial videos and ranks them by weighted
// play/danmaku metrics. An empty or failed search degrades to a manual
// search link rather than failing the branch.
func (o *Orchestrator) videoBranch(analysis model.ItemAnalysis) Branch {
	return Branch{
		ID: model.BranchVideoTutorials,
		Run: func(ctx context.Context) (any, string, error) {
			keyword := videoKeyword(analysis)
			videos, err := resilience.DoVal(ctx, o.cfg.Retry, model.BranchVideoTutorials,
				guard(o, serviceBilibili, func(c context.Context) ([]bilibili.Video, error) {
					return o.bilibili.Search(c, keyword, o.cfg.VideoSearchLimit)
				}))
			if err != nil {
				zap.L().Warn("video: search failed, returning manual link",
					zap.String("keyword", keyword),
					zap.Error(err),
				)
				return fallbackVideos(keyword), model.SourceFallback, nil
			}
			if len(videos) == 0 {
				return fallbackVideos(keyword), model.SourceFallback, nil
			}

			candidates := make([]ranking.Candidate, 0, len(videos))
			for _, v := range videos {
				candidates = append(candidates, ranking.Candidate{
					Title: v.Title,
					Metrics: map[string]float64{
						"play":    float64(v.Play),
						"danmaku": float64(v.Danmaku),
					},
					Payload: v,
				})
			}
			ranked := ranking.Rank(candidates, o.cfg.VideoWeights, o.cfg.VideoMinThresholds, o.cfg.VideoTopN)
			if len(ranked.Candidates) == 0 {
				return fallbackVideos(keyword), model.SourceFallback, nil
			}

			rec := model.VideoRecommendation{
				Keyword:   keyword,
				SearchURL: bilibiliSearchURL(keyword),
				Videos:    make([]model.VideoItem, 0, len(ranked.Candidates)),
			}
			for _, r := range ranked.Candidates {
				v := r.Payload.(bilibili.Video)
				rec.Videos = append(rec.Videos, model.VideoItem{
					Title:    v.Title,
					Author:   v.Author,
					URL:      v.URL,
					Cover:    v.Cover,
					Duration: v.Duration,
					Play:     int64(v.Play),
					Danmaku:  int64(v.Danmaku),
					Score:    r.Score,
					Rank:     r.Rank,
				})
			}
			return rec, model.SourceSearch, nil
		},
	}
}

func videoKeyword(analysis model.ItemAnalysis) string {
	parts := []string{}
	if analysis.Category != "" {
		parts = append(parts, analysis.Category)
	}
	if analysis.SubCategory != "" && analysis.SubCategory != analysis.Category {
		parts = append(parts, analysis.SubCategory)
	}
	parts = append(parts, "旧物改造")
	return strings.Join(parts, " ")
}

func fallbackVideos(keyword string) model.VideoRecommendation {
	return model.VideoRecommendation{
		Keyword:   keyword,
		Videos:    []model.VideoItem{},
		SearchURL: bilibiliSearchURL(keyword),
	}
}

func bilibiliSearchURL(keyword string) string {
	return "https://search.bilibili.com/all?keyword=" + url.QueryEscape(keyword)
}
