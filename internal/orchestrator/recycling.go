package orchestrator

import (
	"context"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/schema"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/amap"
)

var platformSpec = schema.FieldSpec{
	Name: "platform_guide",
	Fields: map[string]schema.FieldRule{
		"platforms": {Required: true, MinItems: 1, MaxItems: 8},
	},
}

// platformRecord is the wire shape of the platform recommendation.
type platformRecord struct {
	Platforms []model.PlatformOption `json:"platforms"`
}

// recyclingBranch is the recycling coordinator. The location leaf is only
// present when the caller supplied a location; its absence leaves the
// location recommendation nil in the report, which is a skip, not a
// failure.
func (o *Orchestrator) recyclingBranch(analysis model.ItemAnalysis, location string) Branch {
	leaves := []Branch{o.platformBranch(analysis)}
	if location != "" {
		leaves = append(leaves, o.locationBranch(analysis, location))
	}
	return o.compositeBranch(model.BranchRecycling, leaves)
}

func (o *Orchestrator) platformBranch(analysis model.ItemAnalysis) Branch {
	return extractingBranch(model.BranchPlatformGuide, o.cfg.Retry,
		guard(o, serviceLLM, func(ctx context.Context) (string, error) {
			return o.llm.Complete(ctx, completionFor(platformPromptTemplate, analysis))
		}),
		platformSpec,
		func() platformRecord { return fallbackPlatforms() },
	)
}

// fallbackPlatforms lists channels that accept nearly any item category.
func fallbackPlatforms() platformRecord {
	return platformRecord{Platforms: []model.PlatformOption{
		{
			Name:        "闲鱼回收",
			Kind:        "回收",
			Description: "支持家电、数码、衣物等品类的上门回收",
			Steps:       "闲鱼App内搜索\"回收\",选择品类后预约上门",
		},
		{
			Name:        "爱回收",
			Kind:        "回收",
			Description: "数码产品专业回收,门店与上门均可",
			Steps:       "官网或App估价后预约回收",
		},
		{
			Name:        "飞蚂蚁",
			Kind:        "捐赠",
			Description: "旧衣物、书籍公益捐赠平台",
			Steps:       "微信小程序预约免费上门取件",
		},
		{
			Name:        "社区回收点",
			Kind:        "回收",
			Description: "各类可回收物的社区集中投放点",
			Steps:       "投放至社区可回收物垃圾桶或回收站",
		},
	}}
}

// locationBranch finds nearby recycling points around the caller's
// coordinates. Search errors fail the leaf; there is no way to fabricate
// map data deterministically.
func (o *Orchestrator) locationBranch(analysis model.ItemAnalysis, location string) Branch {
	return Branch{
		ID: model.BranchLocationPoints,
		Run: func(ctx context.Context) (any, string, error) {
			pois, err := resilience.DoVal(ctx, o.cfg.Retry, model.BranchLocationPoints,
				guard(o, serviceAmap, func(c context.Context) ([]amap.POI, error) {
					return o.amap.SearchAround(c, amap.Query{
						Location: location,
						Keywords: recycleKeywords(analysis),
						Radius:   o.cfg.POIRadius,
						Limit:    o.cfg.POILimit,
					})
				}))
			if err != nil {
				return nil, model.SourceSearch, model.CapabilityError(model.BranchLocationPoints, err)
			}

			points := make([]model.RecyclingPoint, 0, len(pois))
			for _, p := range pois {
				points = append(points, model.RecyclingPoint{
					Name:     p.Name,
					Address:  p.Address,
					Distance: p.Distance,
					Tel:      p.Tel,
					Location: p.Location,
				})
			}
			return points, model.SourceSearch, nil
		},
	}
}

func recycleKeywords(analysis model.ItemAnalysis) string {
	if analysis.Category == "" {
		return "废品回收站|再生资源回收"
	}
	return analysis.Category + "回收|废品回收站|再生资源回收"
}
