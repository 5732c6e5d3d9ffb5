package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/schema"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/xianyu"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/zhuanzhuan"
)

var listingSpec = schema.FieldSpec{
	Name: "listing_content",
	Fields: map[string]schema.FieldRule{
		"title":           {Required: true, MaxLength: 60},
		"description":     {Required: true, MaxLength: 1000},
		"highlights":      {MaxItems: 8},
		"suggested_price": {},
	},
}

// secondhandBranch is the secondhand coordinator: comparable-listing search
// across marketplaces plus generated resale copy.
func (o *Orchestrator) secondhandBranch(analysis model.ItemAnalysis) Branch {
	return o.compositeBranch(model.BranchSecondhand, []Branch{
		o.marketBranch(analysis),
		o.listingBranch(analysis),
	})
}

func (o *Orchestrator) listingBranch(analysis model.ItemAnalysis) Branch {
	return extractingBranch(model.BranchListingContent, o.cfg.Retry,
		guard(o, serviceLLM, func(ctx context.Context) (string, error) {
			return o.llm.Complete(ctx, completionFor(listingPromptTemplate, analysis))
		}),
		listingSpec,
		func() model.ListingContent { return fallbackListing(analysis) },
	)
}

func fallbackListing(analysis model.ItemAnalysis) model.ListingContent {
	subject := strings.TrimSpace(analysis.Brand + " " + analysis.Category)
	if subject == "" {
		subject = "闲置好物"
	}
	title := subject + "转让"
	if analysis.Condition != "" {
		title = analysis.Condition + subject + "转让"
	}
	desc := "出闲置:" + subject + "。"
	if analysis.Description != "" {
		desc += analysis.Description + "。"
	}
	desc += "诚心出,可小刀,同城可自提。"
	return model.ListingContent{
		Title:       title,
		Description: desc,
		Highlights:  []string{"闲置转让", "诚心出售"},
	}
}

// marketBranch queries both marketplace gateways concurrently and merges
// whatever came back. One gateway failing is tolerated; the leaf fails only
// when both do, since price data cannot be synthesized.
func (o *Orchestrator) marketBranch(analysis model.ItemAnalysis) Branch {
	return Branch{
		ID: model.BranchMarketSearch,
		Run: func(ctx context.Context) (any, string, error) {
			keyword := marketKeyword(analysis)

			var xianyuListings []xianyu.Listing
			var zzListings []zhuanzhuan.Listing
			var xianyuErr, zzErr error

			g, gCtx := errgroup.WithContext(ctx)
			g.Go(func() error {
				xianyuListings, xianyuErr = resilience.DoVal(gCtx, o.cfg.Retry, "xianyu_search",
					guard(o, serviceXianyu, func(c context.Context) ([]xianyu.Listing, error) {
						return o.xianyu.Search(c, xianyu.Query{Keyword: keyword, Limit: o.cfg.MarketSearchLimit})
					}))
				return nil
			})
			g.Go(func() error {
				zzListings, zzErr = resilience.DoVal(gCtx, o.cfg.Retry, "zhuanzhuan_search",
					guard(o, serviceZhuanzhuan, func(c context.Context) ([]zhuanzhuan.Listing, error) {
						return o.zhuanzhuan.Search(c, zhuanzhuan.Query{Keyword: keyword, Limit: o.cfg.MarketSearchLimit})
					}))
				return nil
			})
			_ = g.Wait()

			if xianyuErr != nil && zzErr != nil {
				return nil, model.SourceSearch, eris.Wrap(
					fmt.Errorf("xianyu: %v; zhuanzhuan: %v", xianyuErr, zzErr),
					"market search: all gateways failed",
				)
			}
			if xianyuErr != nil {
				zap.L().Warn("market: gateway failed, continuing with partial results",
					zap.String("gateway", "xianyu"), zap.Error(xianyuErr))
			}
			if zzErr != nil {
				zap.L().Warn("market: gateway failed, continuing with partial results",
					zap.String("gateway", "zhuanzhuan"), zap.Error(zzErr))
			}

			result := mergeListings(xianyuListings, zzListings)
			return result, model.SourceSearch, nil
		},
	}
}

// mergeListings combines per-gateway listings into one result with price
// statistics over all comparable prices.
func mergeListings(xl []xianyu.Listing, zl []zhuanzhuan.Listing) model.MarketSearchResult {
	listings := make([]model.MarketListing, 0, len(xl)+len(zl))
	platforms := make([]string, 0, 2)

	if len(xl) > 0 {
		platforms = append(platforms, "闲鱼")
		for _, l := range xl {
			listings = append(listings, model.MarketListing{
				Platform: "闲鱼",
				Title:    l.Title,
				Price:    l.Price,
				URL:      l.URL,
			})
		}
	}
	if len(zl) > 0 {
		platforms = append(platforms, "转转")
		for _, l := range zl {
			listings = append(listings, model.MarketListing{
				Platform: "转转",
				Title:    l.Title,
				Price:    l.PriceYuan(),
				URL:      l.URL,
			})
		}
	}

	result := model.MarketSearchResult{Listings: listings, Platforms: platforms}
	prices := make([]float64, 0, len(listings))
	var sum float64
	for _, l := range listings {
		if l.Price > 0 {
			prices = append(prices, l.Price)
			sum += l.Price
		}
	}
	if len(prices) > 0 {
		sort.Float64s(prices)
		result.PriceLow = prices[0]
		result.PriceHigh = prices[len(prices)-1]
		result.PriceMean = sum / float64(len(prices))
		result.Suggestion = fmt.Sprintf("参考同类在售价 %.0f-%.0f 元,建议定价 %.0f 元左右",
			result.PriceLow, result.PriceHigh, result.PriceMean)
	}
	return result
}

func marketKeyword(analysis model.ItemAnalysis) string {
	parts := []string{}
	for _, s := range []string{analysis.Brand, analysis.Category, analysis.SubCategory} {
		if s != "" && !containsFold(parts, s) {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return strings.Join(analysis.Keywords, " ")
	}
	return strings.Join(parts, " ")
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
