package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/schema"
)

// analysisSpec validates the attribute record extracted from either
// analysis capability.
var analysisSpec = schema.FieldSpec{
	Name: "item_analysis",
	Fields: map[string]schema.FieldRule{
		"category":         {Required: true},
		"sub_category":     {},
		"brand":            {},
		"condition":        {},
		"material":         {},
		"color":            {},
		"keywords":         {MaxItems: 10},
		"description":      {MaxLength: 500},
		"estimated_age":    {},
		"special_features": {MaxLength: 300},
	},
}

// analyze runs the image and/or text analysis concurrently and reconciles
// the two results. It fails only when every attempted analysis failed.
func (o *Orchestrator) analyze(ctx context.Context, in Input) (*model.ItemAnalysis, *model.ItemAnalysis, error) {
	var imageAnalysis, textAnalysis *model.ItemAnalysis
	var imageErr, textErr error

	g, gCtx := errgroup.WithContext(ctx)

	if in.ImagePath != "" {
		g.Go(func() error {
			imageAnalysis, imageErr = o.analyzeOne(gCtx, "analyze_image", func(c context.Context) (string, error) {
				return o.llm.AnalyzeImage(c, in.ImagePath, analysisImagePrompt)
			})
			return nil
		})
	}
	if in.Text != "" {
		g.Go(func() error {
			textAnalysis, textErr = o.analyzeOne(gCtx, "analyze_text", func(c context.Context) (string, error) {
				return o.llm.AnalyzeText(c, in.Text, analysisTextPrompt)
			})
			return nil
		})
	}
	_ = g.Wait()

	if imageAnalysis == nil && textAnalysis == nil {
		var msgs []string
		for _, e := range []error{imageErr, textErr} {
			if e != nil {
				msgs = append(msgs, e.Error())
			}
		}
		return nil, nil, eris.New("analyze: all analyses failed: " + strings.Join(msgs, "; "))
	}
	return imageAnalysis, textAnalysis, nil
}

func (o *Orchestrator) analyzeOne(ctx context.Context, op string, call func(context.Context) (string, error)) (*model.ItemAnalysis, error) {
	raw, err := resilience.DoVal(ctx, o.cfg.Retry, op, guard(o, serviceLLM, call))
	if err != nil {
		zap.L().Warn("analyze: capability call failed",
			zap.String("operation", op),
			zap.Error(model.CapabilityError(op, err)),
		)
		return nil, err
	}

	var analysis model.ItemAnalysis
	if err := schema.Decode(raw, analysisSpec, &analysis); err != nil {
		zap.L().Warn("analyze: extraction failed",
			zap.String("operation", op),
			zap.String("kind", string(model.KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}
	return &analysis, nil
}

// describeItem renders the reconciled analysis as the compact JSON blob
// injected into downstream prompts.
func describeItem(a model.ItemAnalysis) string {
	buf, err := json.Marshal(a)
	if err != nil {
		return a.Category + " " + a.Description
	}
	return string(buf)
}
