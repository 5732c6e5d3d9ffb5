package orchestrator

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/schema"
)

var scoreSpec = schema.FieldSpec{
	Name: "disposal_scores",
	Fields: map[string]schema.FieldRule{
		"creative_score":     {Required: true, Min: schema.Bound(0), Max: schema.Bound(100)},
		"recycling_score":    {Required: true, Min: schema.Bound(0), Max: schema.Bound(100)},
		"secondhand_score":   {Required: true, Min: schema.Bound(0), Max: schema.Bound(100)},
		"creative_reasons":   {MaxItems: 5},
		"recycling_reasons":  {MaxItems: 5},
		"secondhand_reasons": {MaxItems: 5},
		"recommendation":     {MaxLength: 20},
	},
}

// scoreRecord is the flat wire shape the model is asked for.
type scoreRecord struct {
	CreativeScore     float64  `json:"creative_score"`
	CreativeReasons   []string `json:"creative_reasons"`
	RecyclingScore    float64  `json:"recycling_score"`
	RecyclingReasons  []string `json:"recycling_reasons"`
	SecondhandScore   float64  `json:"secondhand_score"`
	SecondhandReasons []string `json:"secondhand_reasons"`
	Recommendation    string   `json:"recommendation"`
}

func (r scoreRecord) toScores() model.DisposalScores {
	scores := model.DisposalScores{
		Creative:       model.PathScore{Score: int(r.CreativeScore), Reasons: r.CreativeReasons},
		Recycling:      model.PathScore{Score: int(r.RecyclingScore), Reasons: r.RecyclingReasons},
		Secondhand:     model.PathScore{Score: int(r.SecondhandScore), Reasons: r.SecondhandReasons},
		Recommendation: r.Recommendation,
	}
	if scores.Recommendation == "" {
		scores.Recommendation = scores.Primary()
	}
	return scores
}

// scoringBranch produces the three disposal-path scores. Its fallback is the
// category/condition scoring table, so the branch fails only on a panic.
func (o *Orchestrator) scoringBranch(analysis model.ItemAnalysis) Branch {
	return Branch{
		ID: model.BranchDisposalScoring,
		Run: func(ctx context.Context) (any, string, error) {
			raw, err := resilience.DoVal(ctx, o.cfg.Retry, model.BranchDisposalScoring, guard(o, serviceLLM, func(c context.Context) (string, error) {
				return o.llm.Complete(c, completionFor(scoringPromptTemplate, analysis))
			}))
			if err == nil {
				var rec scoreRecord
				if derr := schema.Decode(raw, scoreSpec, &rec); derr == nil {
					scores := rec.toScores()
					o.checkScoreSum(scores)
					return scores, model.SourceLLM, nil
				} else {
					zap.L().Warn("scoring: extraction failed, using fallback table",
						zap.String("kind", string(model.KindOf(derr))),
						zap.Error(derr),
					)
				}
			} else {
				zap.L().Warn("scoring: capability call failed, using fallback table",
					zap.Error(model.CapabilityError(model.BranchDisposalScoring, err)),
				)
			}
			return fallbackScores(analysis), model.SourceFallback, nil
		},
	}
}

// checkScoreSum logs a warning when the path scores drift outside the
// configured sanity window. The window is advisory; scores pass through
// unchanged.
func (o *Orchestrator) checkScoreSum(scores model.DisposalScores) {
	total := scores.Total()
	if total < o.cfg.ScoreSumMin || total > o.cfg.ScoreSumMax {
		zap.L().Warn("scoring: path score total outside sanity window",
			zap.Int("total", total),
			zap.Int("min", o.cfg.ScoreSumMin),
			zap.Int("max", o.cfg.ScoreSumMax),
		)
	}
}

//go:embed scoring_table.yaml
var scoringTableYAML []byte

type pathValues struct {
	Creative   int `yaml:"creative"`
	Recycling  int `yaml:"recycling"`
	Secondhand int `yaml:"secondhand"`
}

type scoringTable struct {
	Defaults   pathValues `yaml:"defaults"`
	Categories []struct {
		Match      string `yaml:"match"`
		Creative   int    `yaml:"creative"`
		Recycling  int    `yaml:"recycling"`
		Secondhand int    `yaml:"secondhand"`
	} `yaml:"categories"`
	Conditions []struct {
		Match      []string `yaml:"match"`
		Creative   int      `yaml:"creative"`
		Recycling  int      `yaml:"recycling"`
		Secondhand int      `yaml:"secondhand"`
	} `yaml:"conditions"`
}

var fallbackTable = loadScoringTable()

func loadScoringTable() scoringTable {
	var t scoringTable
	if err := yaml.Unmarshal(scoringTableYAML, &t); err != nil {
		panic("orchestrator: invalid embedded scoring table: " + err.Error())
	}
	return t
}

// fallbackScores synthesizes deterministic path scores keyed on the item's
// category and condition. Table entries match in declared order so a
// category string hitting several entries always resolves the same way.
func fallbackScores(analysis model.ItemAnalysis) model.DisposalScores {
	base := fallbackTable.Defaults
	for _, entry := range fallbackTable.Categories {
		if strings.Contains(analysis.Category, entry.Match) || strings.Contains(analysis.SubCategory, entry.Match) {
			base = pathValues{Creative: entry.Creative, Recycling: entry.Recycling, Secondhand: entry.Secondhand}
			break
		}
	}

	cond := analysis.Condition
	for _, mod := range fallbackTable.Conditions {
		if !matchesAny(cond, mod.Match) {
			continue
		}
		base.Creative += mod.Creative
		base.Recycling += mod.Recycling
		base.Secondhand += mod.Secondhand
		break
	}

	reasons := reasonTags(analysis)
	scores := model.DisposalScores{
		Creative:   model.PathScore{Score: clampScore(base.Creative), Reasons: reasons},
		Recycling:  model.PathScore{Score: clampScore(base.Recycling), Reasons: reasons},
		Secondhand: model.PathScore{Score: clampScore(base.Secondhand), Reasons: reasons},
	}
	scores.Recommendation = scores.Primary()
	return scores
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func reasonTags(analysis model.ItemAnalysis) []string {
	tags := []string{"规则评分"}
	if analysis.Category != "" {
		tags = append(tags, fmt.Sprintf("类别:%s", analysis.Category))
	}
	if analysis.Condition != "" {
		tags = append(tags, fmt.Sprintf("成色:%s", analysis.Condition))
	}
	return tags
}
