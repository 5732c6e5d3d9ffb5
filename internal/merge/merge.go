// Package merge reconciles two independently produced analyses of the same
// item — one derived from an image, one from text — into a single record.
// Text-sourced values carry higher trust: they win every conflict, while the
// image side fills gaps and contributes additively to mergeable fields.
package merge

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

// Heuristic constants carried over from the tuned production values. They
// are package-level so deployments can adjust them without a code change.
var (
	// ListOverlapThreshold: two keyword lists conflict when their
	// intersection covers less than this share of the larger set.
	ListOverlapThreshold = 0.5

	// TokenOverlapThreshold: two free-text fields conflict when neither is
	// a substring of the other and word overlap is below this share.
	TokenOverlapThreshold = 0.5

	// KeywordCap bounds the merged keyword list.
	KeywordCap = 10

	// ConflictCap bounds the recorded conflict list.
	ConflictCap = 5
)

// StrategyLabel is the fixed merge-strategy tag attached to every result.
const StrategyLabel = "text_priority"

// textSeparator joins free-text fields merged from both sources.
const textSeparator = "; "

// fieldAccess pairs a policy-table name with typed access to the struct.
// How each field merges comes from the embedded policy table; this map only
// binds table names to struct fields.
type fieldAccess struct {
	get func(*model.ItemAnalysis) string
	set func(*model.ItemAnalysis, string)
}

var stringAccessors = map[string]fieldAccess{
	"category":         {func(a *model.ItemAnalysis) string { return a.Category }, func(a *model.ItemAnalysis, v string) { a.Category = v }},
	"sub_category":     {func(a *model.ItemAnalysis) string { return a.SubCategory }, func(a *model.ItemAnalysis, v string) { a.SubCategory = v }},
	"brand":            {func(a *model.ItemAnalysis) string { return a.Brand }, func(a *model.ItemAnalysis, v string) { a.Brand = v }},
	"condition":        {func(a *model.ItemAnalysis) string { return a.Condition }, func(a *model.ItemAnalysis, v string) { a.Condition = v }},
	"material":         {func(a *model.ItemAnalysis) string { return a.Material }, func(a *model.ItemAnalysis, v string) { a.Material = v }},
	"color":            {func(a *model.ItemAnalysis) string { return a.Color }, func(a *model.ItemAnalysis, v string) { a.Color = v }},
	"estimated_age":    {func(a *model.ItemAnalysis) string { return a.EstimatedAge }, func(a *model.ItemAnalysis, v string) { a.EstimatedAge = v }},
	"description":      {func(a *model.ItemAnalysis) string { return a.Description }, func(a *model.ItemAnalysis, v string) { a.Description = v }},
	"special_features": {func(a *model.ItemAnalysis) string { return a.SpecialFeatures }, func(a *model.ItemAnalysis, v string) { a.SpecialFeatures = v }},
}

var listAccessors = map[string]struct {
	get func(*model.ItemAnalysis) []string
	set func(*model.ItemAnalysis, []string)
}{
	"keywords": {func(a *model.ItemAnalysis) []string { return a.Keywords }, func(a *model.ItemAnalysis, v []string) { a.Keywords = v }},
}

// Reconcile merges the image- and text-derived analyses. At least one side
// must be usable; the orchestrator fails the run before this point when both
// underlying analyses failed.
func Reconcile(image, text *model.ItemAnalysis) (result model.ItemAnalysis, meta model.MergeMetadata) {
	// An internal panic during merge degrades to returning the trusted side
	// verbatim with the failure recorded as a synthetic conflict.
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		zap.L().Error("merge: reconciliation panicked", zap.Any("panic", r))
		base := text
		if base.IsEmpty() {
			base = image
		}
		if base != nil {
			result = *base
		}
		meta = model.MergeMetadata{
			Source:       model.MergeSourceErrorFallback,
			HasConflicts: true,
			Conflicts: []model.ConflictRecord{{
				Field:     "merge",
				TextValue: fmt.Sprintf("%v", r),
				Kind:      model.ConflictValue,
			}},
			Strategy: StrategyLabel,
		}
	}()

	if image.IsEmpty() {
		return *text, model.MergeMetadata{Source: model.MergeSourceTextOnly, Strategy: StrategyLabel}
	}
	if text.IsEmpty() {
		return *image, model.MergeMetadata{Source: model.MergeSourceImageOnly, Strategy: StrategyLabel}
	}

	merged := *text // text is the base; image supplements
	var conflicts []model.ConflictRecord

	// The policy table drives the walk: field order, and whether a field
	// merges as a scalar, a list, or free text.
	for _, entry := range fieldPolicies {
		switch entry.Policy {
		case PolicyList:
			f, ok := listAccessors[entry.Name]
			if !ok {
				continue
			}
			union, listConflict := mergeKeywords(f.get(image), f.get(text))
			if listConflict != nil {
				listConflict.Field = entry.Name
				conflicts = append(conflicts, *listConflict)
				f.set(&merged, f.get(text))
			} else {
				f.set(&merged, union)
			}

		case PolicyText:
			f, ok := stringAccessors[entry.Name]
			if !ok {
				continue
			}
			iv, tv := f.get(image), f.get(text)
			switch {
			case tv == "" && iv != "":
				f.set(&merged, iv)
			case tv == "" || iv == "":
				// nothing to compare
			case textsConflict(iv, tv):
				conflicts = append(conflicts, model.ConflictRecord{
					Field: entry.Name, ImageValue: iv, TextValue: tv, Kind: model.ConflictString,
				})
			default:
				f.set(&merged, concatTexts(tv, iv))
			}

		default: // PolicyScalar
			f, ok := stringAccessors[entry.Name]
			if !ok {
				continue
			}
			iv, tv := f.get(image), f.get(text)
			switch {
			case tv == "" && iv != "":
				f.set(&merged, iv)
			case tv != "" && iv != "" && normScalar(iv) != normScalar(tv):
				conflicts = append(conflicts, model.ConflictRecord{
					Field: entry.Name, ImageValue: iv, TextValue: tv, Kind: model.ConflictValue,
				})
			}
		}
	}

	meta = model.MergeMetadata{
		Source:   model.MergeSourceConsistent,
		Strategy: StrategyLabel,
	}
	if len(conflicts) > 0 {
		if len(conflicts) > ConflictCap {
			conflicts = conflicts[:ConflictCap]
		}
		meta.Source = model.MergeSourceTextPriority
		meta.HasConflicts = true
		meta.Conflicts = conflicts
		zap.L().Info("merge: conflicts resolved with text priority",
			zap.Int("conflicts", len(conflicts)),
		)
	}
	return merged, meta
}

// mergeKeywords unions the two lists (text first) up to KeywordCap, or
// reports a list conflict when set overlap is below ListOverlapThreshold.
func mergeKeywords(image, text []string) ([]string, *model.ConflictRecord) {
	if len(image) == 0 || len(text) == 0 {
		union := dedupKeywords(append(append([]string{}, text...), image...))
		return union, nil
	}

	imageSet := normSet(image)
	textSet := normSet(text)
	larger := len(imageSet)
	if len(textSet) > larger {
		larger = len(textSet)
	}
	overlap := 0
	for k := range imageSet {
		if textSet[k] {
			overlap++
		}
	}
	// Field is tagged by the caller from the policy table.
	if float64(overlap) < ListOverlapThreshold*float64(larger) {
		return nil, &model.ConflictRecord{
			ImageValue: image,
			TextValue:  text,
			Kind:       model.ConflictList,
		}
	}
	return dedupKeywords(append(append([]string{}, text...), image...)), nil
}

func dedupKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, k := range keywords {
		nk := normScalar(k)
		if nk == "" || seen[nk] {
			continue
		}
		seen[nk] = true
		out = append(out, strings.TrimSpace(k))
		if len(out) == KeywordCap {
			break
		}
	}
	return out
}

// textsConflict reports whether two free-text fields disagree: neither
// normalized string contains the other and token overlap is below threshold.
func textsConflict(a, b string) bool {
	na, nb := normScalar(a), normScalar(b)
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return false
	}
	ta := tokenSet(na)
	tb := tokenSet(nb)
	larger := len(ta)
	if len(tb) > larger {
		larger = len(tb)
	}
	if larger == 0 {
		return false
	}
	overlap := 0
	for t := range ta {
		if tb[t] {
			overlap++
		}
	}
	return float64(overlap) < TokenOverlapThreshold*float64(larger)
}

func concatTexts(base, extra string) string {
	nb, ne := normScalar(base), normScalar(extra)
	if strings.Contains(nb, ne) {
		return base
	}
	if strings.Contains(ne, nb) {
		return extra
	}
	return base + textSeparator + extra
}

// normScalar lowercases, trims, and folds width/compat forms so that CJK
// full-width and half-width variants compare equal.
func normScalar(s string) string {
	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	return strings.ToLower(strings.TrimSpace(s))
}

func normSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		if n := normScalar(it); n != "" {
			set[n] = true
		}
	}
	return set
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
