package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

func TestReconcile_TextOnly(t *testing.T) {
	text := &model.ItemAnalysis{Category: "家具", Condition: "九成新"}

	merged, meta := Reconcile(nil, text)

	assert.Equal(t, *text, merged)
	assert.Equal(t, model.MergeSourceTextOnly, meta.Source)
	assert.Equal(t, StrategyLabel, meta.Strategy)
	assert.False(t, meta.HasConflicts)
}

func TestReconcile_ImageOnly(t *testing.T) {
	image := &model.ItemAnalysis{Category: "家电", Brand: "美的"}

	merged, meta := Reconcile(image, &model.ItemAnalysis{})

	assert.Equal(t, *image, merged)
	assert.Equal(t, model.MergeSourceImageOnly, meta.Source)
}

func TestReconcile_ConsistentFillsGaps(t *testing.T) {
	image := &model.ItemAnalysis{Category: "家具", Color: "棕色", Material: "实木"}
	text := &model.ItemAnalysis{Category: "家具", Condition: "八成新"}

	merged, meta := Reconcile(image, text)

	assert.Equal(t, model.MergeSourceConsistent, meta.Source)
	assert.Equal(t, "家具", merged.Category)
	assert.Equal(t, "八成新", merged.Condition)
	// Image fills scalars the text side left empty.
	assert.Equal(t, "棕色", merged.Color)
	assert.Equal(t, "实木", merged.Material)
}

func TestReconcile_IdenticalAnalyses(t *testing.T) {
	full := model.ItemAnalysis{
		Category: "家具", SubCategory: "餐椅", Brand: "宜家",
		Condition: "八成新", Material: "实木", Color: "棕色",
		Keywords: []string{"椅子", "实木", "客厅"}, EstimatedAge: "3年",
		Description: "一把实木餐椅", SpecialFeatures: "可叠放",
	}
	image, text := full, full

	merged, meta := Reconcile(&image, &text)

	assert.Equal(t, full, merged)
	assert.Equal(t, model.MergeSourceConsistent, meta.Source)
	assert.False(t, meta.HasConflicts)
	assert.Empty(t, meta.Conflicts)
}

func TestReconcile_ScalarConflictTextWins(t *testing.T) {
	image := &model.ItemAnalysis{Category: "家电"}
	text := &model.ItemAnalysis{Category: "家具"}

	merged, meta := Reconcile(image, text)

	assert.Equal(t, "家具", merged.Category)
	assert.Equal(t, model.MergeSourceTextPriority, meta.Source)
	require.Len(t, meta.Conflicts, 1)
	assert.Equal(t, "category", meta.Conflicts[0].Field)
	assert.Equal(t, model.ConflictValue, meta.Conflicts[0].Kind)
	assert.Equal(t, "家电", meta.Conflicts[0].ImageValue)
	assert.Equal(t, "家具", meta.Conflicts[0].TextValue)
}

// Width and case variants normalize equal, so they are not conflicts. The
// text side's original spelling is kept.
func TestReconcile_NormalizedEqualNotConflict(t *testing.T) {
	image := &model.ItemAnalysis{Category: "家具", Brand: "IKEA"}
	text := &model.ItemAnalysis{Category: "家具", Brand: "ikea"}

	merged, meta := Reconcile(image, text)

	assert.Equal(t, model.MergeSourceConsistent, meta.Source)
	assert.Equal(t, "ikea", merged.Brand)
}

func TestReconcile_KeywordUnionCapped(t *testing.T) {
	image := &model.ItemAnalysis{
		Category: "家具",
		Keywords: []string{"椅子", "实木", "客厅", "北欧", "原木", "靠背", "餐椅"},
	}
	text := &model.ItemAnalysis{
		Category: "家具",
		Keywords: []string{"椅子", "实木", "客厅", "北欧", "二手", "转让"},
	}

	merged, meta := Reconcile(image, text)

	assert.False(t, meta.HasConflicts)
	assert.LessOrEqual(t, len(merged.Keywords), KeywordCap)
	// Text keywords lead the union.
	assert.Equal(t, "椅子", merged.Keywords[0])
	assert.Contains(t, merged.Keywords, "靠背")
	// Duplicates collapse.
	assert.Equal(t, countOf(merged.Keywords, "实木"), 1)
}

func TestReconcile_KeywordListConflict(t *testing.T) {
	image := &model.ItemAnalysis{Category: "家具", Keywords: []string{"微波炉", "厨房", "加热"}}
	text := &model.ItemAnalysis{Category: "家具", Keywords: []string{"椅子", "实木", "客厅"}}

	merged, meta := Reconcile(image, text)

	// Disjoint lists conflict; text list is kept whole.
	assert.Equal(t, []string{"椅子", "实木", "客厅"}, merged.Keywords)
	require.True(t, meta.HasConflicts)
	assert.Equal(t, model.ConflictList, meta.Conflicts[0].Kind)
}

func TestReconcile_TextFieldContainmentMerges(t *testing.T) {
	image := &model.ItemAnalysis{Category: "家具", Description: "实木餐椅"}
	text := &model.ItemAnalysis{Category: "家具", Description: "一把实木餐椅,有轻微划痕"}

	merged, meta := Reconcile(image, text)

	assert.False(t, meta.HasConflicts)
	assert.Equal(t, "一把实木餐椅,有轻微划痕", merged.Description)
}

func TestReconcile_ConflictCap(t *testing.T) {
	image := &model.ItemAnalysis{
		Category: "家电", SubCategory: "微波炉", Brand: "格兰仕",
		Condition: "全新", Material: "金属", Color: "白色", EstimatedAge: "1年",
	}
	text := &model.ItemAnalysis{
		Category: "家具", SubCategory: "餐椅", Brand: "宜家",
		Condition: "八成新", Material: "实木", Color: "棕色", EstimatedAge: "5年",
	}

	_, meta := Reconcile(image, text)

	require.True(t, meta.HasConflicts)
	assert.Len(t, meta.Conflicts, ConflictCap)
}

func TestTextsConflict(t *testing.T) {
	assert.False(t, textsConflict("实木餐椅", "一把实木餐椅,有划痕"))
	assert.True(t, textsConflict("white metal microwave oven", "brown wooden dining chair"))
	assert.False(t, textsConflict("old wooden chair brown", "wooden chair brown legs"))
}

func TestNormScalar_WidthAndCase(t *testing.T) {
	assert.Equal(t, normScalar("IKEA"), normScalar("ikea"))
	assert.Equal(t, normScalar("ＩＫＥＡ"), normScalar("ikea"))
	assert.Equal(t, normScalar(" 家具 "), "家具")
}

// Every analysis field the reconciler can touch must be declared in the
// policy table, and every table entry must bind to an accessor.
func TestPolicyTableBindsAllFields(t *testing.T) {
	require.NotEmpty(t, fieldPolicies)
	for _, entry := range fieldPolicies {
		if entry.Policy == PolicyList {
			_, ok := listAccessors[entry.Name]
			assert.True(t, ok, entry.Name)
			continue
		}
		_, ok := stringAccessors[entry.Name]
		assert.True(t, ok, entry.Name)
	}

	declared := make(map[string]bool, len(fieldPolicies))
	for _, entry := range fieldPolicies {
		declared[entry.Name] = true
	}
	for name := range stringAccessors {
		assert.True(t, declared[name], name)
	}
	for name := range listAccessors {
		assert.True(t, declared[name], name)
	}
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyList, PolicyFor("keywords"))
	assert.Equal(t, PolicyText, PolicyFor("description"))
	assert.Equal(t, PolicyScalar, PolicyFor("category"))
	assert.Equal(t, PolicyScalar, PolicyFor("unknown_field"))
}

func countOf(items []string, want string) int {
	n := 0
	for _, it := range items {
		if it == want {
			n++
		}
	}
	return n
}
