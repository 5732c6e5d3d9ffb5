package model

// ItemAnalysis is a flat record of attributes describing one physical item.
// It is produced independently from an image or from a text description and
// is never mutated after creation; two instances may be reconciled into a
// third by the merge package.
type ItemAnalysis struct {
	Category        string   `json:"category"`
	SubCategory     string   `json:"sub_category,omitempty"`
	Brand           string   `json:"brand,omitempty"`
	Condition       string   `json:"condition,omitempty"`
	Material        string   `json:"material,omitempty"`
	Color           string   `json:"color,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Description     string   `json:"description,omitempty"`
	EstimatedAge    string   `json:"estimated_age,omitempty"`
	SpecialFeatures string   `json:"special_features,omitempty"`
}

// IsEmpty reports whether the analysis carries no usable attributes.
func (a *ItemAnalysis) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.Category == "" && a.SubCategory == "" && a.Brand == "" &&
		a.Condition == "" && a.Material == "" && a.Color == "" &&
		len(a.Keywords) == 0 && a.Description == "" &&
		a.EstimatedAge == "" && a.SpecialFeatures == ""
}

// MergeSource identifies how a reconciled analysis was produced.
type MergeSource string

const (
	MergeSourceImageOnly     MergeSource = "image_only"
	MergeSourceTextOnly      MergeSource = "text_only"
	MergeSourceConsistent    MergeSource = "merged_consistent"
	MergeSourceTextPriority  MergeSource = "text_priority_with_conflicts"
	MergeSourceErrorFallback MergeSource = "error_fallback"
)

// ConflictKind classifies a field-level disagreement between the image and
// text analyses.
type ConflictKind string

const (
	ConflictValue  ConflictKind = "value_difference"
	ConflictString ConflictKind = "string_difference"
	ConflictList   ConflictKind = "list_difference"
)

// ConflictRecord captures one field-level disagreement found during
// reconciliation. Read-only once produced.
type ConflictRecord struct {
	Field      string       `json:"field"`
	ImageValue any          `json:"image_value"`
	TextValue  any          `json:"text_value"`
	Kind       ConflictKind `json:"kind"`
}

// MergeMetadata is attached to a reconciled ItemAnalysis.
type MergeMetadata struct {
	Source       MergeSource      `json:"source"`
	HasConflicts bool             `json:"has_conflicts"`
	Conflicts    []ConflictRecord `json:"conflicts,omitempty"`
	Strategy     string           `json:"strategy"`
}
