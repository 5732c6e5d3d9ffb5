package model

import "time"

// Branch identifiers used across the orchestration tree. The coordinator
// addresses outcomes positionally, but downstream consumers key on these.
const (
	BranchDisposalScoring = "disposal_scoring"

	BranchCreative       = "creative_coordinator"
	BranchRenovationPlan = "renovation_plan"
	BranchVideoTutorials = "video_tutorials"

	BranchRecycling      = "recycling_coordinator"
	BranchLocationPoints = "location_points"
	BranchPlatformGuide  = "platform_guide"

	BranchSecondhand     = "secondhand_coordinator"
	BranchMarketSearch   = "market_search"
	BranchListingContent = "listing_content"
)

// Outcome sources. Fallback marks a payload synthesized deterministically
// after a capability or extraction failure.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
	SourceSearch   = "search"
	SourceSkipped  = "skipped"
)

// BranchOutcome is the normalized result of one branch execution. A retried
// branch produces a new outcome; outcomes are never mutated in place.
type BranchOutcome struct {
	Branch   string        `json:"branch"`
	Success  bool          `json:"success"`
	Source   string        `json:"source,omitempty"`
	Payload  any           `json:"payload,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ms"`
}

// Succeeded creates a successful outcome.
func Succeeded(branch, source string, payload any, d time.Duration) BranchOutcome {
	return BranchOutcome{Branch: branch, Success: true, Source: source, Payload: payload, Duration: d}
}

// Failed creates a failed outcome.
func Failed(branch, source, errMsg string, d time.Duration) BranchOutcome {
	return BranchOutcome{Branch: branch, Source: source, Error: errMsg, Duration: d}
}

// PathScore is the model-produced score for one disposal path.
type PathScore struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// DisposalScores holds the three path recommendation scores (0-100 each)
// plus the overall recommendation derived from them.
type DisposalScores struct {
	Creative       PathScore `json:"creative"`
	Recycling      PathScore `json:"recycling"`
	Secondhand     PathScore `json:"secondhand"`
	Recommendation string    `json:"recommendation"`
}

// Primary returns the path name with the highest score. Ties resolve in the
// order creative, recycling, secondhand.
func (d DisposalScores) Primary() string {
	best, name := d.Creative.Score, "creative"
	if d.Recycling.Score > best {
		best, name = d.Recycling.Score, "recycling"
	}
	if d.Secondhand.Score > best {
		name = "secondhand"
	}
	return name
}

// Total returns the sum of the three path scores.
func (d DisposalScores) Total() int {
	return d.Creative.Score + d.Recycling.Score + d.Secondhand.Score
}

// RenovationPlan is the creative path's DIY guidance payload.
type RenovationPlan struct {
	Title       string   `json:"title"`
	Difficulty  string   `json:"difficulty,omitempty"`
	CostRange   string   `json:"cost_range,omitempty"`
	TimeNeeded  string   `json:"time_needed,omitempty"`
	Steps       []string `json:"steps"`
	Materials   []string `json:"materials,omitempty"`
	SafetyNotes []string `json:"safety_notes,omitempty"`
}

// VideoItem is one ranked tutorial video.
type VideoItem struct {
	Title    string  `json:"title"`
	Author   string  `json:"author,omitempty"`
	URL      string  `json:"url"`
	Cover    string  `json:"cover,omitempty"`
	Duration string  `json:"duration,omitempty"`
	Play     int64   `json:"play"`
	Danmaku  int64   `json:"danmaku"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// VideoRecommendation is the video leaf's payload. Videos may be empty when
// the search surfaced nothing; SearchURL always points at a manual search
// for the same keyword.
type VideoRecommendation struct {
	Keyword   string      `json:"keyword"`
	Videos    []VideoItem `json:"videos"`
	SearchURL string      `json:"search_url,omitempty"`
}

// RecyclingPoint is one map POI returned by the location leaf.
type RecyclingPoint struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Distance string `json:"distance,omitempty"`
	Tel      string `json:"tel,omitempty"`
	Location string `json:"location,omitempty"`
}

// PlatformOption is one recycling/donation channel suggestion.
type PlatformOption struct {
	Name        string `json:"name"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	Steps       string `json:"steps,omitempty"`
}

// MarketListing is one comparable listing found on a secondhand marketplace.
type MarketListing struct {
	Platform string  `json:"platform"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	URL      string  `json:"url,omitempty"`
}

// MarketSearchResult aggregates comparable listings across marketplaces.
type MarketSearchResult struct {
	Listings   []MarketListing `json:"listings"`
	PriceLow   float64         `json:"price_low"`
	PriceHigh  float64         `json:"price_high"`
	PriceMean  float64         `json:"price_mean"`
	Platforms  []string        `json:"platforms"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// ListingContent is the generated resale listing copy.
type ListingContent struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Highlights     []string `json:"highlights,omitempty"`
	SuggestedPrice string   `json:"suggested_price,omitempty"`
}

// CreativeSolution is the creative coordinator's combined payload.
type CreativeSolution struct {
	RenovationPlan *BranchOutcome `json:"renovation_plan"`
	VideoTutorials *BranchOutcome `json:"video_tutorials"`
}

// RecyclingSolution is the recycling coordinator's combined payload. The
// location recommendation is nil when the leaf was skipped for lack of a
// user location, which consumers must treat as unavailable, not failed.
type RecyclingSolution struct {
	LocationRecommendation *BranchOutcome `json:"location_recommendation"`
	PlatformRecommendation *BranchOutcome `json:"platform_recommendation"`
}

// SecondhandSolution is the secondhand coordinator's combined payload.
type SecondhandSolution struct {
	MarketSearch   *BranchOutcome `json:"market_search"`
	ListingContent *BranchOutcome `json:"listing_content"`
}

// ProcessingMetadata summarizes a full orchestration run.
type ProcessingMetadata struct {
	ElapsedSeconds float64         `json:"elapsed_seconds"`
	BranchSuccess  map[string]bool `json:"branch_success"`
	SuccessCount   int             `json:"success_count"`
	PrimaryPath    string          `json:"primary_path,omitempty"`
	AnalysisSource MergeSource     `json:"analysis_source,omitempty"`
}

// AggregateReport is the orchestrator's final deliverable. Immutable once
// returned; Success is true iff at least one branch in the tree succeeded.
type AggregateReport struct {
	RunID    string         `json:"run_id"`
	Success  bool           `json:"success"`
	Analysis *ItemAnalysis  `json:"analysis,omitempty"`
	Merge    *MergeMetadata `json:"merge,omitempty"`

	DisposalScores     *BranchOutcome      `json:"disposal_scores,omitempty"`
	CreativeSolution   *CreativeSolution   `json:"creative_solution,omitempty"`
	RecyclingSolution  *RecyclingSolution  `json:"recycling_solution,omitempty"`
	SecondhandSolution *SecondhandSolution `json:"secondhand_solution,omitempty"`

	Metadata ProcessingMetadata `json:"metadata"`
	Error    string             `json:"error,omitempty"`
}
