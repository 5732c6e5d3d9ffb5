// Package orchestrator coordinates the full disposal-recommendation run: a
// two-level tree of recommendation branches over shared item analysis, with
// per-branch isolation and at-least-one-success aggregation.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/merge"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/amap"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/bilibili"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/llm"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/xianyu"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/zhuanzhuan"
)

// Config tunes one orchestrator instance. Zero values fall back to
// DefaultConfig's numbers field by field.
type Config struct {
	// BranchTimeout bounds each leaf branch; CoordinatorTimeout bounds a
	// whole coordinator including its leaves.
	BranchTimeout      time.Duration
	CoordinatorTimeout time.Duration
	Mode               Mode
	Retry              resilience.RetryConfig
	Breaker            resilience.CircuitConfig

	VideoTopN          int
	VideoSearchLimit   int
	VideoWeights       map[string]float64
	VideoMinThresholds map[string]float64

	MarketSearchLimit int
	POIRadius         int
	POILimit          int

	// Sanity window for the three-path score total. Outside the window is
	// logged, never rejected.
	ScoreSumMin int
	ScoreSumMax int

	EventBuffer int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BranchTimeout:      25 * time.Second,
		CoordinatorTimeout: 60 * time.Second,
		Mode:               Parallel,
		Retry:              resilience.DefaultRetryConfig(),
		Breaker:            resilience.DefaultCircuitConfig(),
		VideoTopN:          5,
		VideoSearchLimit:   20,
		VideoWeights:       map[string]float64{"play": 0.7, "danmaku": 0.3},
		VideoMinThresholds: map[string]float64{"play": 100},
		MarketSearchLimit:  20,
		POIRadius:          5000,
		POILimit:           10,
		ScoreSumMin:        80,
		ScoreSumMax:        120,
		EventBuffer:        16,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BranchTimeout <= 0 {
		c.BranchTimeout = d.BranchTimeout
	}
	if c.CoordinatorTimeout <= 0 {
		c.CoordinatorTimeout = d.CoordinatorTimeout
	}
	if c.VideoTopN <= 0 {
		c.VideoTopN = d.VideoTopN
	}
	if c.VideoSearchLimit <= 0 {
		c.VideoSearchLimit = d.VideoSearchLimit
	}
	if len(c.VideoWeights) == 0 {
		c.VideoWeights = d.VideoWeights
	}
	if c.VideoMinThresholds == nil {
		c.VideoMinThresholds = d.VideoMinThresholds
	}
	if c.MarketSearchLimit <= 0 {
		c.MarketSearchLimit = d.MarketSearchLimit
	}
	if c.POIRadius <= 0 {
		c.POIRadius = d.POIRadius
	}
	if c.POILimit <= 0 {
		c.POILimit = d.POILimit
	}
	if c.ScoreSumMin <= 0 {
		c.ScoreSumMin = d.ScoreSumMin
	}
	if c.ScoreSumMax <= 0 {
		c.ScoreSumMax = d.ScoreSumMax
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	return c
}

// Input is one processing request. At least one of ImagePath and Text must
// be set; Location ("lng,lat") is optional and only gates the recycling
// location leaf.
type Input struct {
	ImagePath string
	Text      string
	Location  string
}

// Orchestrator runs the recommendation tree. Safe for concurrent use; all
// per-run state lives on the stack of Process, while the circuit breakers
// accumulate capability health across runs.
type Orchestrator struct {
	llm        llm.Client
	amap       amap.Client
	xianyu     xianyu.Client
	zhuanzhuan zhuanzhuan.Client
	bilibili   bilibili.Client
	breakers   *resilience.ServiceBreakers
	cfg        Config
}

// Circuit breaker keys, one per outbound capability.
const (
	serviceLLM        = "llm"
	serviceAmap       = "amap"
	serviceXianyu     = "xianyu"
	serviceZhuanzhuan = "zhuanzhuan"
	serviceBilibili   = "bilibili"
)

// New assembles an orchestrator over the given capability clients.
func New(llmClient llm.Client, amapClient amap.Client, xy xianyu.Client, zz zhuanzhuan.Client, bili bilibili.Client, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		llm:        llmClient,
		amap:       amapClient,
		xianyu:     xy,
		zhuanzhuan: zz,
		bilibili:   bili,
		breakers:   resilience.NewServiceBreakers(cfg.Breaker),
		cfg:        cfg,
	}
}

// guard wraps one outbound attempt with the service's circuit breaker. The
// breaker sits inside the retry loop: every attempt consults it, and an open
// circuit stops the retry immediately since ErrCircuitOpen is not transient.
func guard[T any](o *Orchestrator, service string, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return resilience.ExecuteVal(ctx, o.breakers.Get(service), fn)
	}
}

// Process runs the full pipeline and streams progress events. The returned
// channel is closed after the terminal event, which carries the aggregate
// report. Cancelling ctx aborts in-flight branches; already-computed
// partial results still land in the terminal report.
func (o *Orchestrator) Process(ctx context.Context, in Input) <-chan model.ProgressEvent {
	events := make(chan model.ProgressEvent, o.cfg.EventBuffer)
	go func() {
		defer close(events)
		o.run(ctx, in, events)
	}()
	return events
}

// ProcessSync runs the pipeline and returns only the final report.
func (o *Orchestrator) ProcessSync(ctx context.Context, in Input) *model.AggregateReport {
	var report *model.AggregateReport
	for ev := range o.Process(ctx, in) {
		if ev.Final {
			report = ev.Report
		}
	}
	return report
}

type eventSink struct {
	runID  string
	events chan<- model.ProgressEvent
}

func (s eventSink) emit(stage, status string, payload any) {
	s.events <- model.ProgressEvent{
		RunID:     s.runID,
		Stage:     stage,
		Status:    status,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

func (s eventSink) fail(stage string, report *model.AggregateReport) {
	s.events <- model.ProgressEvent{
		RunID:     s.runID,
		Stage:     stage,
		Status:    model.StatusFailed,
		Timestamp: time.Now(),
		Final:     true,
		Report:    report,
	}
}

func (o *Orchestrator) run(ctx context.Context, in Input, events chan<- model.ProgressEvent) {
	start := time.Now()
	sink := eventSink{runID: uuid.NewString(), events: events}
	log := zap.L().With(zap.String("run_id", sink.runID))
	log.Info("process: starting",
		zap.Bool("has_image", in.ImagePath != ""),
		zap.Bool("has_text", in.Text != ""),
		zap.Bool("has_location", in.Location != ""),
	)

	// Validating. The only stage, with Analyzing, that can fail the run.
	sink.emit(model.StageValidating, model.StatusRunning, nil)
	if err := validateInput(in); err != nil {
		log.Warn("process: validation failed", zap.Error(err))
		sink.fail(model.StageValidating, failedReport(sink.runID, err, start))
		return
	}
	sink.emit(model.StageValidating, model.StatusCompleted, nil)

	// Analyzing.
	sink.emit(model.StageAnalyzing, model.StatusRunning, nil)
	imageAnalysis, textAnalysis, err := o.analyze(ctx, in)
	if err != nil {
		log.Warn("process: analysis failed", zap.Error(err))
		sink.fail(model.StageAnalyzing, failedReport(sink.runID, err, start))
		return
	}
	analysis, mergeMeta := merge.Reconcile(imageAnalysis, textAnalysis)
	sink.emit(model.StageAnalyzing, model.StatusCompleted, map[string]any{
		"analysis": analysis,
		"merge":    mergeMeta,
	})

	// ScoringDisposal. Never fatal: the scoring branch falls back to the
	// deterministic table and fails only on a panic.
	sink.emit(model.StageScoring, model.StatusRunning, nil)
	scoring := runWithTimeout(ctx, o.scoringBranch(analysis), o.cfg.BranchTimeout)
	sink.emit(model.StageScoring, statusOf(scoring), scoring)

	// FanningOutCoordinators.
	sink.emit(model.StageFanningOut, model.StatusRunning, nil)
	coordinators := RunGroup(ctx, []Branch{
		o.creativeBranch(analysis),
		o.recyclingBranch(analysis, in.Location),
		o.secondhandBranch(analysis),
	}, o.cfg.Mode, o.cfg.CoordinatorTimeout)
	sink.emit(model.StageFanningOut, model.StatusCompleted, coordinatorSummary(coordinators))

	// Integrating. Assembly defects degrade to a partial report instead of
	// killing the stream.
	sink.emit(model.StageIntegrating, model.StatusRunning, nil)
	report := o.assemble(sink.runID, &analysis, &mergeMeta, scoring, coordinators, start)
	sink.emit(model.StageIntegrating, model.StatusCompleted, nil)

	log.Info("process: done",
		zap.Bool("success", report.Success),
		zap.Int("branch_successes", report.Metadata.SuccessCount),
		zap.Float64("elapsed_seconds", report.Metadata.ElapsedSeconds),
	)
	events <- model.ProgressEvent{
		RunID:     sink.runID,
		Stage:     model.StageDone,
		Status:    model.StatusCompleted,
		Timestamp: time.Now(),
		Final:     true,
		Report:    report,
	}
}

// validateInput enforces the minimal preconditions for a run.
func validateInput(in Input) error {
	text := strings.TrimSpace(in.Text)
	if in.ImagePath == "" && text == "" {
		return model.ValidationError("at least one of image and text is required")
	}
	if text != "" && utf8.RuneCountInString(text) < 2 {
		return model.ValidationError("text description too short")
	}
	if in.ImagePath != "" {
		if _, err := os.Stat(in.ImagePath); err != nil {
			return model.ValidationError(fmt.Sprintf("image not accessible: %v", err))
		}
	}
	return nil
}

// assemble builds the final report from the scoring outcome and the three
// coordinator outcomes. A panic during assembly is recovered into a report
// that carries the error but keeps whatever was already filled in.
func (o *Orchestrator) assemble(runID string, analysis *model.ItemAnalysis, mergeMeta *model.MergeMetadata, scoring model.BranchOutcome, coordinators []model.BranchOutcome, start time.Time) (report *model.AggregateReport) {
	report = &model.AggregateReport{
		RunID:    runID,
		Analysis: analysis,
		Merge:    mergeMeta,
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("assemble: panic", zap.String("run_id", runID), zap.Any("panic", r))
			report.Error = fmt.Sprintf("integration: panic: %v", r)
		}
		report.Metadata.ElapsedSeconds = time.Since(start).Seconds()
	}()

	creative := coordinatorAt(coordinators, 0)
	recycling := coordinatorAt(coordinators, 1)
	secondhand := coordinatorAt(coordinators, 2)

	scoringRef := scoring
	report.DisposalScores = &scoringRef

	creativeLeaves := leafOutcomes(creative)
	report.CreativeSolution = &model.CreativeSolution{
		RenovationPlan: outcomeRef(creativeLeaves, 0),
		VideoTutorials: outcomeRef(creativeLeaves, 1),
	}
	recyclingLeaves := leafOutcomes(recycling)
	report.RecyclingSolution = &model.RecyclingSolution{
		PlatformRecommendation: outcomeRef(recyclingLeaves, 0),
		LocationRecommendation: outcomeRef(recyclingLeaves, 1),
	}
	secondhandLeaves := leafOutcomes(secondhand)
	report.SecondhandSolution = &model.SecondhandSolution{
		MarketSearch:   outcomeRef(secondhandLeaves, 0),
		ListingContent: outcomeRef(secondhandLeaves, 1),
	}

	// Aggregation runs over the flattened tree: the scoring branch, every
	// coordinator, and every leaf.
	flat := []model.BranchOutcome{scoring}
	flat = append(flat, coordinators...)
	flat = append(flat, creativeLeaves...)
	flat = append(flat, recyclingLeaves...)
	flat = append(flat, secondhandLeaves...)
	agg := Aggregate(flat)

	report.Success = agg.Success
	report.Error = agg.Error
	report.Metadata.BranchSuccess = agg.BranchSuccess
	report.Metadata.SuccessCount = agg.SuccessCount
	report.Metadata.AnalysisSource = mergeMeta.Source
	if scoring.Success {
		if scores, ok := scoring.Payload.(model.DisposalScores); ok {
			report.Metadata.PrimaryPath = scores.Recommendation
		}
	}
	return report
}

func coordinatorAt(coordinators []model.BranchOutcome, i int) model.BranchOutcome {
	if i < 0 || i >= len(coordinators) {
		return model.BranchOutcome{}
	}
	return coordinators[i]
}

func coordinatorSummary(coordinators []model.BranchOutcome) map[string]any {
	summary := make(map[string]any, len(coordinators))
	for _, c := range coordinators {
		summary[c.Branch] = c.Success
	}
	return summary
}

func failedReport(runID string, err error, start time.Time) *model.AggregateReport {
	return &model.AggregateReport{
		RunID: runID,
		Error: err.Error(),
		Metadata: model.ProcessingMetadata{
			ElapsedSeconds: time.Since(start).Seconds(),
			BranchSuccess:  map[string]bool{},
		},
	}
}

func statusOf(out model.BranchOutcome) string {
	if out.Success {
		return model.StatusCompleted
	}
	return model.StatusFailed
}
