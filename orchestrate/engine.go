package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kbukum/convoy/bundle"
	"github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/gate"
	"github.com/kbukum/convoy/gather"
	"github.com/kbukum/convoy/logger"
	"github.com/kbukum/convoy/observability"
	"github.com/kbukum/convoy/publish"
	"github.com/kbukum/convoy/run"
)

// Outcome is the terminal state of a run. Every run ends in exactly one.
type Outcome string

const (
	// OutcomeAccepted: all gathers succeeded, the gate accepted, the bundle
	// landed in the primary package.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeQuarantined: the bundle landed in the quarantine package,
	// either because the gate rejected or because gathering failed.
	OutcomeQuarantined Outcome = "quarantined"
	// OutcomeAborted: no bundle could be made durable.
	OutcomeAborted Outcome = "aborted"
)

// Gatherer harvests one node's artifact set into the tree.
type Gatherer interface {
	Gather(ctx context.Context, rc *run.Context, spec run.NodeSpec, treeRoot string) (gather.Result, error)
}

// Gate evaluates the accept policy over a gathered tree.
type Gate interface {
	Evaluate(treeRoot string) (gate.Verdict, error)
}

// Bundler assembles the tree into a publishable artifact.
type Bundler interface {
	Bundle(rc *run.Context, treeRoot string, sum bundle.Summary) (bundle.Artifact, error)
}

// Publisher delivers the bundle to the bus.
type Publisher interface {
	Destination(accepted bool) string
	Publish(ctx context.Context, runID string, accepted bool, bundlePath string) (publish.Receipt, error)
}

// Report is the final account of one run.
type Report struct {
	Outcome    Outcome
	Verdict    gate.Verdict
	BundlePath string
	Receipt    publish.Receipt
	// Nodes maps node name to its gather status.
	Nodes map[string]string
	// GatherErrors holds every gather failure; diagnostics, not control flow.
	GatherErrors []error
	Duration     time.Duration
}

// Engine sequences the run stages.
type Engine struct {
	gatherer  Gatherer
	gate      Gate
	bundler   Bundler
	publisher Publisher

	maxParallel int
	workRoot    string
	metrics     *observability.Metrics
	log         *logger.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithMaxParallel caps concurrent gatherers per dependency level
// (0 = unlimited).
func WithMaxParallel(n int) Option {
	return func(e *Engine) { e.maxParallel = n }
}

// WithWorkRoot places run work directories under dir instead of the
// system temp directory.
func WithWorkRoot(dir string) Option {
	return func(e *Engine) { e.workRoot = dir }
}

// WithMetrics enables metric recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine from its four stages.
func New(g Gatherer, gt Gate, b Bundler, p Publisher, opts ...Option) *Engine {
	e := &Engine{gatherer: g, gate: gt, bundler: b, publisher: p}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.GetGlobalLogger()
	}
	e.log = e.log.WithComponent("orchestrate")
	return e
}

// Execute runs the plan to its terminal outcome. The returned error is
// non-nil only for the aborted outcome; accepted and quarantined runs
// report their state through the Report alone.
func (e *Engine) Execute(ctx context.Context, rc *run.Context) (Report, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRun)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrRunID, rc.RunID)

	log := e.log.WithRun(rc.RunID)
	start := time.Now()
	report := Report{Outcome: OutcomeAborted, Nodes: make(map[string]string, len(rc.Nodes))}

	defer func() {
		report.Duration = time.Since(start)
		observability.SetSpanAttribute(ctx, observability.AttrOutcome, string(report.Outcome))
		if e.metrics != nil {
			e.metrics.RecordRun(ctx, string(report.Outcome))
		}
	}()

	log.Info("run started", logger.Fields("nodes", len(rc.Nodes)))

	workDir, err := os.MkdirTemp(e.workRoot, "convoy-run-*")
	if err != nil {
		return report, errors.Internal(err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	treeRoot := filepath.Join(workDir, "tree")
	if err := os.Mkdir(treeRoot, 0o755); err != nil {
		return report, errors.Internal(err)
	}

	results := e.gatherAll(ctx, rc, treeRoot, &report)
	gathered := len(report.GatherErrors) == 0

	verdict := gate.Verdict{}
	if gathered {
		verdict, err = e.evaluateGate(ctx, treeRoot)
		if err != nil {
			log.Error("gate evaluation failed", logger.Fields(logger.FieldError, err.Error()))
			return report, err
		}
	} else {
		verdict.Accepted = false
		for _, gerr := range report.GatherErrors {
			verdict.Reasons = append(verdict.Reasons, gerr.Error())
		}
		log.Warn("gathering incomplete, routing to quarantine", logger.Fields(
			"failures", len(report.GatherErrors),
		))
	}
	report.Verdict = verdict
	accepted := gathered && verdict.Accepted

	artifact, err := e.assembleBundle(ctx, rc, treeRoot, results, verdict, accepted, gathered)
	if err != nil {
		log.Error("bundling failed", logger.Fields(logger.FieldError, err.Error()))
		return report, err
	}
	report.BundlePath = artifact.Path

	receipt, err := e.publishBundle(ctx, rc, accepted, artifact.Path)
	if err != nil {
		log.Error("publish failed", logger.Fields(logger.FieldError, err.Error()))
		return report, err
	}
	report.Receipt = receipt

	if accepted {
		report.Outcome = OutcomeAccepted
	} else {
		report.Outcome = OutcomeQuarantined
	}
	log.Info("run finished", logger.Fields(
		logger.FieldOutcome, string(report.Outcome),
		logger.FieldPackage, receipt.Package,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return report, nil
}

// gatherAll fans out one goroutine per node within each dependency level.
// Siblings always run to natural completion: a failure is recorded, never
// used to cancel the rest of the level, so every node's diagnostics reach
// the tree.
func (e *Engine) gatherAll(ctx context.Context, rc *run.Context, treeRoot string, report *Report) []gather.Result {
	levels, err := run.Levels(rc.Nodes)
	if err != nil {
		// NewContext already proved acyclicity.
		report.GatherErrors = append(report.GatherErrors, err)
		return nil
	}

	var (
		mu      sync.Mutex
		results []gather.Result
	)

	stageStart := time.Now()
	for _, level := range levels {
		var wg sync.WaitGroup
		sem := make(chan struct{}, e.concurrency(len(level)))

		for _, name := range level {
			wg.Add(1)
			go func(spec run.NodeSpec) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				gctx, gspan := observability.StartSpan(ctx, observability.SpanGather)
				observability.SetSpanAttribute(gctx, observability.AttrNode, spec.Name)
				result, err := e.gatherer.Gather(gctx, rc, spec, treeRoot)
				if err != nil {
					observability.SetSpanError(gctx, err)
				}
				gspan.End()

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Nodes[spec.Name] = "failed"
					report.GatherErrors = append(report.GatherErrors, err)
					return
				}
				report.Nodes[spec.Name] = result.Status
				results = append(results, result)
			}(rc.Nodes[name])
		}
		wg.Wait()
	}
	e.recordStage(ctx, "gather", stageStatus(len(report.GatherErrors) == 0), stageStart)
	return results
}

func (e *Engine) evaluateGate(ctx context.Context, treeRoot string) (gate.Verdict, error) {
	gctx, span := observability.StartSpan(ctx, observability.SpanGate)
	defer span.End()
	start := time.Now()

	verdict, err := e.gate.Evaluate(treeRoot)
	if err != nil {
		observability.SetSpanError(gctx, err)
		e.recordStage(ctx, "gate", "failed", start)
		return gate.Verdict{}, err
	}
	observability.SetSpanAttribute(gctx, observability.AttrVerdict, verdictLabel(verdict.Accepted))
	e.recordStage(ctx, "gate", verdictLabel(verdict.Accepted), start)
	return verdict, nil
}

func (e *Engine) assembleBundle(ctx context.Context, rc *run.Context, treeRoot string, results []gather.Result, verdict gate.Verdict, accepted, gathered bool) (bundle.Artifact, error) {
	bctx, span := observability.StartSpan(ctx, observability.SpanBundle)
	defer span.End()
	start := time.Now()

	status := "success"
	if !gathered {
		status = "failed"
	}
	artifact, err := e.bundler.Bundle(rc, treeRoot, bundle.Summary{
		Status:      status,
		GatePassed:  verdict.Accepted,
		GateReasons: verdict.Reasons,
		Package:     e.publisher.Destination(accepted),
		Results:     results,
	})
	if err != nil {
		observability.SetSpanError(bctx, err)
		e.recordStage(ctx, "bundle", "failed", start)
		return bundle.Artifact{}, err
	}
	e.recordStage(ctx, "bundle", "success", start)
	return artifact, nil
}

func (e *Engine) publishBundle(ctx context.Context, rc *run.Context, accepted bool, bundlePath string) (publish.Receipt, error) {
	pctx, span := observability.StartSpan(ctx, observability.SpanPublish)
	defer span.End()
	start := time.Now()

	receipt, err := e.publisher.Publish(pctx, rc.RunID, accepted, bundlePath)
	if err != nil {
		observability.SetSpanError(pctx, err)
		e.recordStage(ctx, "publish", "failed", start)
		return publish.Receipt{}, err
	}
	observability.SetSpanAttribute(pctx, observability.AttrPackage, receipt.Package)
	e.recordStage(ctx, "publish", "success", start)
	if e.metrics != nil {
		e.metrics.RecordPublish(ctx, receipt.Package, accepted)
	}
	return receipt, nil
}

func (e *Engine) recordStage(ctx context.Context, stage, status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordStage(ctx, stage, status, time.Since(start))
	}
}

func (e *Engine) concurrency(levelSize int) int {
	if e.maxParallel <= 0 || e.maxParallel > levelSize {
		return levelSize
	}
	return e.maxParallel
}

func stageStatus(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

func verdictLabel(accepted bool) string {
	if accepted {
		return "accept"
	}
	return "reject"
}
