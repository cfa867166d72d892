package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kbukum/convoy/bundle"
	"github.com/kbukum/convoy/config"
	"github.com/kbukum/convoy/gate"
	"github.com/kbukum/convoy/gather"
	"github.com/kbukum/convoy/host"
	"github.com/kbukum/convoy/locate"
	"github.com/kbukum/convoy/logger"
	"github.com/kbukum/convoy/observability"
	"github.com/kbukum/convoy/orchestrate"
	"github.com/kbukum/convoy/publish"
	"github.com/kbukum/convoy/resilience"
	"github.com/kbukum/convoy/resolve"
	"github.com/kbukum/convoy/run"
	"github.com/kbukum/convoy/seal"
	"github.com/kbukum/convoy/transport"
	"github.com/kbukum/convoy/util"
	"github.com/kbukum/convoy/version"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "convoy: %v\n", err)
		os.Exit(1)
	}
}

func realMain() error {
	var (
		planPath    = flag.String("plan", "plan.yml", "run plan file")
		configPath  = flag.String("config", "", "config file (default: search paths)")
		hostRunID   = flag.Int64("host-run-id", 0, "pipeline host run id (overrides plan and CONVOY_HOST_RUN_ID)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return nil
	}

	var loaderOpts []config.LoaderOption
	if *configPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(*configPath))
	}
	cfg, err := config.Load(loaderOpts...)
	if err != nil {
		return err
	}

	log := logger.New(&cfg.Logging)
	logger.SetGlobalLogger(log)
	log.Info("starting", logger.Fields(
		"version", version.String(),
		"host", cfg.Host.BaseURL,
		"token", util.MaskSecret(cfg.Host.Token, 4),
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Orchestrator.Name,
			ServiceVersion: version.Version,
			Environment:    cfg.Tracing.Environment,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SampleRate:     cfg.Tracing.SampleRate,
		})
		if err != nil {
			return err
		}
		defer shutdown(tp.Shutdown)

		mp, err := observability.InitMeter(ctx, observability.MeterConfig{
			ServiceName:    cfg.Orchestrator.Name,
			ServiceVersion: version.Version,
			Environment:    cfg.Tracing.Environment,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
		})
		if err != nil {
			return err
		}
		defer shutdown(mp.Shutdown)

		metrics, err = observability.NewMetrics(observability.Meter(cfg.Orchestrator.Name))
		if err != nil {
			return err
		}
	}

	plan, err := run.LoadPlan(*planPath)
	if err != nil {
		return err
	}
	runID, err := resolveHostRunID(*hostRunID, plan.HostRunID)
	if err != nil {
		return err
	}

	rc, err := run.NewContext(runID,
		run.Identity{Name: cfg.Orchestrator.Name, URL: cfg.Orchestrator.URL},
		run.BusTarget{
			StoreID:           cfg.Bus.StoreID,
			PrimaryPackage:    cfg.Bus.PrimaryPackage,
			QuarantinePackage: cfg.Bus.QuarantinePackage,
		},
		plan.Nodes,
	)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg, rc, metrics, log)
	if err != nil {
		return err
	}

	report, err := engine.Execute(ctx, rc)
	if err != nil {
		return fmt.Errorf("run %s aborted: %w", rc.RunID, err)
	}

	fmt.Printf("run %s: %s (%s/%s)\n",
		rc.RunID, report.Outcome, report.Receipt.Package, report.Receipt.File)
	return nil
}

func buildEngine(cfg *config.Config, rc *run.Context, metrics *observability.Metrics, log *logger.Logger) (*orchestrate.Engine, error) {
	tc := transport.New(transport.Config{
		BaseURL: cfg.Host.BaseURL,
		Token:   cfg.Host.Token,
		Timeout: cfg.Host.Timeout,
		Retry: resilience.RetryConfig{
			MaxRetries: cfg.Retry.MaxRetries,
			Delay:      cfg.Retry.Delay,
		},
		Logger: log.WithComponent("transport"),
		OnRetry: func(ctx context.Context, operation string) {
			if metrics != nil {
				metrics.RecordRetry(ctx, operation)
			}
		},
	})
	hc := host.NewClient(tc)

	var bundleOpts []bundle.Option
	if cfg.Seal.Enabled {
		sealer, err := seal.New(rc.RunID, seal.WithAlgorithm(seal.Algorithm(cfg.Seal.Algorithm)))
		if err != nil {
			return nil, err
		}
		bundleOpts = append(bundleOpts, bundle.WithSealer(sealer))
	}

	engineOpts := []orchestrate.Option{
		orchestrate.WithMaxParallel(cfg.MaxParallel),
		orchestrate.WithLogger(log),
	}
	if metrics != nil {
		engineOpts = append(engineOpts, orchestrate.WithMetrics(metrics))
	}

	return orchestrate.New(
		gather.New(resolve.New(hc, log), locate.New(hc), hc, log),
		gate.New(log, gateRules(rc)...),
		bundle.New(log, bundleOpts...),
		publish.New(host.NewUploader(tc), rc.Bus, log),
		engineOpts...,
	), nil
}

// gateRules derives the default accept policy from the plan itself: every
// node must report exit_status 0 and every declared output must be present.
func gateRules(rc *run.Context) []gate.Rule {
	var rules []gate.Rule
	for _, name := range rc.NodeNames() {
		spec := rc.Nodes[name]
		rules = append(rules, gate.ExitStatusZero(spec.Slot))
		for _, output := range spec.Outputs {
			rules = append(rules, gate.OutputContains(spec.Slot, output, ""))
		}
	}
	return rules
}

func resolveHostRunID(flagValue, planValue int64) (int64, error) {
	if flagValue != 0 {
		return flagValue, nil
	}
	if env := os.Getenv("CONVOY_HOST_RUN_ID"); env != "" {
		id, err := strconv.ParseInt(env, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("CONVOY_HOST_RUN_ID: %w", err)
		}
		return id, nil
	}
	if planValue != 0 {
		return planValue, nil
	}
	return 0, fmt.Errorf("host run id not set (flag, CONVOY_HOST_RUN_ID, or plan)")
}

func shutdown(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = fn(ctx)
}
