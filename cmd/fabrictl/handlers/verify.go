package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr/funcr"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/storage"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/report"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/verify"
)

// stageRunner matches verify.Runner for testing.
type stageRunner interface {
	Run(ctx context.Context, reg *verify.Registry) []verify.Result
}

// reportUploader matches storage.Uploader for testing.
type reportUploader interface {
	Upload(ctx context.Context, runID, format string, data []byte) (string, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// buildRegistry assembles the verification stages.
	buildRegistry = verify.BuildRegistry

	// newRunner creates the stage runner.
	newRunner = func(opts verify.Options) stageRunner {
		return verify.NewRunner(opts)
	}

	// writeReportFile persists the report artifact.
	writeReportFile = report.WriteFile

	// newUploader creates the object-storage uploader.
	newUploader = func(cfg config.UploadConfig) (reportUploader, error) {
		return storage.NewUploader(cfg)
	}
)

// VerifyFlags carries command-line overrides for verification.
type VerifyFlags struct {
	ConfigPath    string
	GateThreshold int // negative means use the configured value
	Tags          []string
	SkipSlow      bool
	ReportPath    string
	Format        string
}

// Verify runs the verification pipeline against the declared topology.
//
// The workflow:
//  1. Loads configuration and resolves an authenticated session
//  2. Runs the ordered stage pipeline; expensive gated stages only run
//     once enough foundational stages have passed
//  3. Aggregates outcomes into a summary, renders it, and optionally
//     writes and uploads the report artifact
//
// Exit codes: 0 when no stage failed, 2 when no authentication strategy
// produced a working session, 1 otherwise.
func Verify(ctx context.Context, flags VerifyFlags) error {
	cfg, err := loadConfigFile(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	timeouts := loadTimeouts()

	resolver, cp, dp := buildPlatform(cfg, timeouts)
	if err := resolveSession(ctx, resolver); err != nil {
		return err
	}

	gateThreshold := cfg.Verify.GateThreshold
	if flags.GateThreshold >= 0 {
		gateThreshold = flags.GateThreshold
	}

	logger := funcr.New(func(prefix, args string) {
		log.Println(args)
	}, funcr.Options{})

	reg := buildRegistry(cp, dp, cfg.Topology, timeouts)
	runner := newRunner(verify.Options{
		Log:           logger,
		GateThreshold: gateThreshold,
		SkipSlow:      flags.SkipSlow,
		Tags:          flags.Tags,
	})

	results := runner.Run(ctx, reg)
	summary := report.Summarize(results)

	if err := report.Render(os.Stdout, summary, report.FormatTable); err != nil {
		return err
	}
	if err := publishReport(ctx, cfg, flags, summary); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return exitErr(ExitUnresolved, fmt.Errorf("%d of %d stages failed", summary.Failed, summary.Total))
	}
	return ctx.Err()
}

// publishReport writes the report artifact and, when configured,
// uploads it to object storage.
func publishReport(ctx context.Context, cfg *config.Config, flags VerifyFlags, summary *report.Summary) error {
	path := cfg.Report.Path
	if flags.ReportPath != "" {
		path = flags.ReportPath
	}
	format := cfg.Report.Format
	if flags.Format != "" {
		format = flags.Format
	}

	if path != "" {
		if err := writeReportFile(path, summary, format); err != nil {
			return err
		}
		log.Printf("Report written to %s", path)
	}

	if !cfg.Report.Upload.Enabled {
		return nil
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, summary, format); err != nil {
		return err
	}
	uploader, err := newUploader(cfg.Report.Upload)
	if err != nil {
		return fmt.Errorf("failed to initialize report upload: %w", err)
	}
	key, err := uploader.Upload(ctx, summary.RunID, format, buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}
	log.Printf("Report uploaded to %s/%s", cfg.Report.Upload.Bucket, key)
	return nil
}
