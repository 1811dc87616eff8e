package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"authwatch/config"
	"authwatch/internal/logger"
	"authwatch/internal/pipeline"
)

var (
	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Parse auth logs, detect anomalies and write the results",
		RunE:  runAnalyze,
	}

	analyzeInputs    []string
	analyzeYear      int
	analyzeOutputDir string
	analyzeRules     string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVar(&analyzeInputs, "input", nil, "Log files or directories of *.log files (overrides input.paths)")
	analyzeCmd.Flags().IntVar(&analyzeYear, "year", 0, "Year applied to syslog timestamps (default current year)")
	analyzeCmd.Flags().StringVar(&analyzeOutputDir, "output-dir", "", "Directory for CSV and JSONL output (overrides output.dir)")
	analyzeCmd.Flags().StringVar(&analyzeRules, "rules", "", "Sigma rule file or directory; enables rule tagging")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, source, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalyzeFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}
	logger.Infof("AuthWatch analyze starting")
	logger.Infof("Config loaded from: %s", source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	pipe := pipeline.NewBatchPipeline(
		components.source,
		components.transformer,
		components.aggregator,
		components.sinks,
		components.metrics,
		pipeline.Config{
			SinkAttempts: cfg.AuthWatch.Pipeline.SinkAttempts,
			SinkBackoff:  cfg.AuthWatch.Pipeline.SinkBackoff,
		},
	)
	defer func() {
		if err := pipe.Close(); err != nil {
			logger.Errorf("Error closing pipeline: %v", err)
		}
	}()

	res, runErr := pipe.Run(ctx)
	exportMetrics(cfg, components)
	if runErr != nil {
		return runErr
	}

	printReport(cmd.OutOrStdout(), res)
	return nil
}

func loadConfig() (*config.Config, string, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, "", err
	}
	path, err := config.Discover(configPath)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return config.Default(), "defaults", nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, path, nil
}

func applyAnalyzeFlags(cfg *config.Config) {
	aw := &cfg.AuthWatch
	if len(analyzeInputs) > 0 {
		aw.Input.Mode = "file"
		aw.Input.Paths = analyzeInputs
	}
	if analyzeYear > 0 {
		aw.Parser.Year = analyzeYear
	}
	if analyzeOutputDir != "" {
		aw.Output.Dir = analyzeOutputDir
		aw.Output.JSONL.Path = filepath.Join(analyzeOutputDir, "anomalies.jsonl")
	}
	if analyzeRules != "" {
		aw.Rules.Enabled = true
		aw.Rules.Path = analyzeRules
	}
}

func initLogger(cfg *config.Config) error {
	l := cfg.AuthWatch.Logging
	if err := logger.Init(logger.Options{
		Enabled: l.Enabled,
		Level:   l.Level,
		File:    l.File,
		Console: l.Console,
		Format:  l.Format,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func exportMetrics(cfg *config.Config, c *components) {
	m := cfg.AuthWatch.Metrics
	if c.metrics == nil {
		return
	}
	if m.Textfile != "" {
		if err := c.metrics.WriteTextfile(m.Textfile); err != nil {
			logger.Errorf("%v", err)
		}
	}
	if m.PushURL != "" {
		if err := c.metrics.Push(m.PushURL, m.Job); err != nil {
			logger.Errorf("%v", err)
		}
	}
}

func printReport(w io.Writer, res *pipeline.Result) {
	if res == nil || res.Report == nil {
		return
	}
	s := res.Report.Summary
	fmt.Fprintf(w, "run %s\n", res.Report.RunID)
	fmt.Fprintf(w, "records: %d parsed, %d rejected (%.1f%% success)\n",
		res.Transform.Parsed, res.Transform.Failed, res.Transform.SuccessRate())
	fmt.Fprintf(w, "anomalies: %d total, %d critical\n", s.TotalAnomalies, s.CriticalThreats)
	fmt.Fprintf(w, "  brute force:          %d\n", s.BruteForceCount)
	fmt.Fprintf(w, "  vulnerable accounts:  %d\n", s.VulnerableAccountCount)
	fmt.Fprintf(w, "  geographic:           %d\n", s.GeographicCount)
	fmt.Fprintf(w, "  possible breaches:    %d\n", s.BreachCount)
	if n := len(res.Report.RuleMatches); n > 0 {
		fmt.Fprintf(w, "rule matches: %d\n", n)
	}
	for i, o := range res.Report.Offenders {
		if i == 5 {
			break
		}
		fmt.Fprintf(w, "offender %s score=%d severity=%s\n", o.SourceIP, o.Score, o.Severity)
	}
	fmt.Fprintf(w, "duration: %s (%.0f records/s)\n", res.Timings.Total, res.ProcessingRate)
	if res.SinkErrors != nil {
		fmt.Fprintf(w, "warning: some outputs failed: %v\n", res.SinkErrors)
	}
}
