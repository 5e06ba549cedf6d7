package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwarden/cwarden/config"
	"github.com/cwarden/cwarden/engine"
	"github.com/cwarden/cwarden/parser"
	"github.com/cwarden/cwarden/report"
	"github.com/cwarden/cwarden/rules"
	"github.com/cwarden/cwarden/scan"
)

type scanFlags struct {
	rulesPath string
	output    string
	format    string
	workers   int
	timeout   time.Duration
	quiet     bool
}

func newScanCmd() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan [files or globs]",
		Short: "Scan C source files against a rule set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), flags, args)
		},
	}

	addScanFlags(cmd, &flags)
	return cmd
}

func addScanFlags(cmd *cobra.Command, flags *scanFlags) {
	cmd.Flags().StringVarP(&flags.rulesPath, "rules", "r", "", "Path to the YAML rule set")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Report output path (default: timestamped file under the report dir)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Report format: json, markdown, csv, html")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Worker pool size (0 = one per CPU)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per-file scan timeout")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress per-violation output; summary only")
}

// resolveConfig layers flag values over the loaded configuration.
func resolveConfig(flags scanFlags) (*config.Config, error) {
	cfg, err := config.NewLoader(slog.Default()).Load()
	if err != nil {
		return nil, err
	}
	cfg.Merge(&config.Config{
		Rules:  config.RulesConfig{Path: flags.rulesPath},
		Scan:   config.ScanConfig{Workers: flags.workers, Timeout: flags.timeout, Quiet: flags.quiet},
		Output: config.OutputConfig{Format: flags.format},
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runScan(ctx context.Context, flags scanFlags, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := resolveConfig(flags)
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	set, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	files, err := scan.ExpandInputs(args)
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}
	if len(files) == 0 {
		return &exitError{code: exitConfig, err: fmt.Errorf("no input files")}
	}

	runner := scan.NewRunner(
		engine.New(set, slog.Default()),
		parser.NewParser(),
		scan.WithWorkers(cfg.Scan.Workers),
		scan.WithTimeout(cfg.Scan.Timeout),
		scan.WithLogger(slog.Default()),
	)

	results, err := runner.Run(ctx, files)
	if err != nil && len(results) == 0 {
		return &exitError{code: exitConfig, err: err}
	}

	rep := report.New(results)
	printConsole(rep, cfg.Scan.Quiet)

	if err := writeReport(rep, cfg, flags.output, files); err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	if rep.Summary.Actionable() > 0 {
		return &exitError{code: exitViolations}
	}
	return nil
}

// printConsole mirrors the report to stdout: per-file violations unless
// quiet, then the run summary.
func printConsole(rep *report.Report, quiet bool) {
	if !quiet {
		for _, res := range rep.Results {
			fmt.Printf("\nFile: %s\n", res.File)
			if res.Failed {
				fmt.Printf("  not analyzed: %s\n", res.Diagnostic)
				continue
			}
			if len(res.Violations) == 0 {
				fmt.Println("  no violations")
				continue
			}
			for _, v := range res.Violations {
				fmt.Printf("  [%s] line %d: %s\n", v.RuleID, v.Line, v.Message)
			}
			for _, w := range res.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
		}
	}

	s := rep.Summary
	fmt.Println("\n==================== Summary ====================")
	fmt.Printf("Files analyzed    : %d\n", s.Files)
	fmt.Printf("Files failed      : %d\n", s.FailedFiles)
	fmt.Printf("Total violations  : %d\n", s.Total)
	for _, sev := range []rules.Severity{rules.SeverityCritical, rules.SeverityMajor, rules.SeverityMinor} {
		if count := s.BySeverity[sev]; count > 0 {
			fmt.Printf("  %-8s        : %d\n", sev, count)
		}
	}
	fmt.Println("=================================================")
}

// writeReport renders the report to the explicit output path, or to a
// timestamped file under the configured report directory.
func writeReport(rep *report.Report, cfg *config.Config, output string, files []string) error {
	renderer, err := report.DefaultRegistry.Get(cfg.Output.Format)
	if err != nil {
		return err
	}

	path := output
	if path == "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
		path = filepath.Join(cfg.Output.Dir,
			fmt.Sprintf("cwarden_report_%s_%s%s", fileTag(files), time.Now().Format("20060102_150405"), renderer.Extension()))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := renderer.Render(f, rep); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}

// fileTag derives a short report-name component from the scanned file
// basenames.
func fileTag(files []string) string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		names = append(names, strings.TrimSuffix(base, filepath.Ext(base)))
		if len(names) == 3 {
			break
		}
	}
	tag := strings.Join(names, "_And_")
	if len(files) > 3 {
		tag += "_AndMore"
	}
	return tag
}
