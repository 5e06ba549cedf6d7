package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwarden/cwarden/engine"
	"github.com/cwarden/cwarden/parser"
	"github.com/cwarden/cwarden/rules"
	"github.com/cwarden/cwarden/scan"
	"github.com/cwarden/cwarden/violation"
)

func newWatchCmd() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "watch [files or globs]",
		Short: "Rescan C source files whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.rulesPath, "rules", "r", "", "Path to the YAML rule set")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Worker pool size (0 = one per CPU)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per-file scan timeout")
	return cmd
}

func runWatch(ctx context.Context, flags scanFlags, args []string) error {
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

	runner := scan.NewRunner(
		engine.New(set, slog.Default()),
		parser.NewParser(),
		scan.WithWorkers(cfg.Scan.Workers),
		scan.WithTimeout(cfg.Scan.Timeout),
		scan.WithLogger(slog.Default()),
	)

	fmt.Printf("Watching %d file(s); press Ctrl-C to stop.\n", len(files))
	watcher := scan.NewWatcher(runner, slog.Default())
	err = watcher.Watch(ctx, files, func(res violation.ScanResult) {
		fmt.Printf("\nFile: %s\n", res.File)
		if res.Failed {
			fmt.Printf("  not analyzed: %s\n", res.Diagnostic)
			return
		}
		if len(res.Violations) == 0 {
			fmt.Println("  no violations")
			return
		}
		for _, v := range res.Violations {
			fmt.Printf("  [%s] line %d: %s\n", v.RuleID, v.Line, v.Message)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
