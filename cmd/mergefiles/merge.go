package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mergefiles/mergefiles/pkg/config"
	"github.com/mergefiles/mergefiles/pkg/logging"
	"github.com/mergefiles/mergefiles/pkg/merge"
	"github.com/mergefiles/mergefiles/pkg/types"
)

func newMergeCmd() *cobra.Command {
	var (
		dest            string
		policyName      string
		concurrency     int
		preserve        bool
		followSymlinks  bool
		caseInsensitive bool
		dryRun          bool
		showFailures    int
	)

	cmd := &cobra.Command{
		Use:   "merge SOURCE... --dest DIR",
		Short: "Merge source directories into a destination",
		Long: `Merge one or more source directories into a destination directory.

Sources are merged in order. Under always-overwrite later sources win
conflicting paths; under never-overwrite earlier sources (and any
pre-existing destination content) win. newer-wins compares modification
times and retains the destination on ties.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Flags override config only when set on the command line.
			if !cmd.Flags().Changed("policy") {
				policyName = cfg.Merge.Policy
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Merge.Concurrency
			}
			if !cmd.Flags().Changed("preserve") {
				preserve = cfg.Merge.PreserveMetadata
			}
			if !cmd.Flags().Changed("follow-symlinks") {
				followSymlinks = cfg.Merge.FollowSymlinks
			}
			if !cmd.Flags().Changed("case-insensitive") {
				caseInsensitive = cfg.Merge.CaseInsensitive
			}

			policy, err := types.ParsePolicy(policyName)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := merge.Options{
				Policy:           policy,
				Concurrency:      concurrency,
				PreserveMetadata: preserve,
				FollowSymlinks:   followSymlinks,
				CaseInsensitive:  caseInsensitive,
				DryRun:           dryRun,
				Logger:           logging.GetLogger("merge"),
			}

			var bar *pterm.ProgressbarPrinter
			if isatty.IsTerminal(os.Stdout.Fd()) {
				opts.OnProgress = func(done, total int) {
					// Each pass starts its own bar.
					if done == 1 {
						if bar != nil {
							_, _ = bar.Stop()
						}
						bar, _ = pterm.DefaultProgressbar.WithTotal(total).WithTitle("Merging").Start()
					}
					if bar != nil {
						bar.Increment()
					}
				}
			}

			report, err := merge.Merge(ctx, args, dest, opts)
			if bar != nil {
				_, _ = bar.Stop()
			}
			if err != nil {
				return err
			}

			printReport(report, showFailures)

			if report.Failed > 0 || report.Incomplete {
				return fmt.Errorf("merge finished with %d failure(s)", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination directory (created if absent)")
	cmd.Flags().StringVar(&policyName, "policy", string(types.NeverOverwrite), "Conflict policy: always-overwrite, never-overwrite or newer-wins")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Number of concurrent copy workers")
	cmd.Flags().BoolVar(&preserve, "preserve", false, "Preserve permissions and modification times")
	cmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Follow symlinks while enumerating sources")
	cmd.Flags().BoolVar(&caseInsensitive, "case-insensitive", false, "Match paths case-insensitively")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and report without copying anything")
	cmd.Flags().IntVar(&showFailures, "show-failures", 10, "Maximum number of failed paths to print")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}

func printReport(report *types.Report, showFailures int) {
	line := fmt.Sprintf("%d copied, %d skipped, %d failed", report.Succeeded, report.Skipped, report.Failed)
	if report.DirsCreated > 0 {
		line += fmt.Sprintf(", %d directories created", report.DirsCreated)
	}
	if report.Cancelled > 0 {
		line += fmt.Sprintf(", %d cancelled", report.Cancelled)
	}

	switch {
	case report.Incomplete:
		pterm.Warning.Println("Merge incomplete: " + line)
	case report.Failed > 0:
		pterm.Error.Println(line)
	default:
		pterm.Success.Println(line)
	}

	for i, failure := range report.Failures {
		if i >= showFailures {
			pterm.Info.Printfln("... and %d more failures", len(report.Failures)-showFailures)
			break
		}
		pterm.Error.Printfln("  %s: %v", failure.Path, failure.Err)
	}
}
