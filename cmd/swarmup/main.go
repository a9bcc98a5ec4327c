package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/artpar/swarmup/internal/engine"
	"github.com/spf13/cobra"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(os.Stdout)
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var appErr *AppError
		if errors.As(err, &appErr) {
			return appErr.ExitCode
		}
		return ExitConfigError
	}
	return ExitSuccess
}

// =============================================================================
// Commands
// =============================================================================

func newRootCommand(out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "swarmup",
		Short:         "Provision a fixed topology of stacks on a swarm host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	root.PersistentFlags().String("journal", "", "run journal database path (empty disables)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")

	root.AddCommand(newDeployCommand(&configPath, out))
	root.AddCommand(newHistoryCommand(&configPath, out))
	root.AddCommand(newVersionCommand(out))
	root.SetOut(out)
	return root
}

func newDeployCommand(configPath *string, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Bootstrap the host and deploy every stack in order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*configPath, cmd.Flags())
			if err != nil {
				return &AppError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
			}
			logger := SetupLogger(cfg)

			warnings, err := cfg.Validate()
			if err != nil {
				return &AppError{Op: "Validate", Err: err, ExitCode: ExitConfigError}
			}
			for _, w := range warnings {
				logger.Warn(w)
			}

			logger.Info("starting swarmup", "version", Version, "config", *configPath)
			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Deploy(cmd.Context())
			printReport(out, report)
			return err
		},
	}

	f := cmd.Flags()
	f.String("domain", "", "base domain of every service")
	f.String("admin-email", "", "administrator email address")
	f.String("master-password", "", "master credential shared by the admin interfaces")
	f.String("manifest-url", "", "git URL of the stack manifests")
	f.String("manifest-version", "", "branch or tag of the stack manifests")
	f.String("manifest-dir", "", "local checkout directory of the manifests")
	f.String("bucket", "", "object-storage bucket name")
	f.String("access-key", "", "object-storage access key (generated when empty)")
	f.String("secret-key", "", "object-storage secret key (generated when empty)")
	f.String("env-file", "", "substitution file path")
	f.Bool("verify-tls", false, "verify certificates when probing readiness")
	return cmd
}

func newHistoryCommand(configPath *string, out io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or the stages of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(*configPath, cmd.Flags())
			if err != nil {
				return &AppError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
			}
			journal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer journal.Close()

			ctx := cmd.Context()
			if len(args) == 1 {
				return printStages(ctx, out, journal, args[0])
			}
			return printRuns(ctx, out, journal, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	return cmd
}

func newVersionCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(out, "swarmup %s (built %s)\n", Version, BuildTime)
		},
	}
}

// =============================================================================
// Output
// =============================================================================

func printReport(out io.Writer, report *engine.Report) {
	if report == nil {
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "run %s: %s\n", report.RunID, report.Outcome)
	for _, s := range report.Warnings() {
		fmt.Fprintf(w, "  warning\t%s\t%s\n", s.Name, s.Message)
	}
	for _, c := range report.Credentials {
		fmt.Fprintf(w, "  credential\t%s\n", c)
	}
	if len(report.URLs) == 0 {
		return
	}
	fmt.Fprintln(w, "services:")
	for _, u := range report.URLs {
		fmt.Fprintf(w, "  %s\t%s\n", u.Name, u.URL)
	}
}
