package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/artpar/swarmup/internal/shell/store"
)

// journalReader is the read side of the run journal.
type journalReader interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	GetRun(ctx context.Context, id string) (*store.Run, error)
	ListStages(ctx context.Context, runID string) ([]store.StageRecord, error)
}

func printRuns(ctx context.Context, out io.Writer, journal journalReader, limit int) error {
	runs, err := journal.ListRuns(ctx, limit)
	if err != nil {
		return &AppError{Op: "ListRuns", Err: err, ExitCode: ExitJournalError}
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "RUN\tDOMAIN\tVERSION\tSTARTED\tDURATION\tOUTCOME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Domain, r.ManifestVersion,
			r.StartedAt.Format(time.RFC3339), duration(r), outcome(r))
	}
	return nil
}

func printStages(ctx context.Context, out io.Writer, journal journalReader, runID string) error {
	run, err := journal.GetRun(ctx, runID)
	if err != nil {
		return &AppError{Op: "GetRun", Err: err, ExitCode: ExitJournalError}
	}
	stages, err := journal.ListStages(ctx, runID)
	if err != nil {
		return &AppError{Op: "ListStages", Err: err, ExitCode: ExitJournalError}
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "run %s (%s) %s\n", run.ID, run.Domain, outcome(*run))
	if run.Error != "" {
		fmt.Fprintf(w, "error: %s\n", run.Error)
	}
	for _, st := range stages {
		fmt.Fprintf(w, "%s\t%s\t%s\n", st.Stage, st.Outcome, st.Error)
		for _, step := range st.Steps {
			fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", step.Name, step.Outcome, step.Attempts, step.Message)
		}
	}
	return nil
}

func outcome(r store.Run) string {
	if !r.Finished() {
		return "running"
	}
	return string(r.Outcome)
}

func duration(r store.Run) string {
	if !r.Finished() {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
