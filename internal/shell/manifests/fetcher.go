// Package manifests fetches the stack definitions and loads individual
// manifests from the fetched tree.
package manifests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/artpar/swarmup/internal/shell/command"
	"github.com/artpar/swarmup/internal/shell/wait"
)

// ErrInvalidSource is returned for a source without a URL or version.
var ErrInvalidSource = errors.New("invalid manifest source")

// Source identifies a versioned tree of manifests.
type Source struct {
	URL     string
	Version string // branch or tag
}

// Validate checks that the source is usable.
func (s Source) Validate() error {
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidSource)
	}
	if strings.TrimSpace(s.Version) == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidSource)
	}
	return nil
}

// Fetcher retrieves a manifest tree into a local directory.
type Fetcher struct {
	runner  command.Runner
	retrier *wait.Retrier
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(runner command.Runner, retrier *wait.Retrier, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		runner:  runner,
		retrier: retrier,
		logger:  logger.With("component", "fetcher"),
	}
}

// CloneArgs returns the git arguments for a shallow single-branch clone.
func CloneArgs(src Source, dir string) []string {
	return []string{"clone", "--depth", "1", "--branch", src.Version, "--single-branch", src.URL, dir}
}

// Fetch replaces dir with a fresh shallow clone of src. Each attempt starts
// from an empty directory. It returns the number of attempts made; an
// exhausted budget is returned as a wait.ExhaustedError.
func (f *Fetcher) Fetch(ctx context.Context, src Source, dir string) (int, error) {
	if err := src.Validate(); err != nil {
		return 0, err
	}

	f.logger.Info("fetching stack definitions", "url", src.URL, "version", src.Version, "dir", dir)

	attempts, err := f.retrier.Do(ctx, "fetch stack definitions", func(ctx context.Context) error {
		if err := os.RemoveAll(dir); err != nil {
			return wait.Permanent(fmt.Errorf("clear %s: %w", dir, err))
		}
		_, err := f.runner.Run(ctx, command.Cmd{
			Name: "git",
			Args: CloneArgs(src, dir),
			Env:  []string{"GIT_TERMINAL_PROMPT=0"},
		})
		return err
	})
	if err != nil {
		return attempts, err
	}

	f.logger.Info("stack definitions fetched", "attempts", attempts)
	return attempts, nil
}
