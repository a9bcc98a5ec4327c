package wait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/swarmup/internal/shell/docker"
)

// ErrNotFound is returned when no running container matched within the window.
var ErrNotFound = errors.New("container not found")

// ContainerLister lists containers. docker.Runtime satisfies it.
type ContainerLister interface {
	ListContainers(ctx context.Context, opts docker.ListOptions) ([]docker.ContainerInfo, error)
}

// Handle identifies a running container for the duration of one step.
type Handle struct {
	ID   string
	Name string
}

// LocatorConfig configures a Locator.
type LocatorConfig struct {
	// Attempts is the number of listings made before giving up.
	// Default: 40.
	Attempts int

	// Interval is the delay after each listing that found nothing.
	// Default: 3 seconds.
	Interval time.Duration
}

// DefaultLocatorConfig returns the default locator configuration.
func DefaultLocatorConfig() LocatorConfig {
	return LocatorConfig{
		Attempts: 40,
		Interval: 3 * time.Second,
	}
}

// Locator polls the runtime for a running container matching a name pattern.
type Locator struct {
	lister ContainerLister
	config LocatorConfig
	sleep  SleepFunc
	logger *slog.Logger
}

// NewLocator creates a Locator. Zero fields take their defaults.
func NewLocator(lister ContainerLister, config LocatorConfig, logger *slog.Logger) *Locator {
	defaults := DefaultLocatorConfig()
	if config.Attempts <= 0 {
		config.Attempts = defaults.Attempts
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		lister: lister,
		config: config,
		sleep:  Sleep,
		logger: logger.With("component", "locator"),
	}
}

// Locate returns the first running container whose name matches pattern.
//
// Listing errors and empty listings both count as "not yet". Every failed
// listing is followed by an interval, so ErrNotFound is only returned once
// the whole window of Attempts x Interval has elapsed.
func (l *Locator) Locate(ctx context.Context, pattern string) (Handle, error) {
	opts := docker.ListOptions{
		Filters: map[string]string{
			"name":   pattern,
			"status": "running",
		},
	}

	for attempt := 1; attempt <= l.config.Attempts; attempt++ {
		containers, err := l.lister.ListContainers(ctx, opts)
		switch {
		case err != nil:
			l.logger.Debug("container listing failed", "pattern", pattern, "attempt", attempt, "error", err)
		case len(containers) > 0:
			c := containers[0]
			l.logger.Debug("container located", "pattern", pattern, "container", c.Name, "attempt", attempt)
			return Handle{ID: c.ID, Name: c.Name}, nil
		}

		if err := l.sleep(ctx, l.config.Interval); err != nil {
			return Handle{}, err
		}
	}

	return Handle{}, fmt.Errorf("%w: %s after %d attempts", ErrNotFound, pattern, l.config.Attempts)
}
