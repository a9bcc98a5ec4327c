package wait

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artpar/swarmup/internal/shell/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Lister
// =============================================================================

type mockLister struct {
	mu      sync.Mutex
	calls   int
	opts    []docker.ListOptions
	foundAt int // 1-based listing that returns a container, 0 for never
	failAll bool
}

func (m *mockLister) ListContainers(_ context.Context, opts docker.ListOptions) ([]docker.ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.opts = append(m.opts, opts)
	if m.failAll {
		return nil, errors.New("daemon busy")
	}
	if m.foundAt > 0 && m.calls >= m.foundAt {
		return []docker.ContainerInfo{{ID: "c1", Name: "postgres_postgres.1.abc", State: "running"}}, nil
	}
	return nil, nil
}

type sleepRecorder struct {
	total time.Duration
	count int
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.total += d
	s.count++
	return ctx.Err()
}

func newTestLocator(lister ContainerLister, rec *sleepRecorder) *Locator {
	l := NewLocator(lister, LocatorConfig{}, nil)
	l.sleep = rec.sleep
	return l
}

// =============================================================================
// Locator Tests
// =============================================================================

func TestDefaultLocatorConfig(t *testing.T) {
	config := DefaultLocatorConfig()

	assert.Equal(t, 40, config.Attempts)
	assert.Equal(t, 3*time.Second, config.Interval)
}

func TestLocate_FoundImmediately(t *testing.T) {
	lister := &mockLister{foundAt: 1}
	rec := &sleepRecorder{}

	h, err := newTestLocator(lister, rec).Locate(context.Background(), `^postgres_postgres\.`)

	require.NoError(t, err)
	assert.Equal(t, "c1", h.ID)
	assert.Equal(t, 1, lister.calls)
	assert.Zero(t, rec.count)
	assert.Equal(t, `^postgres_postgres\.`, lister.opts[0].Filters["name"])
	assert.Equal(t, "running", lister.opts[0].Filters["status"])
}

func TestLocate_FoundAfterPolling(t *testing.T) {
	lister := &mockLister{foundAt: 7}
	rec := &sleepRecorder{}

	h, err := newTestLocator(lister, rec).Locate(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "postgres_postgres.1.abc", h.Name)
	assert.Equal(t, 7, lister.calls)
	assert.Equal(t, 6, rec.count)
}

func TestLocate_NeverAppears_FullWindowElapses(t *testing.T) {
	lister := &mockLister{}
	rec := &sleepRecorder{}

	_, err := newTestLocator(lister, rec).Locate(context.Background(), "x")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 40, lister.calls)
	assert.Equal(t, 40, rec.count)
	assert.Equal(t, 120*time.Second, rec.total)
}

func TestLocate_ListErrorsAreNotYet(t *testing.T) {
	lister := &mockLister{failAll: true}
	rec := &sleepRecorder{}

	_, err := newTestLocator(lister, rec).Locate(context.Background(), "x")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 40, lister.calls)
}

func TestLocate_NoCaching(t *testing.T) {
	lister := &mockLister{foundAt: 1}
	rec := &sleepRecorder{}
	l := newTestLocator(lister, rec)

	_, err := l.Locate(context.Background(), "x")
	require.NoError(t, err)
	_, err = l.Locate(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, 2, lister.calls)
}

func TestLocate_ContextCancelled(t *testing.T) {
	lister := &mockLister{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLocator(lister, &sleepRecorder{}).Locate(ctx, "x")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, lister.calls)
}
