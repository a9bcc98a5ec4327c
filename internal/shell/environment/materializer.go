// Package environment materializes the substitution file read by stack
// deployment and by operators.
package environment

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/artpar/swarmup/internal/core/envfile"
	"github.com/moby/sys/atomicwriter"
	"github.com/subosito/gotenv"
)

// FileMode is the permission of the substitution file. It holds credentials.
const FileMode os.FileMode = 0o600

// Materializer owns the substitution file of one run.
//
// The file is only ever replaced atomically, so a concurrent reader sees
// either the previous or the new content, never a partial write.
type Materializer struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	snapshot *envfile.Snapshot
}

// NewMaterializer creates a Materializer for the file at path.
func NewMaterializer(path string, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		path:     path,
		logger:   logger.With("component", "environment"),
		snapshot: &envfile.Snapshot{},
	}
}

// Path returns the location of the substitution file.
func (m *Materializer) Path() string {
	return m.path
}

// Previous returns the values left by the previous run. A missing file
// yields an empty map.
func (m *Materializer) Previous() (map[string]string, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.path, err)
	}

	env, err := gotenv.StrictParse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.path, err)
	}
	return map[string]string(env), nil
}

// WriteBase starts a new snapshot from entries and writes it.
func (m *Materializer) WriteBase(entries []envfile.Entry) error {
	s, err := envfile.New(entries...)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(s); err != nil {
		return err
	}
	m.snapshot = s
	m.logger.Info("substitution file written", "path", m.path, "keys", s.Len())
	return nil
}

// Append adds entries after the existing ones and replaces the file.
//
// Re-appending a key with its current value is a no-op; a different value
// for an existing key fails with envfile.ErrKeyExists and nothing is written.
func (m *Materializer) Append(entries ...envfile.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := envfile.New(m.snapshot.Entries()...)
	if err != nil {
		return err
	}

	added := 0
	for _, e := range entries {
		if v, ok := next.Get(e.Key); ok {
			if v == e.Value {
				continue
			}
			return fmt.Errorf("append %s: %w", e.Key, envfile.ErrKeyExists)
		}
		if err := next.Append(e.Key, e.Value); err != nil {
			return err
		}
		added++
	}
	if added == 0 {
		return nil
	}

	if err := m.write(next); err != nil {
		return err
	}
	m.snapshot = next
	m.logger.Info("substitution file extended", "path", m.path, "added", added, "keys", next.Len())
	return nil
}

// Environ returns the current entries in KEY=value form.
func (m *Materializer) Environ() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot.Environ()
}

// Values returns the current entries as a map.
func (m *Materializer) Values() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot.Map()
}

// Keys returns the current keys in file order.
func (m *Materializer) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot.Keys()
}

func (m *Materializer) write(s *envfile.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("create directory for %s: %w", m.path, err)
	}
	if err := atomicwriter.WriteFile(m.path, s.Render(), FileMode); err != nil {
		return fmt.Errorf("write %s: %w", m.path, err)
	}
	return nil
}
