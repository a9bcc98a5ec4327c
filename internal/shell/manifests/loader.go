package manifests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/artpar/swarmup/internal/core/compose"
)

// Loader reads manifests from a fetched tree.
type Loader struct {
	root string
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{root: dir}
}

// Path returns the absolute location of a manifest in the tree.
func (l *Loader) Path(manifest string) string {
	return filepath.Join(l.root, filepath.FromSlash(manifest))
}

// Load reads the manifest and parses it with env as substitution values.
func (l *Loader) Load(ctx context.Context, manifest string, env map[string]string) (*compose.Manifest, error) {
	content, err := os.ReadFile(l.Path(manifest))
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", manifest, err)
	}
	return compose.ParseManifest(ctx, manifest, content, env)
}
