package manifests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/swarmup/internal/core/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Loader Tests
// =============================================================================

func TestLoader_Load(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "redis/redis.yaml", `
services:
  redis:
    image: redis:7
    command: redis-server --requirepass ${MASTER_PASSWORD}
`)

	m, err := NewLoader(root).Load(context.Background(), "redis/redis.yaml", map[string]string{"MASTER_PASSWORD": "x"})

	require.NoError(t, err)
	assert.Equal(t, []string{"redis"}, m.Services)
	assert.Equal(t, []string{"MASTER_PASSWORD"}, m.Variables)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load(context.Background(), "n8n/n8n.yaml", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_ParseFailure(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "bad/bad.yaml", "services: [")

	_, err := NewLoader(root).Load(context.Background(), "bad/bad.yaml", nil)

	assert.ErrorIs(t, err, compose.ErrInvalidYAML)
}

func TestLoader_Path(t *testing.T) {
	l := NewLoader("/srv/stacks")
	assert.Equal(t, filepath.Join("/srv/stacks", "minio", "minio.yaml"), l.Path("minio/minio.yaml"))
}
