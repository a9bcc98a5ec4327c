package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func position(t *testing.T, defs []Definition, name string) int {
	t.Helper()
	for i, d := range defs {
		if d.Name == name {
			return i
		}
	}
	require.Failf(t, "stack not found", "stack %s", name)
	return -1
}

// =============================================================================
// Topology Tests
// =============================================================================

func TestTopology_OrderIsValid(t *testing.T) {
	assert.NoError(t, ValidateOrder(Topology()))
}

func TestTopology_ProxyFirst(t *testing.T) {
	defs := Topology()
	require.NotEmpty(t, defs)
	assert.Equal(t, StackProxy, defs[0].Name)

	for _, d := range defs[1:] {
		assert.Contains(t, d.DependsOn, StackProxy, "%s should depend on the proxy", d.Name)
	}
}

func TestTopology_DependencyOrder(t *testing.T) {
	defs := Topology()

	db := position(t, defs, StackDatabase)
	storage := position(t, defs, StackStorage)

	for _, app := range []string{StackMessaging, StackSupport, StackWorkflow} {
		assert.Less(t, db, position(t, defs, app), "database before %s", app)
	}
	for _, app := range []string{StackMessaging, StackSupport} {
		assert.Less(t, storage, position(t, defs, app), "object storage before %s", app)
	}
}

func TestTopology_SettleOrProbe(t *testing.T) {
	settled := map[string]bool{
		StackProxy:    true,
		StackUI:       true,
		StackDatabase: true,
		StackCache:    true,
		StackBroker:   true,
	}

	for _, d := range Topology() {
		if settled[d.Name] {
			assert.GreaterOrEqual(t, d.Settle, SettleShort, d.Name)
			assert.LessOrEqual(t, d.Settle, SettleLong, d.Name)
			assert.Nil(t, d.Probe, d.Name)
		}
	}

	defs := Topology()
	storage := defs[position(t, defs, StackStorage)]
	require.NotNil(t, storage.Probe)
	assert.Zero(t, storage.Settle)
	assert.Equal(t, 200, storage.Probe.ExpectedStatus)
}

func TestTopology_StorageCredentialsBeforeConfiguration(t *testing.T) {
	defs := Topology()
	storage := defs[position(t, defs, StackStorage)]

	assert.Equal(t, []ActionKind{ActionPersistStorageCredentials, ActionConfigureStorage}, storage.Actions)
}

func TestTopology_ReturnsFreshCopy(t *testing.T) {
	a := Topology()
	a[0].Name = "changed"
	a[5].Probe.Path = "/changed"

	b := Topology()
	assert.Equal(t, StackProxy, b[0].Name)
	assert.Equal(t, "/minio/health/live", b[5].Probe.Path)
}

func TestActionKind_Policy(t *testing.T) {
	assert.Equal(t, PolicyStrict, ActionPersistStorageCredentials.Policy())
	assert.Equal(t, PolicyBestEffort, ActionCreateDatabases.Policy())
	assert.Equal(t, PolicyBestEffort, ActionConfigureStorage.Policy())
	assert.Equal(t, PolicyBestEffort, ActionMigrate.Policy())
}

func TestProbe_URL(t *testing.T) {
	assert.Equal(t, "https://s3.example.com/minio/health/live", StorageProbe.URL("example.com"))
}

func TestProvisioningTargets(t *testing.T) {
	assert.Equal(t, []string{"traefik_public", "app_network"}, Networks())
	assert.Contains(t, Volumes(), ProxyCertStore().Volume)
	assert.ElementsMatch(t, []string{"chatwoot", "evolution", "n8n"}, Databases())
	assert.Equal(t, uint32(0o600), ProxyCertStore().Mode)
}
