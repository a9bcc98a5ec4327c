package stack

import "time"

// =============================================================================
// Topology
// =============================================================================

// Stack names.
const (
	StackProxy     = "traefik"
	StackUI        = "portainer"
	StackDatabase  = "postgres"
	StackCache     = "redis"
	StackBroker    = "rabbitmq"
	StackStorage   = "minio"
	StackMessaging = "evolution"
	StackSupport   = "chatwoot"
	StackWorkflow  = "n8n"
)

// Settle delays after stacks that are not actively probed.
const (
	SettleShort = 5 * time.Second
	SettleLong  = 8 * time.Second
)

// Overlay networks shared by all stacks.
const (
	NetworkPublic   = "traefik_public"
	NetworkInternal = "app_network"
)

// StorageProbe is the object-storage health endpoint behind the proxy.
var StorageProbe = Probe{
	Subdomain:      "s3",
	Path:           "/minio/health/live",
	ExpectedStatus: 200,
}

// Topology returns the stack definitions in deployment order.
//
// The order is fixed: the proxy comes first, the database precedes the
// application services that use it, and object storage precedes the
// services that need credentials generated for it.
func Topology() []Definition {
	probe := StorageProbe
	return []Definition{
		{
			Name:     StackProxy,
			Manifest: "traefik/traefik.yaml",
			Settle:   SettleShort,
		},
		{
			Name:      StackUI,
			Manifest:  "portainer/portainer.yaml",
			DependsOn: []string{StackProxy},
			Settle:    SettleShort,
		},
		{
			Name:      StackDatabase,
			Manifest:  "postgres/postgres.yaml",
			DependsOn: []string{StackProxy},
			Settle:    SettleLong,
			Actions:   []ActionKind{ActionCreateDatabases},
		},
		{
			Name:      StackCache,
			Manifest:  "redis/redis.yaml",
			DependsOn: []string{StackProxy},
			Settle:    SettleShort,
		},
		{
			Name:      StackBroker,
			Manifest:  "rabbitmq/rabbitmq.yaml",
			DependsOn: []string{StackProxy},
			Settle:    SettleLong,
		},
		{
			Name:      StackStorage,
			Manifest:  "minio/minio.yaml",
			DependsOn: []string{StackProxy},
			Probe:     &probe,
			Actions:   []ActionKind{ActionPersistStorageCredentials, ActionConfigureStorage},
		},
		{
			Name:      StackMessaging,
			Manifest:  "evolution/evolution.yaml",
			DependsOn: []string{StackProxy, StackDatabase, StackCache, StackBroker, StackStorage},
		},
		{
			Name:      StackSupport,
			Manifest:  "chatwoot/chatwoot.yaml",
			DependsOn: []string{StackProxy, StackDatabase, StackCache, StackStorage},
			Actions:   []ActionKind{ActionMigrate},
		},
		{
			Name:      StackWorkflow,
			Manifest:  "n8n/n8n.yaml",
			DependsOn: []string{StackProxy, StackDatabase, StackCache},
		},
	}
}

// Networks returns the overlay networks created before any stack is deployed.
func Networks() []string {
	return []string{NetworkPublic, NetworkInternal}
}

// Volumes returns the named volumes created before any stack is deployed.
func Volumes() []string {
	return []string{
		"traefik_certificates",
		"portainer_data",
		"postgres_data",
		"redis_data",
		"rabbitmq_data",
		"minio_data",
		"evolution_instances",
		"chatwoot_storage",
		"n8n_data",
	}
}

// Databases returns the logical databases the application stacks expect.
func Databases() []string {
	return []string{StackSupport, StackMessaging, StackWorkflow}
}

// ProxyCertStore returns the ACME certificate store of the proxy.
func ProxyCertStore() CertStore {
	return CertStore{
		Volume: "traefik_certificates",
		File:   "acme.json",
		Mode:   0o600,
	}
}

// MigrationCommand is run once in the support application container after deploy.
func MigrationCommand() []string {
	return []string{"bundle", "exec", "rails", "db:chatwoot_prepare"}
}
