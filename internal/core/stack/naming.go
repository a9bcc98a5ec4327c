package stack

import "fmt"

// =============================================================================
// Resource Naming Functions
// =============================================================================

// ServiceName returns the swarm service name of a service in a stack.
// Pattern: {stack}_{service}
//
// Example:
//
//	ServiceName("postgres", "postgres") // returns "postgres_postgres"
func ServiceName(stackName, service string) string {
	return fmt.Sprintf("%s_%s", stackName, service)
}

// ContainerPattern returns the name filter matching the task containers of a
// swarm service. Task containers are named {stack}_{service}.{slot}.{taskID},
// so the service name prefixed with "^" and suffixed with "\." selects exactly
// that service and not others sharing its prefix.
//
// Example:
//
//	ContainerPattern("chatwoot", "chatwoot_app") // returns `^chatwoot_chatwoot_app\.`
func ContainerPattern(stackName, service string) string {
	return fmt.Sprintf(`^%s\.`, ServiceName(stackName, service))
}

// Container patterns used for post-deploy steps.
var (
	DatabaseContainer  = ContainerPattern(StackDatabase, "postgres")
	StorageContainer   = ContainerPattern(StackStorage, "minio")
	MigrationContainer = ContainerPattern(StackSupport, "chatwoot_app")
)
