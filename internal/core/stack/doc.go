// Package stack provides pure functions and values describing the provisioned topology.
//
// This package contains the functional core of the sequencer: the fixed, ordered
// list of stack definitions, the provisioning targets they need, the stage and
// step result values the sequencer branches on, and the operator-facing summary.
// All functions are pure (no I/O, no side effects).
//
// # Functions
//
//   - Topology: the ordered stack definitions (Topology, Networks, Volumes, Databases)
//   - Ordering: check that every predecessor precedes its dependent (ValidateOrder)
//   - Naming: container name patterns for swarm tasks (ContainerPattern)
//   - Outcomes: classify step errors and aggregate them per stage (Classify, Aggregate)
//   - Summary: service URLs derived from the domain (ServiceURLs)
//
// # Usage
//
// The imperative shell (internal/engine) walks the topology and executes each
// stage, turning the results of its side effects into StepResult values.
//
//	defs := stack.Topology()
//	if err := stack.ValidateOrder(defs); err != nil { ... }
//	outcome := stack.Aggregate(steps)
package stack
