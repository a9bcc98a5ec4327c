// Package wait implements the bounded waiting primitives of a deployment run:
// retrying an operation, locating a task container and probing an HTTPS
// readiness endpoint. Each primitive has a finite attempt budget and a fixed
// interval, and none of them caches what it discovers.
package wait
