// Package daemon runs the background processing service: it owns the worker
// pool lifecycle, enforces single-instance execution through a lock file,
// and serves the HTTP API the CLI talks to.
package daemon
