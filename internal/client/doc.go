// Package client is the HTTP client the CLI uses to talk to a running
// daemon. It mirrors the daemon's endpoints one method per route and decodes
// the JSON error envelope into plain errors.
package client
