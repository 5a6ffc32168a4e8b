// Package api defines the transport-level job representations shared by the
// HTTP server and the CLI client, plus the submission service that validates
// requests before they reach the worker pool.
//
// DTO conversion lives here so the queue package never learns about JSON and
// the daemon handlers stay thin.
package api
