// Package services defines the shared error taxonomy for external tool
// integrations and the helpers used to classify failures.
//
// Subpackages wrap individual tools (ffmpeg) behind the operation handler
// contract consumed by the worker pool.
package services
