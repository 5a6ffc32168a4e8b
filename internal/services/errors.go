package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures of an external process (non-zero exit,
	// unexpected output, missing binary).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks caller-supplied parameters that cannot be used.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable runtime configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks missing inputs, profiles, or catalog entries.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
