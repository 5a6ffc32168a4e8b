package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseParams converts repeated key=value flags into operation parameters.
// Values are typed by inspection: integers, floats, and booleans convert,
// comma-separated values become string lists, everything else stays a
// string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		params[key] = typedValue(strings.TrimSpace(value))
	}
	return params, nil
}

func typedValue(value string) any {
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		list := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		return list
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return value
}
