package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/moa/internal/ir"
)

// marshalNames converts a name list to canonical JSON TEXT for storage.
// A nil list is stored as [].
func marshalNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := ir.MarshalCanonical(names)
	if err != nil {
		return "", fmt.Errorf("marshal names: %w", err)
	}
	return string(data), nil
}

// marshalLimits converts an option's limits to canonical JSON TEXT.
// Keys are sorted, so equal maps always produce equal text.
func marshalLimits(limits map[string]float64) (string, error) {
	if limits == nil {
		limits = map[string]float64{}
	}
	data, err := ir.MarshalCanonical(limits)
	if err != nil {
		return "", fmt.Errorf("marshal limits: %w", err)
	}
	return string(data), nil
}

// unmarshalNames parses canonical JSON TEXT to a name list.
func unmarshalNames(data string) ([]string, error) {
	names := []string{}
	if data == "" || data == "[]" {
		return names, nil
	}
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal names: %w", err)
	}
	return names, nil
}

// unmarshalLimits parses canonical JSON TEXT to a limits map.
// An empty object yields nil, matching a compiled option without limits.
func unmarshalLimits(data string) (map[string]float64, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var limits map[string]float64
	if err := json.Unmarshal([]byte(data), &limits); err != nil {
		return nil, fmt.Errorf("unmarshal limits: %w", err)
	}
	return limits, nil
}
