package mcpserver

import (
	"encoding/json"
	"fmt"
	"math"

	"datadesk/internal/domain"
)

// recordArg reads a record argument given either as a JSON object or as a
// string holding one. Field order follows the JSON text when it is a string.
func recordArg(args map[string]any, key string) (domain.Record, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return domain.Record{}, fmt.Errorf("%s is required", key)
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return domain.Record{}, fmt.Errorf("%s: %w", key, err)
		}
		data = b
	}

	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Record{}, fmt.Errorf("%s must be a JSON object: %w", key, err)
	}
	return rec, nil
}

// indexArg reads a non-negative integer argument.
func indexArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return int(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return v, nil
	case nil:
		return 0, fmt.Errorf("%s is required", key)
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

// recordsView renders records as JSON-friendly objects tagged with their index.
func recordsView(records []domain.Record) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, r := range records {
		out[i] = map[string]any{"index": i, "record": r}
	}
	return out
}
