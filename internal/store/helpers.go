package store

import (
	"encoding/json"
)

// marshalList converts a slice to JSON text for storage. Empty slices are
// stored as "[]".
func marshalList[T any](items []T) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// unmarshalList converts JSON text back to a slice. "[]" and "" yield nil
// so a loaded record equals the one that was saved.
func unmarshalList[T any](s string) []T {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var items []T
	_ = json.Unmarshal([]byte(s), &items)
	return items
}
