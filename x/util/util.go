// Package util holds small helpers shared by services: timer reuse and
// JSON decoding of loosely typed config payloads.
package util

import (
	"encoding/json"
	"time"
)

// ResetTimer stops, drains and re-arms t. Negative durations fire at once.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// DecodeJSON decodes raw bytes, a string, or an already parsed value (e.g.
// a bus payload of map[string]any) into dst.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// Bit returns mask when b is set, zero otherwise.
func Bit(b bool, mask uint8) uint8 {
	if b {
		return mask
	}
	return 0
}
