package timex

import "time"

// Ms converts a millisecond count from configuration into a Duration.
// Non-positive values fall back to def.
func Ms(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// Us converts a microsecond count from configuration into a Duration.
// Non-positive values fall back to def.
func Us(us int, def time.Duration) time.Duration {
	if us <= 0 {
		return def
	}
	return time.Duration(us) * time.Microsecond
}
