// Package util holds small shared helpers for log hygiene.
package util

// MaskSecret hides all but the first visiblePrefix characters of a secret
// so tokens can appear in startup logs without leaking.
func MaskSecret(s string, visiblePrefix int) string {
	if visiblePrefix < 0 {
		visiblePrefix = 0
	}
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}

// Truncate shortens s to at most max bytes, marking the cut. Response
// bodies attached to errors go through this before logging.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
