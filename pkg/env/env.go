// Package env reads environment variables before the typed config loads.
package env

import "os"

// Get looks up key, falling back when the variable is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
