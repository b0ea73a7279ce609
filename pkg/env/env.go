// Package env reads the few environment variables that live outside the
// envconfig-managed BITEDASH_ settings, such as LOG_FORMAT, which the logger
// needs before configuration has loaded.
package env

import "os"

// Get returns the variable's value, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
