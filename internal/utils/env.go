package utils

import (
	"os"
	"strings"
)

// SafeEnv returns the trimmed value of key, or fallback when it is unset or
// blank.
func SafeEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// EnvName is the lower-cased deployment name in key ("dev", "prod", ...).
// config.Load reads it before viper is built to pick config/.env.<name>.
func EnvName(key, fallback string) string {
	return strings.ToLower(SafeEnv(key, fallback))
}
