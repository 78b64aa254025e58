package test

import (
	"os"
	"strings"
)

// UnsetEnvPrefix clears every environment variable whose name starts with
// prefix, isolating config-from-env tests from the caller's environment.
func UnsetEnvPrefix(prefix string) {
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}

		name, _, _ := strings.Cut(kv, "=")
		os.Unsetenv(name)
	}
}
