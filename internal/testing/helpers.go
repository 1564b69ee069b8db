package testing

import (
	"os"
	"testing"
)

// SkipIfNoDatabase skips the test when provider needs a server and no URL
// was configured for it. SQLite always runs.
func SkipIfNoDatabase(t *testing.T, provider string) {
	t.Helper()
	if provider == "sqlite" {
		return
	}
	if GetTestDatabaseURL(provider) == "" {
		t.Skipf("TEST_DATABASE_URL_%s not set, skipping %s test", provider, provider)
	}
}

// GetProviderFromEnv returns TEST_PROVIDER, sqlite by default
func GetProviderFromEnv() string {
	if provider := os.Getenv("TEST_PROVIDER"); provider != "" {
		return provider
	}
	return "sqlite"
}
