// Package testing is imported by tests that build application wiring. It
// forces test mode so binaries and the router skip external connections.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var testEnv = map[string]string{
	"TIMEGUARD_TEST_MODE": "1",
	"APP_ENV":             "test",
	"LOG_LEVEL":           "warn",
	"REDIS_ADDR":          "127.0.0.1:0",
}

var setup sync.Once

func applyTestEnv() {
	setup.Do(func() {
		for key, value := range testEnv {
			if key != "TIMEGUARD_TEST_MODE" && os.Getenv(key) != "" {
				continue
			}
			_ = os.Setenv(key, value)
		}
	})
}

func init() {
	applyTestEnv()
}

// TestMain applies the test environment before running m.
func TestMain(m *stdtesting.M) {
	applyTestEnv()
	os.Exit(m.Run())
}
