package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

const testModeEnv = "TIMEGUARD_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeInit sync.Once
)

func loadTestMode() {
	enabled, err := strconv.ParseBool(os.Getenv(testModeEnv))
	testMode.Store(err == nil && enabled)
}

// InTestMode reports whether TIMEGUARD_TEST_MODE is set. Binaries return
// before opening connections when it is.
func InTestMode() bool {
	testModeInit.Do(loadTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads TIMEGUARD_TEST_MODE.
func RefreshTestMode() {
	testModeInit.Do(func() {})
	loadTestMode()
}
