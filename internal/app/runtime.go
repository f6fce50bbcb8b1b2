package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// TestModeEnv short-circuits both binaries when truthy.
const TestModeEnv = "SERVICEBOOK_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func readTestMode() {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(err == nil && on)
}

// InTestMode reports whether the binaries should skip connecting to the store and queue.
func InTestMode() bool {
	testModeOnce.Do(readTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the environment, for tests that toggle it.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	readTestMode()
}
