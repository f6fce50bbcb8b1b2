// Package guard flips the binaries into test mode when imported from a test.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SERVICEBOOK_TEST_MODE") == "" {
			_ = os.Setenv("SERVICEBOOK_TEST_MODE", "1")
		}
	})
}
