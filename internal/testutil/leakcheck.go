// Package testutil provides testing utilities for the audiotracker module.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, append(IgnoreKnownGoroutines(), opts...)...)
}

// IgnoreKnownGoroutines returns goleak options for long-lived library goroutines
// that are not owned by the code under test.
func IgnoreKnownGoroutines() []goleak.Option {
	return []goleak.Option{
		// database/sql connection opener started by gorm's sqlite pool
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	}
}
