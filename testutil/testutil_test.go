/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import "fmt"

// fakeT records the failure reported by a helper instead of stopping the test.
type fakeT struct {
	failed  bool
	message string
}

func (t *fakeT) Helper() {}

func (t *fakeT) FailNow() {
	t.failed = true
}

func (t *fakeT) Errorf(format string, args ...interface{}) {
	t.message = fmt.Sprintf(format, args...)
}
