/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"
)

type tHelper interface {
	Helper()
}

// RequireNoErrorInChannel asserts that the buffered channel holds no error.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var err error
	select {
	case err = <-c:
	default:
	}
	require.NoError(t, err, msgAndArgs...)
}

// RequireErrorIsAny asserts that at least one of the errors in err's chain matches at least one target.
// This is a wrapper for errors.Is.
func RequireErrorIsAny(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	for _, targetErr := range targets {
		if errors.Is(err, targetErr) {
			return
		}
	}
	expected := make([]string, 0, len(targets))
	for _, targetErr := range targets {
		expected = append(expected, fmt.Sprintf("%q", targetErr.Error()))
	}
	require.FailNow(t, fmt.Sprintf("At least one target error should be in err chain:\n"+
		"expected: [%s]\n"+
		"in chain: %s", strings.Join(expected, "; "), errorChainString(err),
	), msgAndArgs...)
}

// errorChainString lists every error in the chain with its type, so typed errors
// (e.g. a rate limiter wait error wrapping context.Canceled) are easy to tell apart.
func errorChainString(err error) string {
	if err == nil {
		return "<nil>"
	}
	var sb strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		if e != err {
			sb.WriteString("\n\t")
		}
		sb.WriteString(fmt.Sprintf("%T: %q", e, e.Error()))
	}
	return sb.String()
}
