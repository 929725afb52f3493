/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"
)

// ByteSize represents a size in bytes that may be configured with a human-readable string (e.g. "250M").
type ByteSize uint64

// String returns the human-readable string representation.
func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// ParseByteSize parses human-readable sizes. Kubernetes power-of-two suffixes (Ki, Mi, ...) are accepted too.
func ParseByteSize(s string) (ByteSize, error) {
	v := strings.TrimSpace(s)
	for _, k8sByteSuffix := range [...]string{"Ki", "Mi", "Gi", "Ti", "Pi", "Ei"} {
		if strings.HasSuffix(v, k8sByteSuffix) {
			v = v[:len(v)-1]
			break
		}
	}
	num, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size format (%s): %w", s, err)
	}
	return ByteSize(num), nil
}
