// Package idgen provides the pluggable job ID strategy.
//
// Every generated ID matches [A-Za-z0-9_-]+ so it can be used directly as a
// file name stem in the uploads and results areas.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv4 returns a Generator of random RFC 4122 UUID strings.
func UUIDv4() Generator {
	return func() string {
		return uuid.NewString()
	}
}

// ULID returns a Generator of lexicographically sortable ULIDs, lowercased.
func ULID() Generator {
	return func() string {
		// ulid.Make shares a locked monotonic entropy source, safe across goroutines.
		return strings.ToLower(ulid.Make().String())
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// ForStrategy maps a configured strategy name to a Generator.
func ForStrategy(name string) (Generator, error) {
	switch strings.ToLower(name) {
	case "", "uuid":
		return UUIDv4(), nil
	case "ulid":
		return ULID(), nil
	}
	return nil, fmt.Errorf("idgen: unknown strategy %q", name)
}
