// Package env defines the deployment environments the blue-green tooling
// operates on. Environment values double as display and S3 key segments,
// so they are lowercase short names.
package env

import (
	"fmt"
	"strings"
)

// Environment identifies a deployment target.
type Environment string

const (
	Prod    Environment = "prod"
	Staging Environment = "staging"
	Beta    Environment = "beta"
)

// All returns every known environment in canonical display order.
// Status reports iterate this slice, so the order is load-bearing.
func All() []Environment {
	return []Environment{Prod, Staging, Beta}
}

// Siblings returns the non-production environments a missing prod artifact
// can be recovered from, in preference order (staging first).
func Siblings() []Environment {
	return []Environment{Staging, Beta}
}

// Parse converts a user-supplied name into an Environment.
// Accepts a few common aliases ("production", "stage").
func Parse(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return Prod, nil
	case "staging", "stage":
		return Staging, nil
	case "beta":
		return Beta, nil
	default:
		return "", fmt.Errorf("unknown environment %q (expected prod, staging, or beta)", s)
	}
}

func (e Environment) String() string {
	return string(e)
}

// Valid reports whether e is one of the known environments.
func (e Environment) Valid() bool {
	switch e {
	case Prod, Staging, Beta:
		return true
	}
	return false
}
