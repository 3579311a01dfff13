// Package useragent supplies the client identifier strings sessions present.
package useragent

import (
	"github.com/corpix/uarand"
)

// Source yields user agent strings.
type Source interface {
	Random() string
}

// Pool draws realistic user agents from the uarand list.
type Pool struct{}

func (Pool) Random() string {
	return uarand.GetRandom()
}

// Fixed always returns the same user agent.
type Fixed string

func (f Fixed) Random() string {
	return string(f)
}

// New returns a Fixed source when override is set and the random Pool otherwise.
func New(override string) Source {
	if override != "" {
		return Fixed(override)
	}
	return Pool{}
}
