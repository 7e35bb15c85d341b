package services

import (
	"context"
	"time"
)

// RevocationCache is a fast, non-authoritative lookaside for revoked tokens.
type RevocationCache interface {
	MarkRevoked(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type options struct {
	now     func() time.Time
	cache   RevocationCache
	metrics *Metrics
}

// Option tweaks optional collaborators of the services in this package.
type Option func(*options)

// WithClock replaces time.Now; tests use it to step over TTL boundaries.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithRevocationCache(c RevocationCache) Option {
	return func(o *options) { o.cache = c }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
