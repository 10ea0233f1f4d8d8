package scalardex

import (
	"golang.org/x/time/rate"

	"github.com/hupe1980/scalardex/codec"
)

// DefaultCardinalityLimit is the distinct-value count at or below which the
// bitmap encoding is selected. Kept small relative to typical row counts so
// a per-value bitmap stays cheaper than a sorted column.
const DefaultCardinalityLimit = 128

type options struct {
	cardinalityLimit int
	compression      codec.Type
	logger           *Logger
}

func defaultOptions() options {
	return options{
		cardinalityLimit: DefaultCardinalityLimit,
		compression:      codec.None,
		logger:           NoopLogger(),
	}
}

// Option configures a Hybrid index at construction time.
type Option func(*options)

// WithCardinalityLimit overrides the bitmap selection threshold. Values
// below 1 fall back to the default.
func WithCardinalityLimit(limit int) Option {
	return func(o *options) {
		if limit >= 1 {
			o.cardinalityLimit = limit
		}
	}
}

// WithCompression selects the codec used to frame variant blobs on Upload.
// The descriptor blob is always stored uncompressed so loaders can resolve
// it with a single small ranged read.
func WithCompression(t codec.Type) Option {
	return func(o *options) {
		o.compression = t
	}
}

// WithLogger configures a logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

type uploadOptions struct {
	limiter     *rate.Limiter
	concurrency int
}

func defaultUploadOptions() uploadOptions {
	return uploadOptions{
		concurrency: 4,
	}
}

// UploadOption configures a single Upload call.
type UploadOption func(*uploadOptions)

// WithRateLimit throttles upload throughput to the given byte-rate limiter.
// Useful when index uploads share an uplink with serving traffic.
func WithRateLimit(l *rate.Limiter) UploadOption {
	return func(o *uploadOptions) {
		o.limiter = l
	}
}

// WithUploadConcurrency bounds the number of parallel blob writes.
func WithUploadConcurrency(n int) UploadOption {
	return func(o *uploadOptions) {
		if n >= 1 {
			o.concurrency = n
		}
	}
}
