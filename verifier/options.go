package verifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mercyshield/pqshield"
)

// DefaultWorkers is the VerifyAll concurrency used when none is configured.
const DefaultWorkers = 4

type config struct {
	log        *zerolog.Logger
	registerer prometheus.Registerer
	workers    int
	openOpts   []pqshield.OpenOption
}

// Option configures a Verifier.
type Option func(*config)

// WithLogger sets the logger. The default discards all output.
func WithLogger(log *zerolog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithRegisterer sets where metrics are registered. The default is
// prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = r
	}
}

// WithWorkers bounds the number of blobs VerifyAll opens at once.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithOpenOptions passes options through to pqshield.OpenBlob, for example
// a pinned signer key.
func WithOpenOptions(opts ...pqshield.OpenOption) Option {
	return func(c *config) {
		c.openOpts = append(c.openOpts, opts...)
	}
}
