package verifier

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricsNamespace  = "pqshield"
	verifierSubsystem = "verifier"
)

type metrics struct {
	blobs    *prometheus.CounterVec
	verdicts *prometheus.CounterVec
	duration prometheus.Histogram
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	blobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "blobs_total",
			Help:      "Number of attestation blobs verified, by outcome",
		},
		[]string{"outcome"},
	)

	verdicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "verdicts_total",
			Help:      "Number of verified integrity reports, by device verdict",
		},
		[]string{"verdict"},
	)

	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "verify_duration_seconds",
			Help:      "Time spent opening and checking one blob",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)

	var err error
	if blobs, err = register(r, blobs); err != nil {
		return nil, err
	}
	if verdicts, err = register(r, verdicts); err != nil {
		return nil, err
	}
	if duration, err = register(r, duration); err != nil {
		return nil, err
	}

	return &metrics{blobs: blobs, verdicts: verdicts, duration: duration}, nil
}

// register adds c to r, reusing an identical collector registered by an
// earlier Verifier.
func register[T prometheus.Collector](r prometheus.Registerer, c T) (T, error) {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
