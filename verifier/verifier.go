// Package verifier opens attestation blobs on the server side, classifies
// each one and records the outcome in logs and metrics.
package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mercyshield/pqshield"
	"github.com/mercyshield/pqshield/integrity"
)

// Outcome classifies a verified blob.
type Outcome string

const (
	// OutcomeOK means the blob decrypted, the signature verified and the
	// report parsed.
	OutcomeOK Outcome = "ok"
	// OutcomeInvalidBlob means the blob was truncated, modified or sealed
	// for another key.
	OutcomeInvalidBlob Outcome = "invalid_blob"
	// OutcomeForged means the blob decrypted but the report signature did
	// not verify under the signer key.
	OutcomeForged Outcome = "forged"
	// OutcomeMalformed means the blob is authentic but its report is not a
	// valid integrity report.
	OutcomeMalformed Outcome = "malformed"
	// OutcomeError covers failures unrelated to the blob, such as a closed
	// server key.
	OutcomeError Outcome = "error"
)

// ErrNilServerKey is returned by New when no server key is given.
var ErrNilServerKey = errors.New("verifier: nil server key")

// Result is the outcome of verifying one blob.
type Result struct {
	Outcome Outcome
	// Report is set when Outcome is OutcomeOK.
	Report *integrity.Report
	// SignerKey is the ML-DSA-65 key the report verified under.
	SignerKey []byte
	// Err is nil only when Outcome is OutcomeOK.
	Err error
}

// Verifier opens blobs with a shared server key. It is safe for concurrent
// use.
type Verifier struct {
	key      *pqshield.ServerKey
	log      *zerolog.Logger
	metrics  *metrics
	workers  int
	openOpts []pqshield.OpenOption
}

// New returns a Verifier that opens blobs with key. The Verifier does not
// take ownership of key; the caller closes it.
func New(key *pqshield.ServerKey, opts ...Option) (*Verifier, error) {
	if key == nil {
		return nil, ErrNilServerKey
	}

	nop := zerolog.Nop()
	cfg := &config{
		log:        &nop,
		registerer: prometheus.DefaultRegisterer,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	m, err := newMetrics(cfg.registerer)
	if err != nil {
		return nil, err
	}

	return &Verifier{
		key:      key,
		log:      cfg.log,
		metrics:  m,
		workers:  cfg.workers,
		openOpts: cfg.openOpts,
	}, nil
}

// Verify opens blob, checks its signature and parses the integrity report.
// The returned error, if any, is also carried in Result.Err.
func (v *Verifier) Verify(blob []byte) Result {
	start := time.Now()
	res := v.verify(blob)
	v.metrics.duration.Observe(time.Since(start).Seconds())
	v.metrics.blobs.WithLabelValues(string(res.Outcome)).Inc()
	if res.Report != nil {
		v.metrics.verdicts.WithLabelValues(string(res.Report.Verdict)).Inc()
	}
	v.logResult(res, len(blob))
	return res
}

func (v *Verifier) verify(blob []byte) Result {
	opened, err := pqshield.OpenBlob(blob, v.key, v.openOpts...)
	if err != nil {
		return Result{Outcome: Classify(err), Err: err}
	}

	report, err := integrity.Parse(opened.Report)
	if err != nil {
		return Result{Outcome: OutcomeMalformed, SignerKey: opened.SignerKey, Err: err}
	}

	return Result{Outcome: OutcomeOK, Report: report, SignerKey: opened.SignerKey}
}

// Classify maps an error from pqshield.OpenBlob or integrity.Parse to an
// Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, pqshield.ErrInvalidBlob):
		return OutcomeInvalidBlob
	case errors.Is(err, pqshield.ErrForgedReport),
		errors.Is(err, pqshield.ErrSignerKeyMismatch):
		return OutcomeForged
	case errors.Is(err, pqshield.ErrMissingSignerKey),
		errors.Is(err, pqshield.ErrInvalidFormat),
		errors.Is(err, integrity.ErrMalformedReport):
		return OutcomeMalformed
	default:
		return OutcomeError
	}
}

func (v *Verifier) logResult(res Result, size int) {
	if res.Outcome == OutcomeOK {
		v.log.Info().
			Str("outcome", string(res.Outcome)).
			Str("reportID", res.Report.ID).
			Str("verdict", string(res.Report.Verdict)).
			Int("riskScore", res.Report.RiskScore).
			Int("blobSize", size).
			Msg("Verified attestation blob")
		return
	}

	v.log.Warn().
		Err(res.Err).
		Str("outcome", string(res.Outcome)).
		Int("blobSize", size).
		Msg("Rejected attestation blob")
}

// VerifyAll verifies blobs using at most the configured number of workers.
// Results are returned in input order. Verification of individual blobs
// never fails the batch; the returned error is non-nil only when ctx is
// cancelled before every blob has been verified.
func (v *Verifier) VerifyAll(ctx context.Context, blobs [][]byte) ([]Result, error) {
	results := make([]Result, len(blobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, blob := range blobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = v.Verify(blob)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
