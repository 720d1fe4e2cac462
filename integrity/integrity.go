// Package integrity scores device tamper evidence and defines the
// integrity report that travels, signed and sealed, inside an attestation
// blob.
package integrity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mercyshield/pqshield/internal/crypto"
	"github.com/mercyshield/pqshield/internal/sign"
)

// Verdict is the overall classification of a device.
type Verdict string

const (
	// VerdictGenuine indicates no tamper evidence and a passing device check.
	VerdictGenuine Verdict = "Genuine"
	// VerdictSuspicious indicates soft evidence, such as basic integrity only.
	VerdictSuspicious Verdict = "Suspicious"
	// VerdictCompromised indicates hard evidence of rooting or tampering.
	VerdictCompromised Verdict = "Compromised"
)

// Play Integrity verdict labels recognised by Evaluate.
const (
	PlayDeviceIntegrity = "MEETS_DEVICE_INTEGRITY"
	PlayBasicIntegrity  = "MEETS_BASIC_INTEGRITY"
)

// Score weights.
const (
	weightFiles       = 40
	weightProps       = 30
	weightMagisk      = 20
	weightPlayBasic   = 15
	weightPlayFailed  = 35
	weightPlayMissing = 10

	// MaxRiskScore is the cap applied to the summed weights.
	MaxRiskScore = 100

	// compromisedThreshold is the lowest score classified as Compromised.
	compromisedThreshold = 50
)

var (
	// ErrMalformedReport is returned when report bytes are not a valid
	// integrity report.
	ErrMalformedReport = errors.New("malformed integrity report")

	// ErrNoSignerKey is returned when a report does not declare a verifying key.
	ErrNoSignerKey = errors.New("report declares no signer key")

	// ErrInvalidSignerKey is returned when the declared verifying key is not a
	// base64url ML-DSA-65 public key.
	ErrInvalidSignerKey = errors.New("invalid signer key")
)

// now is the clock used for report timestamps. Tests replace it.
var now = time.Now

// Evidence is the raw tamper evidence collected on a device.
type Evidence struct {
	// SuspiciousFiles lists paths such as /system/bin/su that were found.
	SuspiciousFiles []string `json:"suspicious_files,omitempty"`
	// SuspiciousProps lists system properties such as ro.debuggable=1.
	SuspiciousProps []string `json:"suspicious_props,omitempty"`
	// MagiskIndicators is set when Magisk or Zygisk traces were detected.
	MagiskIndicators bool `json:"magisk_indicators,omitempty"`
	// PlayIntegrityVerdict is the device verdict returned by Play Integrity.
	// Nil means the check was unavailable.
	PlayIntegrityVerdict *string `json:"play_integrity_verdict,omitempty"`
	// PlayToken is the opaque Play Integrity token, carried for server-side
	// verification.
	PlayToken string `json:"play_token,omitempty"`
}

// Report is a scored integrity report.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Verdict   Verdict   `json:"verdict"`
	// RiskScore is 0 for a clean device and at most MaxRiskScore.
	RiskScore int      `json:"risk_score"`
	Details   []string `json:"details"`
	PlayToken string   `json:"play_token,omitempty"`
	// SignerPublicKey is the base64url ML-DSA-65 key that signed this report.
	SignerPublicKey string `json:"signer_public_key,omitempty"`
}

// Evaluate scores e and returns a new report with a fresh ID.
func Evaluate(e Evidence) *Report {
	var details []string
	score := 0

	if len(e.SuspiciousFiles) > 0 {
		score += weightFiles
		details = append(details, "Suspicious files detected: "+strings.Join(e.SuspiciousFiles, ", "))
	}

	if len(e.SuspiciousProps) > 0 {
		score += weightProps
		details = append(details, "Tamper props: "+strings.Join(e.SuspiciousProps, ", "))
	}

	if e.MagiskIndicators {
		score += weightMagisk
		details = append(details, "Magisk/Zygisk indicators found")
	}

	switch {
	case e.PlayIntegrityVerdict == nil:
		score += weightPlayMissing
		details = append(details, "Play Integrity unavailable")
	case strings.Contains(*e.PlayIntegrityVerdict, PlayDeviceIntegrity):
	case strings.Contains(*e.PlayIntegrityVerdict, PlayBasicIntegrity):
		score += weightPlayBasic
		details = append(details, "Basic integrity only, possible emulator or soft root")
	default:
		score += weightPlayFailed
		details = append(details, "Play Integrity failed: "+*e.PlayIntegrityVerdict)
	}

	score = min(score, MaxRiskScore)

	if details == nil {
		details = []string{}
	}
	return &Report{
		ID:        uuid.NewString(),
		CreatedAt: now().UTC(),
		Verdict:   VerdictForScore(score),
		RiskScore: score,
		Details:   details,
		PlayToken: e.PlayToken,
	}
}

// VerdictForScore classifies a risk score.
func VerdictForScore(score int) Verdict {
	switch {
	case score <= 0:
		return VerdictGenuine
	case score < compromisedThreshold:
		return VerdictSuspicious
	default:
		return VerdictCompromised
	}
}

// SetSignerKey records the verifying key that will sign the report.
func (r *Report) SetSignerKey(pub []byte) {
	r.SignerPublicKey = crypto.ToBase64URL(pub)
}

// Marshal returns the JSON encoding of r.
func (r *Report) Marshal() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// Validate checks that r is internally consistent.
func (r *Report) Validate() error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("%w: id: %v", ErrMalformedReport, err)
	}

	switch r.Verdict {
	case VerdictGenuine, VerdictSuspicious, VerdictCompromised:
	default:
		return fmt.Errorf("%w: unknown verdict %q", ErrMalformedReport, r.Verdict)
	}

	if r.RiskScore < 0 || r.RiskScore > MaxRiskScore {
		return fmt.Errorf("%w: risk_score %d out of range", ErrMalformedReport, r.RiskScore)
	}
	if want := VerdictForScore(r.RiskScore); r.Verdict != want {
		return fmt.Errorf("%w: verdict %s does not match risk_score %d", ErrMalformedReport, r.Verdict, r.RiskScore)
	}

	if r.SignerPublicKey != "" && !crypto.ValidateSignerPublicKey(r.SignerPublicKey) {
		return fmt.Errorf("%w: signer_public_key", ErrInvalidSignerKey)
	}
	return nil
}

// Parse decodes and validates a JSON integrity report.
func Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// SignerKey extracts the raw verifying key a report declares for itself.
// Only the signer_public_key field is read, so the rest of the report need
// not be valid.
func SignerKey(report []byte) ([]byte, error) {
	var fields struct {
		SignerPublicKey string `json:"signer_public_key"`
	}
	if err := json.Unmarshal(report, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSignerKey, err)
	}
	if fields.SignerPublicKey == "" {
		return nil, ErrNoSignerKey
	}

	pub, err := crypto.FromBase64URL(fields.SignerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignerKey, err)
	}
	if len(pub) != sign.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSignerKey, len(pub), sign.PublicKeySize)
	}
	return pub, nil
}
