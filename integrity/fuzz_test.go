package integrity

import (
	"errors"
	"testing"

	"github.com/mercyshield/pqshield/internal/crypto"
	"github.com/mercyshield/pqshield/internal/sign"
)

func fuzzReport(f *testing.F) []byte {
	f.Helper()
	pub, _, err := sign.GenerateKey(nil)
	if err != nil {
		f.Fatalf("GenerateKey() error = %v", err)
	}
	r := Evaluate(Evidence{MagiskIndicators: true, PlayToken: "token"})
	r.SetSignerKey(pub)
	data, err := r.Marshal()
	if err != nil {
		f.Fatalf("Marshal() error = %v", err)
	}
	return data
}

func FuzzSignerKey(f *testing.F) {
	f.Add(fuzzReport(f))
	f.Add([]byte(`{"signer_public_key":""}`))
	f.Add([]byte(`{"signer_public_key":"` + crypto.ToBase64URL(make([]byte, 10)) + `"}`))
	f.Add([]byte(`{"signer_public_key":"!!"}`))
	f.Add([]byte(`{"signer_public_key":7}`))
	f.Add([]byte(`[]`))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		pub, err := SignerKey(data)
		if err != nil {
			if !errors.Is(err, ErrNoSignerKey) && !errors.Is(err, ErrInvalidSignerKey) {
				t.Fatalf("unexpected error type: %v", err)
			}
			if pub != nil {
				t.Fatal("SignerKey() returned a key with an error")
			}
			return
		}
		if len(pub) != sign.PublicKeySize {
			t.Fatalf("signer key is %d bytes, want %d", len(pub), sign.PublicKeySize)
		}
	})
}

func FuzzParse(f *testing.F) {
	f.Add(fuzzReport(f))
	f.Add([]byte(`{"id":"not-a-uuid","verdict":"Genuine","risk_score":0}`))
	f.Add([]byte(`{"verdict":"Compromised","risk_score":101}`))
	f.Add([]byte(`null`))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := Parse(data)
		if err != nil {
			if !errors.Is(err, ErrMalformedReport) && !errors.Is(err, ErrInvalidSignerKey) {
				t.Fatalf("unexpected error type: %v", err)
			}
			return
		}

		out, err := r.Marshal()
		if err != nil {
			t.Fatalf("Marshal() of a parsed report error = %v", err)
		}
		if _, err := Parse(out); err != nil {
			t.Fatalf("Parse() of a re-marshaled report error = %v", err)
		}
	})
}
