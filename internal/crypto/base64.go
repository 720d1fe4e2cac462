package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ToBase64URL encodes bytes to URL-safe base64 without padding, the form
// used by key files and integrity reports.
func ToBase64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// FromBase64URL decodes URL-safe base64 without padding. It is strict:
// padded or standard-alphabet input is rejected.
func FromBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// lenientEncodings are tried in order by DecodeBase64.
var lenientEncodings = []*base64.Encoding{
	base64.RawURLEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.StdEncoding,
}

var errNotBase64 = errors.New("not valid base64 in any supported alphabet")

// DecodeBase64 accepts blobs pasted by hand: either alphabet, with or
// without padding, surrounded by whitespace.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range lenientEncodings {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, errNotBase64
}
