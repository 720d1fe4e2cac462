package kem

import (
	"bytes"
	"errors"
	"testing"
)

// FuzzDecapsulate checks that decapsulation never panics and never reports
// an error for a ciphertext of the right length.
func FuzzDecapsulate(f *testing.F) {
	sk, err := NewKeyFromSeed(testBytes("fuzz decapsulate", KeySeedSize))
	if err != nil {
		f.Fatalf("NewKeyFromSeed() error = %v", err)
	}
	ct, _, err := Encapsulate(sk.PublicKey(), bytes.NewReader(testBytes("fuzz m", SeedSize)))
	if err != nil {
		f.Fatalf("Encapsulate() error = %v", err)
	}

	f.Add(ct)
	f.Add(make([]byte, CiphertextSize))
	f.Add(bytes.Repeat([]byte{0xff}, CiphertextSize))
	f.Add(ct[:CiphertextSize-1])
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		ss, err := Decapsulate(sk, data)
		if len(data) != CiphertextSize {
			if !errors.Is(err, ErrInvalidCiphertextSize) {
				t.Fatalf("length %d: expected ErrInvalidCiphertextSize, got %v", len(data), err)
			}
		} else {
			if err != nil {
				t.Fatalf("Decapsulate() error = %v", err)
			}
			if len(ss) != SharedKeySize {
				t.Fatalf("shared secret is %d bytes", len(ss))
			}
		}

		// Every input also runs as a full-size ciphertext.
		fixed := make([]byte, CiphertextSize)
		copy(fixed, data)
		a, err := Decapsulate(sk, fixed)
		if err != nil {
			t.Fatalf("Decapsulate() error = %v", err)
		}
		b, _ := Decapsulate(sk, fixed)
		if !bytes.Equal(a, b) {
			t.Fatal("decapsulation is not deterministic")
		}
	})
}

// FuzzParsePublicKey checks that any public key the parser accepts can be
// encapsulated to and re-encodes to the same bytes.
func FuzzParsePublicKey(f *testing.F) {
	sk, err := NewKeyFromSeed(testBytes("fuzz public key", KeySeedSize))
	if err != nil {
		f.Fatalf("NewKeyFromSeed() error = %v", err)
	}

	f.Add(sk.PublicKey().Bytes())
	f.Add(make([]byte, PublicKeySize))
	f.Add(bytes.Repeat([]byte{0xff}, PublicKeySize))
	f.Add(testBytes("random public key", PublicKeySize))
	f.Add([]byte{0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		pk, err := ParsePublicKey(data)
		if err != nil {
			if !errors.Is(err, ErrInvalidPublicKeySize) && !errors.Is(err, ErrInvalidPublicKey) {
				t.Fatalf("unexpected error type: %v", err)
			}
			return
		}

		if !bytes.Equal(pk.Bytes(), data) {
			t.Fatal("accepted public key does not re-encode to its input")
		}

		ct, ss, err := Encapsulate(pk, bytes.NewReader(testBytes("fuzz m", SeedSize)))
		if err != nil {
			t.Fatalf("Encapsulate() error = %v", err)
		}
		if len(ct) != CiphertextSize || len(ss) != SharedKeySize {
			t.Fatalf("Encapsulate() sizes = (%d, %d)", len(ct), len(ss))
		}
	})
}
