package kem

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// These tests pin the engine to an independent FIPS 203 implementation.

func TestInterop_KeyGeneration(t *testing.T) {
	for i := 0; i < 8; i++ {
		seed := testBytes(fmt.Sprintf("interop-keygen-%d", i), KeySeedSize)

		sk, err := NewKeyFromSeed(seed)
		if err != nil {
			t.Fatalf("NewKeyFromSeed() error = %v", err)
		}
		cpk, csk := mlkem768.NewKeyFromSeed(seed)
		wantPK, _ := cpk.MarshalBinary()
		wantSK, _ := csk.MarshalBinary()

		if !bytes.Equal(sk.PublicKey().Bytes(), wantPK) {
			t.Fatalf("seed %d: public key differs from circl", i)
		}
		if !bytes.Equal(sk.Bytes(), wantSK) {
			t.Fatalf("seed %d: secret key differs from circl", i)
		}
	}
}

func TestInterop_Encapsulation(t *testing.T) {
	seed := testBytes("interop-encaps", KeySeedSize)
	sk, _ := NewKeyFromSeed(seed)
	cpk, _ := mlkem768.NewKeyFromSeed(seed)

	for i := 0; i < 8; i++ {
		var m [SeedSize]byte
		copy(m[:], testBytes(fmt.Sprintf("interop-m-%d", i), SeedSize))

		var ct [CiphertextSize]byte
		var ss [SharedKeySize]byte
		encapsulate(&ct, &ss, sk.PublicKey(), &m)

		wantCT := make([]byte, mlkem768.CiphertextSize)
		wantSS := make([]byte, mlkem768.SharedKeySize)
		cpk.EncapsulateTo(wantCT, wantSS, m[:])

		if !bytes.Equal(ct[:], wantCT) {
			t.Fatalf("message %d: ciphertext differs from circl", i)
		}
		if !bytes.Equal(ss[:], wantSS) {
			t.Fatalf("message %d: shared secret differs from circl", i)
		}
	}
}

func TestInterop_Decapsulation(t *testing.T) {
	seed := testBytes("interop-decaps", KeySeedSize)
	sk, _ := NewKeyFromSeed(seed)
	cpk, csk := mlkem768.NewKeyFromSeed(seed)

	ct := make([]byte, mlkem768.CiphertextSize)
	ss := make([]byte, mlkem768.SharedKeySize)
	cpk.EncapsulateTo(ct, ss, nil)

	got, err := Decapsulate(sk, ct)
	if err != nil {
		t.Fatalf("Decapsulate() error = %v", err)
	}
	if !bytes.Equal(got, ss) {
		t.Fatal("failed to decapsulate a circl ciphertext")
	}

	ours, oursSS, err := Encapsulate(sk.PublicKey(), nil)
	if err != nil {
		t.Fatalf("Encapsulate() error = %v", err)
	}
	theirs := make([]byte, mlkem768.SharedKeySize)
	csk.DecapsulateTo(theirs, ours)
	if !bytes.Equal(theirs, oursSS) {
		t.Fatal("circl failed to decapsulate our ciphertext")
	}
}

func TestInterop_ImplicitRejection(t *testing.T) {
	seed := testBytes("interop-reject", KeySeedSize)
	sk, _ := NewKeyFromSeed(seed)
	_, csk := mlkem768.NewKeyFromSeed(seed)

	ct := testBytes("interop-garbage-ct", CiphertextSize)

	got, err := Decapsulate(sk, ct)
	if err != nil {
		t.Fatalf("Decapsulate() error = %v", err)
	}
	want := make([]byte, mlkem768.SharedKeySize)
	csk.DecapsulateTo(want, ct)

	if !bytes.Equal(got, want) {
		t.Error("rejected secret differs from circl's J(z ‖ c)")
	}
}
