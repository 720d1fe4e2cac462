package pqshield

import (
	"bytes"
	"testing"
)

func TestWithSigningKey(t *testing.T) {
	key := []byte{1, 2, 3}
	cfg := &buildConfig{}
	WithSigningKey(key)(cfg)

	if !cfg.signed {
		t.Error("signed = false")
	}
	if &cfg.signingKey[0] != &key[0] {
		t.Error("signing key was copied; it must be consumed in place")
	}
}

func TestWithRandom(t *testing.T) {
	r := bytes.NewReader(nil)
	cfg := &buildConfig{}
	WithRandom(r)(cfg)
	if cfg.rand != r {
		t.Error("rand not set")
	}
}

func TestWithPinnedSignerKey(t *testing.T) {
	key := []byte{9, 9}
	cfg := &openConfig{}
	WithPinnedSignerKey(key)(cfg)

	key[0] = 0
	if !bytes.Equal(cfg.pinned, []byte{9, 9}) {
		t.Errorf("pinned = %v, want a copy of the input", cfg.pinned)
	}
}

func TestWithSignerKeyFunc(t *testing.T) {
	called := false
	cfg := &openConfig{}
	WithSignerKeyFunc(func([]byte) ([]byte, error) {
		called = true
		return nil, nil
	})(cfg)

	cfg.resolver(nil)
	if !called {
		t.Error("resolver not installed")
	}
}

func TestWithoutSignature(t *testing.T) {
	cfg := &openConfig{}
	WithoutSignature()(cfg)
	if !cfg.unsigned {
		t.Error("unsigned = false")
	}
}
