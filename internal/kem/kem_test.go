package kem

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"golang.org/x/crypto/sha3"
)

// testBytes returns n deterministic bytes derived from label.
func testBytes(label string, n int) []byte {
	h := sha3.NewShake128()
	h.Write([]byte(label))
	out := make([]byte, n)
	h.Read(out)
	return out
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestSizes(t *testing.T) {
	tests := []struct {
		name      string
		got, want int
	}{
		{"public key", PublicKeySize, 1184},
		{"secret key", SecretKeySize, 2400},
		{"ciphertext", CiphertextSize, 1088},
		{"shared key", SharedKeySize, 32},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s size = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for i := 0; i < 25; i++ {
		sk, err := GenerateKey(nil)
		if err != nil {
			t.Fatalf("GenerateKey() error = %v", err)
		}

		ct, ss, err := Encapsulate(sk.PublicKey(), nil)
		if err != nil {
			t.Fatalf("Encapsulate() error = %v", err)
		}
		if len(ct) != CiphertextSize || len(ss) != SharedKeySize {
			t.Fatalf("Encapsulate() sizes = (%d, %d)", len(ct), len(ss))
		}

		got, err := Decapsulate(sk, ct)
		if err != nil {
			t.Fatalf("Decapsulate() error = %v", err)
		}
		if !bytes.Equal(got, ss) {
			t.Fatalf("iteration %d: decapsulated secret differs from encapsulated secret", i)
		}
	}
}

func TestRoundTrip_ParsedKeys(t *testing.T) {
	sk, err := GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	pk, err := ParsePublicKey(sk.PublicKey().Bytes())
	if err != nil {
		t.Fatalf("ParsePublicKey() error = %v", err)
	}
	parsed, err := ParseSecretKey(sk.Bytes())
	if err != nil {
		t.Fatalf("ParseSecretKey() error = %v", err)
	}
	if !bytes.Equal(parsed.Bytes(), sk.Bytes()) {
		t.Error("ParseSecretKey(sk.Bytes()).Bytes() != sk.Bytes()")
	}

	ct, ss, err := Encapsulate(pk, nil)
	if err != nil {
		t.Fatalf("Encapsulate() error = %v", err)
	}
	got, err := Decapsulate(parsed, ct)
	if err != nil {
		t.Fatalf("Decapsulate() error = %v", err)
	}
	if !bytes.Equal(got, ss) {
		t.Error("shared secrets differ across serialized keys")
	}
}

func TestNewKeyFromSeed_Deterministic(t *testing.T) {
	seed := testBytes("deterministic", KeySeedSize)
	a, err := NewKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("NewKeyFromSeed() error = %v", err)
	}
	b, _ := NewKeyFromSeed(seed)

	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("same seed produced different secret keys")
	}

	seed[0] ^= 1
	c, _ := NewKeyFromSeed(seed)
	if a.PublicKey().Equal(c.PublicKey()) {
		t.Error("different seeds produced the same public key")
	}
}

func TestNewKeyFromSeed_InvalidSize(t *testing.T) {
	for _, n := range []int{0, 32, 63, 65} {
		if _, err := NewKeyFromSeed(make([]byte, n)); !errors.Is(err, ErrInvalidSeedSize) {
			t.Errorf("len %d: expected ErrInvalidSeedSize, got %v", n, err)
		}
	}
}

func TestGenerateKey_ReaderError(t *testing.T) {
	if _, err := GenerateKey(failingReader{}); err == nil {
		t.Error("GenerateKey() with failing reader returned nil error")
	}
}

func TestEncapsulate_ReaderError(t *testing.T) {
	sk, _ := NewKeyFromSeed(testBytes("reader", KeySeedSize))
	if _, _, err := Encapsulate(sk.PublicKey(), failingReader{}); err == nil {
		t.Error("Encapsulate() with failing reader returned nil error")
	}
}

func TestDecapsulate_TamperedCiphertext(t *testing.T) {
	sk, err := NewKeyFromSeed(testBytes("tamper", KeySeedSize))
	if err != nil {
		t.Fatalf("NewKeyFromSeed() error = %v", err)
	}
	ct, ss, err := Encapsulate(sk.PublicKey(), nil)
	if err != nil {
		t.Fatalf("Encapsulate() error = %v", err)
	}

	positions := []int{0, 1, 319, 320, 959, 960, 1000, CiphertextSize - 1}
	seen := map[string]bool{}
	for _, pos := range positions {
		t.Run(fmt.Sprintf("byte %d", pos), func(t *testing.T) {
			tampered := bytes.Clone(ct)
			tampered[pos] ^= 0x01

			got, err := Decapsulate(sk, tampered)
			if err != nil {
				t.Fatalf("Decapsulate() of tampered ciphertext error = %v, want implicit rejection", err)
			}
			if len(got) != SharedKeySize {
				t.Fatalf("rejected secret has %d bytes, want %d", len(got), SharedKeySize)
			}
			if bytes.Equal(got, ss) {
				t.Fatal("tampered ciphertext decapsulated to the honest secret")
			}
			if seen[string(got)] {
				t.Error("two different ciphertexts produced the same rejected secret")
			}
			seen[string(got)] = true

			// Rejection is deterministic.
			again, _ := Decapsulate(sk, tampered)
			if !bytes.Equal(again, got) {
				t.Error("implicit rejection is not deterministic")
			}
		})
	}
}

func TestDecapsulate_InvalidSize(t *testing.T) {
	sk, _ := NewKeyFromSeed(testBytes("size", KeySeedSize))
	for _, n := range []int{0, CiphertextSize - 1, CiphertextSize + 1} {
		if _, err := Decapsulate(sk, make([]byte, n)); !errors.Is(err, ErrInvalidCiphertextSize) {
			t.Errorf("len %d: expected ErrInvalidCiphertextSize, got %v", n, err)
		}
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	sk, _ := NewKeyFromSeed(testBytes("parse", KeySeedSize))
	valid := sk.PublicKey().Bytes()

	nonCanonical := bytes.Clone(valid)
	nonCanonical[0] = 0xff
	nonCanonical[1] |= 0x0f // first coefficient 0xfff >= q

	tests := []struct {
		name string
		key  []byte
		want error
	}{
		{"empty", nil, ErrInvalidPublicKeySize},
		{"one byte short", valid[:PublicKeySize-1], ErrInvalidPublicKeySize},
		{"one byte long", append(bytes.Clone(valid), 0), ErrInvalidPublicKeySize},
		{"non-canonical coefficient", nonCanonical, ErrInvalidPublicKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePublicKey(tt.key); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseSecretKey_Invalid(t *testing.T) {
	sk, _ := NewKeyFromSeed(testBytes("parse-sk", KeySeedSize))
	valid := sk.Bytes()

	badHash := bytes.Clone(valid)
	badHash[encodedVectorSize+PublicKeySize] ^= 0x80

	badPK := bytes.Clone(valid)
	badPK[encodedVectorSize] = 0xff
	badPK[encodedVectorSize+1] |= 0x0f

	tests := []struct {
		name string
		key  []byte
		want error
	}{
		{"empty", nil, ErrInvalidSecretKeySize},
		{"short", valid[:SecretKeySize-1], ErrInvalidSecretKeySize},
		{"hash mismatch", badHash, ErrInvalidSecretKey},
		{"embedded public key", badPK, ErrInvalidSecretKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSecretKey(tt.key); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSecretKey_Zero(t *testing.T) {
	sk, _ := NewKeyFromSeed(testBytes("zero", KeySeedSize))
	sk.Zero()

	for i := range sk.s {
		for j, c := range sk.s[i] {
			if c != 0 {
				t.Fatalf("s[%d][%d] = %d after Zero", i, j, c)
			}
		}
	}
	for _, b := range sk.z {
		if b != 0 {
			t.Fatal("z not cleared by Zero")
		}
	}
}

func TestCtEqual(t *testing.T) {
	a := testBytes("cteq", CiphertextSize)

	if ctEqual(a, bytes.Clone(a)) != 1 {
		t.Error("ctEqual of identical slices = 0")
	}
	for _, pos := range []int{0, CiphertextSize / 2, CiphertextSize - 1} {
		b := bytes.Clone(a)
		b[pos] ^= 0x40
		if ctEqual(a, b) != 0 {
			t.Errorf("ctEqual with difference at %d = 1", pos)
		}
	}
}

// TestCtEqual_NoEarlyExit inspects the comparison loop and fails if it
// contains any statement that could leave the loop before every byte is read.
func TestCtEqual_NoEarlyExit(t *testing.T) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "kem.go", nil, 0)
	if err != nil {
		t.Fatalf("parse kem.go: %v", err)
	}

	var fn *ast.FuncDecl
	for _, decl := range f.Decls {
		if d, ok := decl.(*ast.FuncDecl); ok && d.Name.Name == "ctEqual" {
			fn = d
		}
	}
	if fn == nil {
		t.Fatal("ctEqual not found in kem.go")
	}

	loops := 0
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		loop, ok := n.(*ast.RangeStmt)
		if !ok {
			return true
		}
		loops++
		ast.Inspect(loop.Body, func(n ast.Node) bool {
			switch n.(type) {
			case *ast.IfStmt, *ast.ReturnStmt, *ast.BranchStmt, *ast.SwitchStmt:
				t.Errorf("ctEqual loop contains %T at %v", n, fset.Position(n.Pos()))
			}
			return true
		})
		return false
	})
	if loops != 1 {
		t.Errorf("ctEqual has %d range loops, want 1", loops)
	}
}

func BenchmarkDecapsulate(b *testing.B) {
	sk, _ := GenerateKey(rand.Reader)
	ct, _, _ := Encapsulate(sk.PublicKey(), rand.Reader)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decapsulate(sk, ct)
	}
}
