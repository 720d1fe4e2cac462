package codec

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/mercyshield/pqshield/internal/ring"
)

// centeredDistance returns |a - b| reduced modulo q into [0, q/2].
func centeredDistance(a, b int16) int {
	d := int(ring.Canonical(ring.Reduce(int32(a) - int32(b))))
	if d > ring.Q/2 {
		d = ring.Q - d
	}
	return d
}

func TestCompress_MatchesFormula(t *testing.T) {
	for _, d := range []int{1, 4, 10, 11} {
		for x := 0; x < ring.Q; x++ {
			// round(2^d·x/q) with integer arithmetic; q is odd so no ties.
			want := uint16(((x<<d)*2+ring.Q)/(2*ring.Q)) & (1<<d - 1)
			if got := Compress(ring.Reduce(int32(x)), d); got != want {
				t.Fatalf("Compress(%d, %d) = %d, want %d", x, d, got, want)
			}
		}
	}
}

func TestCompressDecompress_ErrorBound(t *testing.T) {
	for _, d := range []int{1, 4, 10} {
		bound := (ring.Q + 1<<d) >> (d + 1) // round(q / 2^(d+1))
		worst := 0
		for x := -ring.Q / 2; x <= ring.Q/2; x++ {
			c := int16(x)
			back := Decompress(Compress(c, d), d)
			dist := centeredDistance(back, c)
			if dist > bound {
				t.Fatalf("d=%d: |Decompress(Compress(%d)) - %d| = %d, bound %d", d, x, x, dist, bound)
			}
			if dist > worst {
				worst = dist
			}
		}
		if worst == 0 {
			t.Errorf("d=%d: compression is lossless, which it cannot be", d)
		}
	}
}

func TestCompressPoly_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	for _, d := range []int{4, 10} {
		var p ring.Poly
		for i := range p {
			p[i] = ring.Reduce(int32(rng.Intn(ring.Q)))
		}

		enc := CompressPoly(nil, &p, d)
		if len(enc) != EncodedSize(d) {
			t.Fatalf("d=%d: encoded %d bytes, want %d", d, len(enc), EncodedSize(d))
		}

		var back ring.Poly
		if err := DecompressPoly(&back, enc, d); err != nil {
			t.Fatalf("DecompressPoly() error = %v", err)
		}

		bound := (ring.Q + 1<<d) >> (d + 1)
		for i := range p {
			if dist := centeredDistance(back[i], p[i]); dist > bound {
				t.Fatalf("d=%d coefficient %d: distance %d > %d", d, i, dist, bound)
			}
		}

		// Compressing the decompressed value is stable.
		if again := CompressPoly(nil, &back, d); !bytes.Equal(again, enc) {
			t.Errorf("d=%d: recompression changed the encoding", d)
		}
	}
}

func TestDecompressPoly_InvalidLength(t *testing.T) {
	tests := []struct {
		name string
		d    int
		n    int
	}{
		{"empty d=10", 10, 0},
		{"short d=10", 10, 319},
		{"long d=10", 10, 321},
		{"short d=4", 4, 127},
		{"long d=4", 4, 129},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ring.Poly
			err := DecompressPoly(&p, make([]byte, tt.n), tt.d)
			if !errors.Is(err, ErrInvalidLength) {
				t.Errorf("expected ErrInvalidLength, got %v", err)
			}
		})
	}
}

func TestPack_BitOrder(t *testing.T) {
	var vals [ring.N]uint16
	vals[0] = 0x3ff
	vals[1] = 0x001

	out := pack(nil, &vals, 10)

	// Coefficient 0 fills byte 0 and the low two bits of byte 1; coefficient 1
	// starts at bit 2 of byte 1.
	if out[0] != 0xff || out[1] != 0x07 || out[2] != 0x00 {
		t.Errorf("packed prefix = % x, want ff 07 00", out[:3])
	}

	var back [ring.N]uint16
	unpack(&back, out, 10)
	if back != vals {
		t.Error("unpack(pack(v)) != v")
	}
}

func TestEncode12_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	var p ring.Poly
	for i := range p {
		p[i] = ring.Reduce(int32(rng.Intn(ring.Q)))
	}
	p[0], p[1] = ring.Q/2, -ring.Q/2

	enc := Encode12(nil, &p)
	if len(enc) != 384 {
		t.Fatalf("Encode12 produced %d bytes, want 384", len(enc))
	}

	var back ring.Poly
	if err := Decode12(&back, enc); err != nil {
		t.Fatalf("Decode12() error = %v", err)
	}
	if back != p {
		t.Error("Decode12(Encode12(p)) != p")
	}
}

func TestDecode12_NonCanonical(t *testing.T) {
	enc := make([]byte, EncodedSize(12))
	// First coefficient = 0xd01 = 3329.
	enc[0] = 0x01
	enc[1] = 0x0d

	var p ring.Poly
	if err := Decode12(&p, enc); !errors.Is(err, ErrNonCanonical) {
		t.Errorf("expected ErrNonCanonical, got %v", err)
	}

	enc[1] = 0x0c // 0xc01 = 3073
	if err := Decode12(&p, enc); err != nil {
		t.Errorf("Decode12() error = %v for in-range value", err)
	}
}

func TestDecode12_InvalidLength(t *testing.T) {
	var p ring.Poly
	if err := Decode12(&p, make([]byte, 383)); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("expected ErrInvalidLength, got %v", err)
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	var m [MessageSize]byte
	rng.Read(m[:])

	var p ring.Poly
	EncodeMessage(&p, &m)
	for i, c := range p {
		bit := m[i/8] >> (i % 8) & 1
		if (bit == 0 && c != 0) || (bit == 1 && ring.Canonical(c) != 1665) {
			t.Fatalf("coefficient %d = %d for message bit %d", i, c, bit)
		}
	}

	// Noise below q/4 in magnitude must not flip any bit.
	for i := range p {
		p[i] = ring.Reduce(int32(p[i]) + int32(rng.Intn(1600)-800))
	}

	var back [MessageSize]byte
	DecodeMessage(&back, &p)
	if back != m {
		t.Error("DecodeMessage(EncodeMessage(m) + small noise) != m")
	}
}
