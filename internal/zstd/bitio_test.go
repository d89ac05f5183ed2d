package zstd

import (
	"math/rand"
	"testing"
)

func TestBitWriterReaderRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		widths []uint
		seed   int64
	}{
		{"empty", nil, 1},
		{"single_bit", []uint{1}, 2},
		{"bytes", []uint{8, 8, 8, 8}, 3},
		{"mixed_widths", []uint{1, 3, 7, 12, 5, 20, 2, 16}, 4},
		{"many_small", makeWidths(200, 1, 3, 5), 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(tc.seed))
			values := make([]uint64, len(tc.widths))
			for i, w := range tc.widths {
				values[i] = rng.Uint64() & (1<<w - 1)
			}

			w := newBitWriter()
			// Values are added in reverse so a bitReader walking the
			// finished buffer backward recovers them forward, matching
			// how FSE/Huffman encoders use this primitive.
			for i := len(values) - 1; i >= 0; i-- {
				w.addBits(values[i], tc.widths[i])
			}
			buf := w.close()

			if len(tc.widths) == 0 {
				if len(buf) != 1 {
					t.Fatalf("expected a 1-byte sentinel-only stream, got %d bytes", len(buf))
				}
				return
			}

			r, err := newBitReader(buf, 0, len(buf))
			if err != nil {
				t.Fatalf("newBitReader: %v", err)
			}
			for i, w := range tc.widths {
				got := r.peekAndConsume(w)
				if got != values[i] {
					t.Fatalf("value %d: got %d want %d", i, got, values[i])
				}
				if i < len(tc.widths)-1 {
					if _, err := r.reload(); err != nil {
						t.Fatalf("reload at %d: %v", i, err)
					}
				}
			}
		})
	}
}

func makeWidths(n int, choices ...uint) []uint {
	out := make([]uint, n)
	for i := range out {
		out[i] = choices[i%len(choices)]
	}
	return out
}

func TestHighBit8(t *testing.T) {
	cases := map[byte]int{1: 0, 2: 1, 3: 1, 4: 2, 0x80: 7, 0xFF: 7}
	for b, want := range cases {
		if got := highBit8(b); got != want {
			t.Errorf("highBit8(%#x) = %d, want %d", b, got, want)
		}
	}
}
