package zstd

import (
	"bytes"
	"testing"
)

// TestEmptyInputEncodesMinimalFrame covers the empty-input end-to-end
// scenario: a valid frame of at least magic(4)+descriptor(1)+content
// size(0..)+checksum(4) bytes that decodes back to an empty slice.
func TestEmptyInputEncodesMinimalFrame(t *testing.T) {
	compressed, err := Compress(nil, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) < 6+4 {
		t.Fatalf("frame length %d, want at least 10 (6-byte header + 4-byte checksum)", len(compressed))
	}
	decompressed, err := Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(decompressed) != 0 {
		t.Fatalf("decoded %d bytes, want 0", len(decompressed))
	}
}

// TestRepeatedLetterEncodesAsRawOrRLE covers "A" repeated 32 times: small
// enough that the encoder reasonably picks a RAW or RLE literal block
// either way, and the content must round-trip byte-for-byte.
func TestRepeatedLetterEncodesAsRawOrRLE(t *testing.T) {
	data := bytes.Repeat([]byte("A"), 32)
	compressed, err := Compress(data, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Fatalf("round trip mismatch: got %q, want %q", decompressed, data)
	}
}

// TestByteCycleCompressesAndRoundTrips covers the concatenation of
// 0..=255 repeated 512 times (131072 bytes, exactly one block): this is
// maximally match-friendly, so the compressed size must not exceed the
// input size, and the content must decode identically.
func TestByteCycleCompressesAndRoundTrips(t *testing.T) {
	data := make([]byte, 0, 131072)
	for i := 0; i < 512; i++ {
		for b := 0; b < 256; b++ {
			data = append(data, byte(b))
		}
	}
	compressed, err := Compress(data, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) > len(data) {
		t.Fatalf("compressed size %d exceeds input size %d", len(compressed), len(data))
	}
	decompressed, err := Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Fatal("round trip mismatch")
	}
}

// TestIncompressibleInputFallsBackToRawBound covers a 200 KiB
// cryptographically random input: the encoder must fall back to RAW
// blocks and the output must stay within MaxCompressedBound.
func TestIncompressibleInputFallsBackToRawBound(t *testing.T) {
	data := cryptoRandomBytes(t, 200<<10)
	compressed, err := Compress(data, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if bound := MaxCompressedBound(len(data)); len(compressed) > bound {
		t.Fatalf("compressed size %d exceeds MaxCompressedBound %d", len(compressed), bound)
	}
	decompressed, err := Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Fatal("round trip mismatch")
	}
}
