package zstd

import (
	"encoding/binary"
	"testing"
)

func TestDecompressRejectsBadMagicNumber(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 0}
	if _, err := Decompress(buf, 0); err == nil {
		t.Fatal("expected an error for a bad magic number")
	}
}

func TestDecompressRejectsTruncatedFrame(t *testing.T) {
	data := textLike(1, 5000)
	compressed, err := Compress(data, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	for _, cut := range []int{4, 5, 6, len(compressed) - 1} {
		if cut <= 0 || cut >= len(compressed) {
			continue
		}
		if _, err := Decompress(compressed[:cut], 0); err == nil {
			t.Errorf("truncated to %d of %d bytes: expected an error", cut, len(compressed))
		}
	}
}

func TestDecompressRejectsFlippedChecksum(t *testing.T) {
	data := textLike(6, 2000)
	compressed, err := Compress(data, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	corrupted := append([]byte(nil), compressed...)
	last4 := corrupted[len(corrupted)-4:]
	sum := binary.LittleEndian.Uint32(last4)
	binary.LittleEndian.PutUint32(last4, sum^0xFFFFFFFF)

	if _, err := Decompress(corrupted, 0); err == nil {
		t.Fatal("expected a checksum mismatch error")
	}
}

func TestDecompressRejectsLegacyMagicNumber(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, magicNumberLegacy)
	if _, err := Decompress(buf, 0); err == nil {
		t.Fatal("expected an error for a legacy-magic frame")
	}
}
