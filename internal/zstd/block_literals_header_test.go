package zstd

import "testing"

// TestDecodeLiteralsSectionSizeFormat1 checks that a compressed literals
// header using Size_Format 1 (4 streams, 10-bit sizes, 3-byte header) is
// parsed correctly, even though this package's own encoder always picks
// Size_Format 2 or 3 once it selects 4 streams and so never emits format 1
// itself. A real zstd encoder can and does choose format 1 for small
// 4-stream blocks, and a decoder that can only read format 0/2/3 would
// misparse that header and either error out or silently corrupt the
// output.
func TestDecodeLiteralsSectionSizeFormat1(t *testing.T) {
	lits := skewedBytes(21, 500, 24)

	encoded, _, err := encodeLiteralsSection(lits, nil, maxHuffmanTableLog)
	if err != nil {
		t.Fatalf("encodeLiteralsSection: %v", err)
	}
	mode := literalsBlockType(encoded[0] & 3)
	if mode != litCompressed {
		t.Skip("fixture did not encode as COMPRESSED; adjust skewedBytes parameters")
	}
	sizeFormat := (encoded[0] >> 2) & 3
	if sizeFormat != 2 {
		t.Skip("fixture did not land on a 4-byte Size_Format 2 header; adjust skewedBytes parameters")
	}

	h := uint32(encoded[0]) | uint32(encoded[1])<<8 | uint32(encoded[2])<<16 | uint32(encoded[3])<<24
	regeneratedSize := int((h >> 4) & 0x3FFF)
	compressedSize := int(h >> 18)
	if regeneratedSize >= 1024 || compressedSize >= 1024 {
		t.Skip("fixture's sizes don't fit Size_Format 1's 10-bit fields; adjust skewedBytes parameters")
	}

	h1 := uint32(litCompressed) | uint32(1)<<2 | uint32(regeneratedSize)<<4 | uint32(compressedSize)<<14
	rebuilt := append([]byte{byte(h1), byte(h1 >> 8), byte(h1 >> 16)}, encoded[4:]...)

	section, consumed, err := decodeLiteralsSection(rebuilt, nil)
	if err != nil {
		t.Fatalf("decodeLiteralsSection with Size_Format 1: %v", err)
	}
	if consumed != 3+len(encoded)-4 {
		t.Fatalf("consumed %d bytes, want %d", consumed, 3+len(encoded)-4)
	}
	if string(section.bytes) != string(lits) {
		t.Fatal("Size_Format 1 decode did not reproduce the original literals")
	}
}
