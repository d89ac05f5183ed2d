package zstd

import (
	"bytes"
	"testing"
)

// TestRawBlockSizeOneRoundTrips covers a one-byte frame: a single RAW
// block whose declared content size is exactly 1.
func TestRawBlockSizeOneRoundTrips(t *testing.T) {
	data := []byte{'Q'}
	compressed, err := Compress(data, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	size, known, err := GetFrameContentSize(compressed)
	if err != nil {
		t.Fatalf("GetFrameContentSize: %v", err)
	}
	if !known || size != 1 {
		t.Fatalf("content size = %d (known=%v), want 1 (known)", size, known)
	}
	decompressed, err := Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Fatalf("round trip mismatch: got %q, want %q", decompressed, data)
	}
}

// TestFourStreamLiteralsExactMultipleOfFour and
// TestFourStreamLiteralsOneOverMultipleOfFour exercise the 4-stream
// literals segmenter's rounding at and just past an exact quarter split.
func TestFourStreamLiteralsExactMultipleOfFour(t *testing.T) {
	lits := skewedBytes(11, huffman4StreamMinSize+4*200, 24)
	roundTripLiteralsSection(t, lits)
}

func TestFourStreamLiteralsOneOverMultipleOfFour(t *testing.T) {
	lits := skewedBytes(12, huffman4StreamMinSize+4*200+1, 24)
	roundTripLiteralsSection(t, lits)
}

func roundTripLiteralsSection(t *testing.T, lits []byte) {
	t.Helper()
	section, _, err := encodeLiteralsSection(lits, nil, maxHuffmanTableLog)
	if err != nil {
		t.Fatalf("encodeLiteralsSection: %v", err)
	}
	decoded, consumed, err := decodeLiteralsSection(section, nil)
	if err != nil {
		t.Fatalf("decodeLiteralsSection: %v", err)
	}
	if consumed != len(section) {
		t.Fatalf("consumed %d, want %d", consumed, len(section))
	}
	if !bytes.Equal(decoded.bytes, lits) {
		t.Fatal("literals round trip mismatch")
	}
}

// TestFrameExactWindowSizeIsSingleSegment checks that a frame whose
// content is exactly the chosen window size omits the window descriptor
// byte (Single_Segment_flag set) rather than carrying a redundant one.
func TestFrameExactWindowSizeIsSingleSegment(t *testing.T) {
	params := ParametersForLevel(DefaultCompressionLevel, 1<<16)
	windowSize := int64(1) << uint(params.WindowLog)
	data := make([]byte, windowSize)
	for i := range data {
		data[i] = byte(i)
	}

	var dst []byte
	compressed, err := CompressFrame(dst, data, params, true, nil)
	if err != nil {
		t.Fatalf("CompressFrame: %v", err)
	}

	descriptor := compressed[4]
	if descriptor&fhdSingleSegmentFlag == 0 {
		t.Fatalf("descriptor byte %#x: Single_Segment_flag not set", descriptor)
	}

	info, err := Inspect(compressed)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.WindowSize != windowSize {
		t.Fatalf("WindowSize = %d, want %d", info.WindowSize, windowSize)
	}
	if !info.HasContentSize || info.ContentSize != windowSize {
		t.Fatalf("ContentSize = %d (known=%v), want %d (known)", info.ContentSize, info.HasContentSize, windowSize)
	}

	decompressed, err := Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Fatal("round trip mismatch")
	}
}
