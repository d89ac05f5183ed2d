package zstd

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestHuffmanTableRoundTripSmallAlphabet(t *testing.T) {
	counts := make([]int, 256)
	counts['a'] = 100
	counts['b'] = 50
	counts['c'] = 25
	counts['d'] = 10
	counts['e'] = 1

	table, err := buildHuffmanTable(counts, 255, maxHuffmanTableLog)
	if err != nil {
		t.Fatalf("buildHuffmanTable: %v", err)
	}

	weights := weightsFromTable(table, 255)
	rebuilt, err := huffmanTableFromWeights(weights[:255])
	if err != nil {
		t.Fatalf("huffmanTableFromWeights: %v", err)
	}

	for _, sym := range []byte("abcde") {
		if table.nbBits[sym] != rebuilt.nbBits[sym] {
			t.Errorf("symbol %q: nbBits %d vs rebuilt %d", sym, table.nbBits[sym], rebuilt.nbBits[sym])
		}
	}
}

func TestHuffmanWeightHeaderRoundTrip(t *testing.T) {
	counts := make([]int, 256)
	rng := rand.New(rand.NewSource(11))
	for i := range counts {
		if rng.Intn(3) == 0 {
			counts[i] = 1 + rng.Intn(500)
		}
	}
	table, err := buildHuffmanTable(counts, 255, maxHuffmanTableLog)
	if err != nil {
		t.Fatalf("buildHuffmanTable: %v", err)
	}

	encoded := serializeHuffmanTable(table, 255)
	decoded, consumed, err := parseHuffmanTable(encoded, 255)
	if err != nil {
		t.Fatalf("parseHuffmanTable: %v", err)
	}
	if consumed != len(encoded) {
		t.Errorf("consumed %d bytes, encoded is %d bytes", consumed, len(encoded))
	}
	for s := 0; s <= 255; s++ {
		if table.nbBits[s] != decoded.nbBits[s] {
			t.Errorf("symbol %d: nbBits %d, want %d", s, decoded.nbBits[s], table.nbBits[s])
		}
	}
}

func TestHuffman1StreamRoundTrip(t *testing.T) {
	lits := []byte("the quick brown fox jumps over the lazy dog the quick brown fox")
	counts, _ := histogram(lits, 255)
	table, err := buildHuffmanTable(counts, 255, maxHuffmanTableLog)
	if err != nil {
		t.Fatalf("buildHuffmanTable: %v", err)
	}

	encoded := encodeHuffman1Stream(table, lits)
	decoded, err := decodeHuffman1Stream(table, encoded, len(lits))
	if err != nil {
		t.Fatalf("decodeHuffman1Stream: %v", err)
	}
	if !bytes.Equal(decoded, lits) {
		t.Errorf("got %q, want %q", decoded, lits)
	}
}

func TestHuffman4StreamRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	lits := make([]byte, 2000)
	for i := range lits {
		lits[i] = byte('a' + rng.Intn(6))
	}
	counts, _ := histogram(lits, 255)
	table, err := buildHuffmanTable(counts, 255, maxHuffmanTableLog)
	if err != nil {
		t.Fatalf("buildHuffmanTable: %v", err)
	}

	encoded := encodeHuffman4Streams(table, lits)
	decoded, err := decodeHuffman4Streams(table, encoded, len(lits))
	if err != nil {
		t.Fatalf("decodeHuffman4Streams: %v", err)
	}
	if !bytes.Equal(decoded, lits) {
		t.Errorf("4-stream round trip mismatch (%d bytes)", len(lits))
	}
}
