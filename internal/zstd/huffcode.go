package zstd

import "encoding/binary"

// Huffman-coded literals come in two shapes: a single bit stream for
// small literal sections, or four independent streams (each decodable
// in parallel) prefixed by a 3x u16 jump table once the section is large
// enough to be worth it.
const huffman4StreamMinSize = 256

// encodeHuffman1Stream writes literals through a single reversed bit
// stream, one symbol at a time, in reverse order so the eventual
// forward decode recovers the original order.
func encodeHuffman1Stream(t *huffmanTable, literals []byte) []byte {
	w := newBitWriter()
	for i := len(literals) - 1; i >= 0; i-- {
		s := literals[i]
		w.addBits(uint64(t.code[s]), uint(t.nbBits[s]))
	}
	return w.close()
}

func decodeHuffman1Stream(t *huffmanTable, buf []byte, literalCount int) ([]byte, error) {
	r, err := newBitReader(buf, 0, len(buf))
	if err != nil {
		return nil, err
	}
	out := make([]byte, literalCount)
	for i := 0; i < literalCount; i++ {
		sym, nbBits, err := huffmanDecodeOne(t, r)
		if err != nil {
			return nil, err
		}
		out[i] = sym
		r.consume(uint(nbBits))
		if i < literalCount-1 {
			if _, err := r.reload(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// huffmanDecodeOne finds the symbol whose code is a prefix of the next
// maxBits peeked bits. A canonical Huffman code is looked up by
// building, once per table, a maxBits-wide array mapping every possible
// bit pattern to (symbol, length); callers needing high throughput would
// build that array once, but the per-symbol linear probe below is the
// same algorithm internal/sit's canonical decoder uses for its much
// smaller 8-bit alphabet, generalized to Zstd's up-to-256-symbol,
// up-to-11-bit tables.
func huffmanDecodeOne(t *huffmanTable, r *bitReader) (byte, int, error) {
	peeked := r.peek(uint(t.maxBits))
	for s := 0; s <= maxHuffmanSymbol; s++ {
		nbBits := t.nbBits[s]
		if nbBits == 0 {
			continue
		}
		shift := uint(t.maxBits) - uint(nbBits)
		if peeked>>shift == uint64(t.code[s]) {
			return byte(s), int(nbBits), nil
		}
	}
	return 0, 0, corruptf(0, "no Huffman code matches bit pattern")
}

// encodeHuffman4Streams splits literals into four parts sized
// ceil(total/4) each except the last, encodes each independently, and
// prefixes a 3xu16 jump table giving the compressed size of streams 1-3
// (stream 4's size is implied by the remaining section length).
func encodeHuffman4Streams(t *huffmanTable, literals []byte) []byte {
	n := len(literals)
	partSize := (n + 3) / 4
	var parts [4][]byte
	for i := 0; i < 4; i++ {
		lo := i * partSize
		hi := lo + partSize
		if lo > n {
			lo = n
		}
		if hi > n {
			hi = n
		}
		parts[i] = literals[lo:hi]
	}

	var streams [4][]byte
	for i, p := range parts {
		if len(p) == 0 {
			streams[i] = nil
			continue
		}
		streams[i] = encodeHuffman1Stream(t, p)
	}

	out := make([]byte, 6)
	binary.LittleEndian.PutUint16(out[0:2], uint16(len(streams[0])))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(streams[1])))
	binary.LittleEndian.PutUint16(out[4:6], uint16(len(streams[2])))
	for _, s := range streams {
		out = append(out, s...)
	}
	return out
}

func decodeHuffman4Streams(t *huffmanTable, buf []byte, literalCount int) ([]byte, error) {
	if len(buf) < 6 {
		return nil, corruptf(0, "truncated 4-stream Huffman jump table")
	}
	size1 := int(binary.LittleEndian.Uint16(buf[0:2]))
	size2 := int(binary.LittleEndian.Uint16(buf[2:4]))
	size3 := int(binary.LittleEndian.Uint16(buf[4:6]))
	body := buf[6:]
	if size1+size2+size3 > len(body) {
		return nil, corruptf(0, "4-stream Huffman jump table overruns buffer")
	}
	s1 := body[:size1]
	s2 := body[size1 : size1+size2]
	s3 := body[size1+size2 : size1+size2+size3]
	s4 := body[size1+size2+size3:]

	partSize := (literalCount + 3) / 4
	counts := [4]int{partSize, partSize, partSize, literalCount - 3*partSize}
	if counts[3] < 0 {
		return nil, corruptf(0, "4-stream Huffman literal count too small")
	}

	out := make([]byte, 0, literalCount)
	for i, s := range [4][]byte{s1, s2, s3, s4} {
		if counts[i] == 0 {
			continue
		}
		dec, err := decodeHuffman1Stream(t, s, counts[i])
		if err != nil {
			return nil, err
		}
		out = append(out, dec...)
	}
	return out, nil
}
