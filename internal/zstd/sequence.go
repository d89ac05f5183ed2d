package zstd

import "math/bits"

// sequenceStore accumulates one block's literals and (literalLength,
// matchLength, offset) triples before they are laid out on the wire.
// Offsets are stored as the RFC 8478 "offset value":
// actual_offset+3 for a fresh offset, or 1/2/3 for a reference into the
// 3-entry repeat-offset history, with the literalLength==0 special case
// already folded in by encodeOffsetValue before addSequence is called.
type sequenceStore struct {
	literals []byte
	litLen   []uint32
	matchLen []uint32
	offset   []uint32
}

func (s *sequenceStore) addLiteralsOnly(lits []byte) {
	s.literals = append(s.literals, lits...)
}

func (s *sequenceStore) addSequence(lits []byte, litLen, matchLen int, offsetValue uint32) {
	s.literals = append(s.literals, lits...)
	s.litLen = append(s.litLen, uint32(litLen))
	s.matchLen = append(s.matchLen, uint32(matchLen))
	s.offset = append(s.offset, offsetValue)
}

func (s *sequenceStore) numSequences() int { return len(s.litLen) }

// encodeOffsetValue converts a real match offset plus the repeat-offset
// state into the wire's offset value, updating the repeat history: a
// literalLength of 0 shifts which repeat slot index 1 refers to.
func encodeOffsetValue(rep *[3]int32, offset int32, litLen int) uint32 {
	if litLen == 0 {
		switch {
		case offset == rep[1]:
			rep[0], rep[1] = rep[1], rep[0]
			return 1
		case offset == rep[2]:
			rep[2], rep[1], rep[0] = rep[1], rep[0], rep[2]
			return 2
		case offset == rep[0]-1:
			rep[2], rep[1], rep[0] = rep[1], rep[0], offset
			return 3
		default:
			rep[2], rep[1], rep[0] = rep[1], rep[0], offset
			return uint32(offset) + 3
		}
	}
	switch offset {
	case rep[0]:
		return 1
	case rep[1]:
		rep[1], rep[0] = rep[0], rep[1]
		return 2
	case rep[2]:
		rep[2], rep[1], rep[0] = rep[1], rep[0], rep[2]
		return 3
	default:
		rep[2], rep[1], rep[0] = rep[1], rep[0], offset
		return uint32(offset) + 3
	}
}

// decodeOffsetValue is the decode-side mirror: given the value read off
// the wire and the current literal length, resolve the actual offset
// and update the repeat-offset history.
func decodeOffsetValue(rep *[3]int32, value uint32, litLen int) int32 {
	if litLen == 0 {
		switch value {
		case 1:
			rep[0], rep[1] = rep[1], rep[0]
			return rep[0]
		case 2:
			offset := rep[2]
			rep[2], rep[1], rep[0] = rep[1], rep[0], offset
			return offset
		case 3:
			offset := rep[0] - 1
			rep[2], rep[1], rep[0] = rep[1], rep[0], offset
			return offset
		default:
			offset := int32(value) - 3
			rep[2], rep[1], rep[0] = rep[1], rep[0], offset
			return offset
		}
	}
	switch value {
	case 1:
		return rep[0]
	case 2:
		offset := rep[1]
		rep[1], rep[0] = rep[0], rep[1]
		return offset
	case 3:
		offset := rep[2]
		rep[2], rep[1], rep[0] = rep[1], rep[0], offset
		return offset
	default:
		offset := int32(value) - 3
		rep[2], rep[1], rep[0] = rep[1], rep[0], offset
		return offset
	}
}

// Code/extra-bits conversion tables, RFC 8478 §3.1.1.3.2.1.

var literalLengthBaseline = [...]uint32{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	16, 18, 20, 22, 24, 28, 32, 40, 48, 64, 128, 256, 512, 1024, 2048, 4096,
	8192, 16384, 32768, 65536,
}
var literalLengthExtraBits = [...]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 3, 3, 4, 6, 7, 8, 9, 10, 11, 12,
	13, 14, 15, 16,
}

var matchLengthBaseline = [...]uint32{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34,
	35, 37, 39, 41, 43, 47, 51, 59, 67, 83, 99, 131, 259, 515, 1027, 2051, 4099, 8195, 16387, 32771, 65539,
}
var matchLengthExtraBits = [...]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 3, 3, 4, 4, 5, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
}

func literalLengthCode(ll int) (code int, extra uint32) {
	if ll < 16 {
		return ll, 0
	}
	for c := len(literalLengthBaseline) - 1; c >= 16; c-- {
		if uint32(ll) >= literalLengthBaseline[c] {
			return c, uint32(ll) - literalLengthBaseline[c]
		}
	}
	return 15, 0
}

func matchLengthCode(ml int) (code int, extra uint32) {
	if ml < 35 {
		return ml - 3, 0
	}
	for c := len(matchLengthBaseline) - 1; c >= 32; c-- {
		if uint32(ml) >= matchLengthBaseline[c] {
			return c, uint32(ml) - matchLengthBaseline[c]
		}
	}
	return 31, 0
}

func offsetCode(value uint32) (code int, extra uint32) {
	if value == 0 {
		return 0, 0
	}
	code = bits.Len32(value) - 1
	return code, value - (1 << uint(code))
}

// seqFieldMode is one of the four Sequences_Compression_Modes values
// (RFC 8478 §3.1.1.3.2.1).
type seqFieldMode int

const (
	seqModePredefined seqFieldMode = iota
	seqModeRLE
	seqModeFSECompressed
	seqModeRepeat
)

// seqFieldTables bundles what's needed to encode or decode one of the
// three sequence fields (literal length, match length, offset code).
type seqFieldTables struct {
	mode   seqFieldMode
	rle    uint8
	enc    *fseEncTable
	dec    *fseTable
	header []byte // normalized-count header bytes, for COMPRESSED mode
}

// chooseFieldTables decides, from a field's symbol stream, whether to
// send it RLE, predefined, or a freshly built FSE table. last, when
// non-nil, is the field's table from the previous block in this frame;
// REPEAT mode is used when the freshly built table would be identical
// to it, preferring reuse when it doesn't cost accuracy.
func chooseFieldTables(codes []uint8, maxSymbol int, defaultDist []int, defaultLog int, maxTableLog int, last *seqFieldTables) *seqFieldTables {
	if len(codes) == 0 {
		return &seqFieldTables{mode: seqModePredefined, dec: defaultDecodeTable(defaultDist, defaultLog), enc: defaultEncodeTable(defaultDist, defaultLog)}
	}

	allSame := true
	for _, c := range codes {
		if c != codes[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return &seqFieldTables{
			mode: seqModeRLE,
			rle:  codes[0],
			enc:  rleFSEEncodeTable(codes[0], maxSymbol),
			dec:  rleFSEDecodeTable(codes[0]),
		}
	}

	counts, actualMax := histogram(codes, maxSymbol)
	tableLog := optimalFSETableLog(len(codes), actualMax, maxTableLog)
	normalized, err := normalizeCounts(counts, actualMax, tableLog, len(codes))
	if err != nil {
		return &seqFieldTables{mode: seqModePredefined, dec: defaultDecodeTable(defaultDist, defaultLog), enc: defaultEncodeTable(defaultDist, defaultLog)}
	}
	enc, err := buildFSEEncodeTable(normalized, actualMax, tableLog)
	if err != nil {
		return &seqFieldTables{mode: seqModePredefined, dec: defaultDecodeTable(defaultDist, defaultLog), enc: defaultEncodeTable(defaultDist, defaultLog)}
	}
	dec, err := buildFSEDecodeTable(normalized, actualMax, tableLog)
	if err != nil {
		return &seqFieldTables{mode: seqModePredefined, dec: defaultDecodeTable(defaultDist, defaultLog), enc: defaultEncodeTable(defaultDist, defaultLog)}
	}
	header := writeNormalizedCounts(normalized, actualMax, tableLog)

	if last != nil && last.mode != seqModePredefined && last.mode != seqModeRLE && sameFSETable(last.dec, dec) {
		return &seqFieldTables{mode: seqModeRepeat, enc: last.enc, dec: last.dec}
	}

	return &seqFieldTables{mode: seqModeFSECompressed, enc: enc, dec: dec, header: header}
}

func sameFSETable(a, b *fseTable) bool {
	if a == nil || b == nil || a.tableLog != b.tableLog {
		return false
	}
	for i := range a.symbol {
		if a.symbol[i] != b.symbol[i] || a.nbBits[i] != b.nbBits[i] || a.newState[i] != b.newState[i] {
			return false
		}
	}
	return true
}

// encodeSequencesSection lays out the Sequences_Section: sequence count,
// compression-modes byte, the three field headers (for COMPRESSED
// fields), then one combined bit stream holding, per sequence in
// reverse order, the offset/match-length/literal-length extra bits
// followed by their FSE-coded symbols.
func encodeSequencesSection(store *sequenceStore, llLast, mlLast, ofLast *seqFieldTables) (out []byte, llUsed, mlUsed, ofUsed *seqFieldTables, err error) {
	n := store.numSequences()
	llCodes := make([]uint8, n)
	mlCodes := make([]uint8, n)
	ofCodes := make([]uint8, n)
	llExtra := make([]uint32, n)
	mlExtra := make([]uint32, n)
	ofExtra := make([]uint32, n)
	for i := 0; i < n; i++ {
		c, e := literalLengthCode(int(store.litLen[i]))
		llCodes[i], llExtra[i] = uint8(c), e
		c, e = matchLengthCode(int(store.matchLen[i]))
		mlCodes[i], mlExtra[i] = uint8(c), e
		c, e = offsetCode(store.offset[i])
		ofCodes[i], ofExtra[i] = uint8(c), e
	}

	llUsed = chooseFieldTables(llCodes, maxLiteralsLengthSymbol, defaultLiteralLengthDistribution, defaultLiteralLengthTableLog, literalsLengthTableLog, llLast)
	mlUsed = chooseFieldTables(mlCodes, maxMatchLengthSymbol, defaultMatchLengthDistribution, defaultMatchLengthTableLog, matchLengthTableLog, mlLast)

	maxOffsetSymbol := 0
	for _, c := range ofCodes {
		if int(c) > maxOffsetSymbol {
			maxOffsetSymbol = int(c)
		}
	}
	if maxOffsetSymbol < defaultMaxOffsetCodeSymbol {
		maxOffsetSymbol = defaultMaxOffsetCodeSymbol
	}
	ofUsed = chooseFieldTables(ofCodes, maxOffsetSymbol, defaultOffsetCodeDistribution, defaultOffsetCodeTableLog, offsetTableLog, ofLast)

	header := make([]byte, 0, 16)
	header = append(header, encodeSequenceCount(n)...)
	header = append(header, seqModesByte(llUsed.mode, ofUsed.mode, mlUsed.mode))
	if llUsed.mode == seqModeRLE {
		header = append(header, llUsed.rle)
	} else if llUsed.mode == seqModeFSECompressed {
		header = append(header, llUsed.header...)
	}
	if ofUsed.mode == seqModeRLE {
		header = append(header, ofUsed.rle)
	} else if ofUsed.mode == seqModeFSECompressed {
		header = append(header, ofUsed.header...)
	}
	if mlUsed.mode == seqModeRLE {
		header = append(header, mlUsed.rle)
	} else if mlUsed.mode == seqModeFSECompressed {
		header = append(header, mlUsed.header...)
	}

	if n == 0 {
		return header, llUsed, mlUsed, ofUsed, nil
	}

	w := newBitWriter()
	var llState, mlState, ofState fseCState
	llState.init(llUsed.enc, llCodes[n-1])
	mlState.init(mlUsed.enc, mlCodes[n-1])
	ofState.init(ofUsed.enc, ofCodes[n-1])
	w.addBits(uint64(llExtra[n-1]), uint(literalLengthExtraBits[llCodes[n-1]]))
	w.addBits(uint64(mlExtra[n-1]), uint(matchLengthExtraBits[mlCodes[n-1]]))
	w.addBits(uint64(ofExtra[n-1]), uint(ofCodes[n-1]))

	for i := n - 2; i >= 0; i-- {
		ofState.encode(w, ofUsed.enc, ofCodes[i])
		mlState.encode(w, mlUsed.enc, mlCodes[i])
		llState.encode(w, llUsed.enc, llCodes[i])
		w.addBits(uint64(llExtra[i]), uint(literalLengthExtraBits[llCodes[i]]))
		w.addBits(uint64(mlExtra[i]), uint(matchLengthExtraBits[mlCodes[i]]))
		w.addBits(uint64(ofExtra[i]), uint(ofCodes[i]))
	}
	llState.flush(w, llUsed.enc)
	mlState.flush(w, mlUsed.enc)
	ofState.flush(w, ofUsed.enc)
	payload := w.close()

	out = append(header, payload...)
	return out, llUsed, mlUsed, ofUsed, nil
}

func seqModesByte(ll, of, ml seqFieldMode) byte {
	return byte(ll)<<6 | byte(of)<<4 | byte(ml)<<2
}

func encodeSequenceCount(n int) []byte {
	switch {
	case n < 128:
		return []byte{byte(n)}
	case n < longNumberOfSequences:
		return []byte{byte((n >> 8) + 128), byte(n)}
	default:
		rest := n - longNumberOfSequences
		return []byte{255, byte(rest), byte(rest >> 8)}
	}
}

func decodeSequenceCount(buf []byte) (n int, consumed int, err error) {
	if len(buf) == 0 {
		return 0, 0, corruptf(0, "truncated sequence count")
	}
	b0 := buf[0]
	switch {
	case b0 < 128:
		return int(b0), 1, nil
	case b0 < 255:
		if len(buf) < 2 {
			return 0, 0, corruptf(0, "truncated sequence count")
		}
		return (int(b0)-128)<<8 + int(buf[1]), 2, nil
	default:
		if len(buf) < 3 {
			return 0, 0, corruptf(0, "truncated sequence count")
		}
		return longNumberOfSequences + int(buf[1]) + int(buf[2])<<8, 3, nil
	}
}

// decodeSequencesSection is the mirror of encodeSequencesSection.
func decodeSequencesSection(buf []byte, llLast, mlLast, ofLast *seqFieldTables) (store *sequenceStore, llUsed, mlUsed, ofUsed *seqFieldTables, err error) {
	n, off, err := decodeSequenceCount(buf)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if n == 0 {
		return &sequenceStore{}, llLast, mlLast, ofLast, nil
	}
	if off >= len(buf) {
		return nil, nil, nil, nil, corruptf(off, "truncated sequences section")
	}
	modesByte := buf[off]
	off++
	llMode := seqFieldMode((modesByte >> 6) & 3)
	ofMode := seqFieldMode((modesByte >> 4) & 3)
	mlMode := seqFieldMode((modesByte >> 2) & 3)

	llUsed, off, err = resolveFieldTable(buf, off, llMode, maxLiteralsLengthSymbol, defaultLiteralLengthDistribution, defaultLiteralLengthTableLog, literalsLengthTableLog, llLast)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	ofUsed, off, err = resolveFieldTable(buf, off, ofMode, defaultMaxOffsetCodeSymbol, defaultOffsetCodeDistribution, defaultOffsetCodeTableLog, offsetTableLog, ofLast)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	mlUsed, off, err = resolveFieldTable(buf, off, mlMode, maxMatchLengthSymbol, defaultMatchLengthDistribution, defaultMatchLengthTableLog, matchLengthTableLog, mlLast)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	r, err := newBitReader(buf, off, len(buf))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	llCodes := make([]uint8, n)
	mlCodes := make([]uint8, n)
	ofCodes := make([]uint8, n)
	llExtra := make([]uint32, n)
	mlExtra := make([]uint32, n)
	ofExtra := make([]uint32, n)

	// The bit stream is read back-to-front relative to how it was
	// written, so the call order here is the exact reverse of
	// encodeSequencesSection's write order: states were flushed ll, ml,
	// of last, so they're read back of, ml, ll first, and that first
	// read yields sequence index 0, not n-1. The encoder's reverse-order
	// pass over sequences ends on index 0, and that's the state the
	// flush captures.
	var llState, mlState, ofState fseDState
	ofState.init(r, ofUsed.dec)
	mlState.init(r, mlUsed.dec)
	llState.init(r, llUsed.dec)

	llCodes[0] = llState.peekSymbol(llUsed.dec)
	mlCodes[0] = mlState.peekSymbol(mlUsed.dec)
	ofCodes[0] = ofState.peekSymbol(ofUsed.dec)
	ofExtra[0] = uint32(r.peekAndConsume(uint(ofCodes[0])))
	mlExtra[0] = uint32(r.peekAndConsume(uint(matchLengthExtraBits[mlCodes[0]])))
	llExtra[0] = uint32(r.peekAndConsume(uint(literalLengthExtraBits[llCodes[0]])))

	for i := 1; i < n; i++ {
		llState.update(r, llUsed.dec)
		mlState.update(r, mlUsed.dec)
		ofState.update(r, ofUsed.dec)
		llCodes[i] = llState.peekSymbol(llUsed.dec)
		mlCodes[i] = mlState.peekSymbol(mlUsed.dec)
		ofCodes[i] = ofState.peekSymbol(ofUsed.dec)
		ofExtra[i] = uint32(r.peekAndConsume(uint(ofCodes[i])))
		mlExtra[i] = uint32(r.peekAndConsume(uint(matchLengthExtraBits[mlCodes[i]])))
		llExtra[i] = uint32(r.peekAndConsume(uint(literalLengthExtraBits[llCodes[i]])))
	}

	store = &sequenceStore{
		litLen:   make([]uint32, n),
		matchLen: make([]uint32, n),
		offset:   make([]uint32, n),
	}
	for i := 0; i < n; i++ {
		store.litLen[i] = literalLengthBaseline[llCodes[i]] + llExtra[i]
		store.matchLen[i] = matchLengthBaseline[mlCodes[i]] + mlExtra[i]
		store.offset[i] = (uint32(1)<<uint(ofCodes[i]) | ofExtra[i])
	}
	return store, llUsed, mlUsed, ofUsed, nil
}

func resolveFieldTable(buf []byte, off int, mode seqFieldMode, maxSymbol int, defaultDist []int, defaultLog, maxTableLog int, last *seqFieldTables) (*seqFieldTables, int, error) {
	switch mode {
	case seqModePredefined:
		return &seqFieldTables{mode: mode, dec: defaultDecodeTable(defaultDist, defaultLog)}, off, nil
	case seqModeRLE:
		if off >= len(buf) {
			return nil, 0, corruptf(off, "truncated RLE sequence field")
		}
		sym := buf[off]
		return &seqFieldTables{mode: mode, rle: sym, dec: rleFSEDecodeTable(sym)}, off + 1, nil
	case seqModeRepeat:
		if last == nil {
			return nil, 0, corruptf(off, "repeat mode with no prior table in this frame")
		}
		return last, off, nil
	case seqModeFSECompressed:
		normalized, tableLog, consumed, err := readNormalizedCounts(buf[off:], maxSymbol, maxTableLog)
		if err != nil {
			return nil, 0, err
		}
		dec, err := buildFSEDecodeTable(normalized, len(normalized)-1, tableLog)
		if err != nil {
			return nil, 0, err
		}
		return &seqFieldTables{mode: mode, dec: dec}, off + consumed, nil
	default:
		return nil, 0, corruptf(off, "invalid sequence field mode")
	}
}
