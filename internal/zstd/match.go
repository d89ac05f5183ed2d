package zstd

// Double-fast match finder: two hash tables indexed by rolling hashes of
// different widths trade recall for speed. The long table (hashLog
// bits, keyed on a wide sample of input) catches longer matches at
// greater distances; the short table (chainLog bits, keyed on the
// minimum match length) catches nearby short matches cheaply. Both
// tables store a single absolute input position per bucket and no
// chain list, hence "fast" rather than "better"/"btultra" strategies.
type matchEngine struct {
	params CompressionParameters

	longTable  []int32 // hashLog bits
	shortTable []int32 // chainLog bits

	longMask  uint32
	shortMask uint32

	repOffsets [3]int32
}

func newMatchEngine(p CompressionParameters) *matchEngine {
	m := &matchEngine{}
	m.reset(p)
	return m
}

// reset prepares m for a fresh frame under params p. It reallocates the
// hash/chain tables only when their required size changed (a smaller or
// larger window than the previous call); otherwise it reuses the
// existing backing arrays, just clearing every slot to -1. This is what
// lets a Session reuse one matchEngine across many Compress calls
// without a fresh pair of allocations each time.
func (m *matchEngine) reset(p CompressionParameters) {
	m.params = p
	m.longMask = 1<<uint(p.HashLog) - 1
	m.shortMask = 1<<uint(p.ChainLog) - 1
	m.repOffsets = [3]int32{1, 4, 8}

	longSize := 1 << uint(p.HashLog)
	if len(m.longTable) != longSize {
		m.longTable = make([]int32, longSize)
	}
	for i := range m.longTable {
		m.longTable[i] = -1
	}

	shortSize := 1 << uint(p.ChainLog)
	if len(m.shortTable) != shortSize {
		m.shortTable = make([]int32, shortSize)
	}
	for i := range m.shortTable {
		m.shortTable[i] = -1
	}
}

func hash64(v uint64, bits int) uint32 {
	const prime64 = 0x9E3779B185EBCA87
	return uint32((v * prime64) >> (64 - uint(bits)))
}

func readLE64(src []byte, i int) uint64 {
	var v uint64
	for b := 0; b < 8 && i+b < len(src); b++ {
		v |= uint64(src[i+b]) << (8 * uint(b))
	}
	return v
}

func readLE32(src []byte, i int) uint32 {
	var v uint32
	for b := 0; b < 4 && i+b < len(src); b++ {
		v |= uint32(src[i+b]) << (8 * uint(b))
	}
	return v
}

func (m *matchEngine) longHash(src []byte, i int) uint32 {
	return hash64(readLE64(src, i), m.params.HashLog) & m.longMask
}

func (m *matchEngine) shortHash(src []byte, i int) uint32 {
	k := m.params.SearchLength
	if k < 4 {
		k = 4
	}
	v := readLE64(src, i) & (uint64(1)<<(8*uint(k)) - 1)
	return hash64(v, m.params.ChainLog) & m.shortMask
}

func matchLength(a, b []byte, aPos, bPos, limit int) int {
	n := 0
	for aPos+n < limit && bPos+n < len(b) && a[aPos+n] == b[bPos+n] {
		n++
	}
	return n
}

// backwardExtend grows a match toward lower addresses while the bytes on
// both sides agree, stopping at lowLimit (the start of the current
// literal run: the match may not eat into the previous sequence).
func backwardExtend(src []byte, aPos, bPos, lowLimit int) int {
	n := 0
	for aPos-n-1 >= lowLimit && bPos-n-1 >= 0 && src[aPos-n-1] == src[bPos-n-1] {
		n++
	}
	return n
}

const minMatchConst = 3

// searchStrength controls the skip-ahead acceleration: the longer a
// search has gone without finding a match, the further the next probe
// jumps, trading thoroughness for speed on incompressible runs.
const searchStrength = 8

// segment runs the double-fast search over src[pos:end] and returns the
// resulting sequence store. Each iteration probes, in order: the
// standing repeat offset (offset_1) for a cheap 4-byte hit, the long
// table for an 8-byte hit, and the short table for a 4-byte hit with a
// one-byte-ahead lookahead into the long table in case a longer match
// starts right next door. A miss accelerates the next probe position
// instead of stepping by one.
func (m *matchEngine) segment(src []byte, pos, end int) *sequenceStore {
	store := &sequenceStore{}
	if end-pos < 8 {
		if pos < end {
			store.addLiteralsOnly(src[pos:end])
		}
		return store
	}

	anchor := pos
	ip := pos
	ilimit := end - 8

	for ip <= ilimit {
		current := ip
		var offset int32
		var mLength int
		matched := false

		if ip > anchor && m.repOffsets[0] > 0 {
			repPos := ip + 1 - int(m.repOffsets[0])
			if repPos >= pos && readLE32(src, repPos) == readLE32(src, ip+1) {
				mLength = 4 + matchLength(src, src, ip+1+4, repPos+4, end)
				offset = m.repOffsets[0]
				ip++
				matched = true
			}
		}

		longH := m.longHash(src, current)
		shortH := m.shortHash(src, current)
		longCandidate := int(m.longTable[longH])
		shortCandidate := int(m.shortTable[shortH])
		m.longTable[longH] = int32(current)
		m.shortTable[shortH] = int32(current)

		if !matched && longCandidate >= pos && readLE64(src, longCandidate) == readLE64(src, ip) {
			mLength = 8 + matchLength(src, src, ip+8, longCandidate+8, end)
			back := backwardExtend(src, ip, longCandidate, anchor)
			ip -= back
			longCandidate -= back
			mLength += back
			offset = int32(ip - longCandidate)
			matched = true
		}

		if !matched && shortCandidate >= pos && readLE32(src, shortCandidate) == readLE32(src, ip) {
			aheadH := m.longHash(src, current+1)
			aheadCandidate := int(m.longTable[aheadH])
			m.longTable[aheadH] = int32(current + 1)

			if aheadCandidate >= pos && current+1+8 <= end && readLE64(src, aheadCandidate) == readLE64(src, current+1) {
				mLength = 8 + matchLength(src, src, current+1+8, aheadCandidate+8, end)
				ip = current + 1
				back := backwardExtend(src, ip, aheadCandidate, anchor)
				ip -= back
				aheadCandidate -= back
				mLength += back
				offset = int32(ip - aheadCandidate)
			} else {
				mLength = 4 + matchLength(src, src, ip+4, shortCandidate+4, end)
				back := backwardExtend(src, ip, shortCandidate, anchor)
				ip -= back
				shortCandidate -= back
				mLength += back
				offset = int32(ip - shortCandidate)
			}
			matched = true
		}

		if !matched || mLength < minMatchConst {
			step := ((ip - anchor) >> searchStrength) + 1
			ip = current + step
			continue
		}

		litLen := ip - anchor
		value := encodeOffsetValue(&m.repOffsets, offset, litLen)
		store.addSequence(src[anchor:ip], litLen, mLength, value)

		ip += mLength
		anchor = ip

		if ip <= ilimit {
			m.longTable[m.longHash(src, current+2)] = int32(current + 2)
			m.shortTable[m.shortHash(src, current+2)] = int32(current + 2)
			m.longTable[m.longHash(src, ip-2)] = int32(ip - 2)
			m.shortTable[m.shortHash(src, ip-2)] = int32(ip - 2)
		}
	}

	if anchor < end {
		store.addLiteralsOnly(src[anchor:end])
	}
	return store
}
