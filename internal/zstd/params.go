package zstd

// Wire-format constants from RFC 8478, used verbatim.
const (
	magicNumber       uint32 = 0xFD2FB528
	magicNumberLegacy uint32 = 0xFD2FB527 // zstd v0.7, refused

	maxBlockSize = 131072
	minWindowLog = 10
	maxWindowLog = 31

	// This implementation's own restriction: windows larger than 8 MiB
	// are out of scope.
	maxSupportedWindowLog = 23
	maxSupportedWindowSiz = 1 << maxSupportedWindowLog

	literalsLengthTableLog       = 9
	matchLengthTableLog          = 9
	offsetTableLog               = 8
	maxLiteralsLengthSymbol      = 35
	maxMatchLengthSymbol         = 52
	defaultMaxOffsetCodeSymbol   = 28
	maxHuffmanTableLog           = 11
	maxFSETableLogForHuffWeights = 6
	longNumberOfSequences        = 0x7F00

	minMatch = 3
	repMove  = 3 // added to offsetCode>3 encodings to make room for the 3 repeat codes

	minFSETableLog = 5

	frameHeaderSizeMin = 2 // magic excluded: descriptor byte + a window byte or a 1-byte content size
)

// strategy tags a block-compression policy. Only stratDoubleFast is
// implemented; every level of this implementation commits to it, but the
// field is carried through CompressionParameters so a future
// strategy can be plugged in as another implementation of the same
// "compress one block" capability without touching the frame driver.
type strategy uint8

const (
	stratFast strategy = iota
	stratDoubleFast
	stratGreedy
	stratLazy
	stratLazy2
	stratBTLazy2
	stratBTOpt
	stratBTUltra
)

// CompressionParameters is the immutable, per-call configuration of the
// match engine and block segmenter. It is entirely derived from the
// compression level and input size; there is no external configuration
// file or environment layer.
type CompressionParameters struct {
	Strategy      strategy
	WindowLog     int
	ChainLog      int
	HashLog       int
	SearchLog     int
	SearchLength  int
	TargetLength  int
}

// BlockSize is min(1<<17, 1<<WindowLog).
func (p CompressionParameters) BlockSize() int {
	bs := 1 << p.WindowLog
	if bs > maxBlockSize {
		bs = maxBlockSize
	}
	return bs
}

// DefaultCompressionLevel is level 3.
const DefaultCompressionLevel = 3

const MinCompressionLevel = 1
const MaxCompressionLevel = 9

// levelTable is the deterministic level -> parameters mapping. Every level
// selects the double-fast strategy; window/hash logs grow with level (the
// chain log is 0 at every level, so the short table has a single slot),
// the way the reference module's internal/sit dispatches wider lookup/match
// tables for higher numbered (more thorough) algorithm variants.
var levelTable = [MaxCompressionLevel + 1]CompressionParameters{
	1: {stratDoubleFast, 19, 0, 17, 1, 4, 8},
	2: {stratDoubleFast, 19, 0, 17, 1, 4, 16},
	3: {stratDoubleFast, 20, 0, 18, 1, 4, 32},
	4: {stratDoubleFast, 20, 0, 18, 1, 4, 48},
	5: {stratDoubleFast, 20, 0, 18, 1, 5, 64},
	6: {stratDoubleFast, 21, 0, 19, 1, 5, 96},
	7: {stratDoubleFast, 21, 0, 19, 1, 5, 128},
	8: {stratDoubleFast, 22, 0, 20, 1, 6, 192},
	9: {stratDoubleFast, 22, 0, 20, 1, 6, 256},
}

// ParametersForLevel clamps level to [MinCompressionLevel,
// MaxCompressionLevel] and derives CompressionParameters, then clamps the
// window log down to the smallest power of two (at least 1 KiB) that covers
// the input, and to this implementation's 8 MiB ceiling.
func ParametersForLevel(level int, inputSize int64) CompressionParameters {
	if level < MinCompressionLevel {
		level = MinCompressionLevel
	}
	if level > MaxCompressionLevel {
		level = MaxCompressionLevel
	}
	p := levelTable[level]

	need := minWindowLog
	for need < maxSupportedWindowLog && int64(1)<<uint(need) < inputSize {
		need++
	}
	if p.WindowLog > need {
		p.WindowLog = need
	}
	if p.WindowLog > maxSupportedWindowLog {
		p.WindowLog = maxSupportedWindowLog
	}
	if p.WindowLog < minWindowLog {
		p.WindowLog = minWindowLog
	}
	if p.HashLog > p.WindowLog {
		p.HashLog = p.WindowLog
	}
	return p
}

// histogram counts byte frequencies in src, clamped to [0, maxSymbol].
// Used both for literal Huffman table construction and for sequence code
// FSE table construction.
func histogram(src []byte, maxSymbol int) (counts []int, actualMax int) {
	counts = make([]int, maxSymbol+1)
	for _, b := range src {
		counts[b]++
	}
	actualMax = maxSymbol
	for actualMax > 0 && counts[actualMax] == 0 {
		actualMax--
	}
	return counts, actualMax
}
