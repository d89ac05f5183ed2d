package zstd

import (
	"math/bits"
	"sort"
)

// fseTable is the decoding representation of an FSE table: for each of
// the 1<<tableLog states, the symbol it emits, how many bits
// to read to find the next state, and the baseline to add those bits to.
type fseTable struct {
	tableLog int
	symbol   []uint8
	nbBits   []uint8
	newState []uint16
}

// fseSymbolTransform holds the per-symbol encode-side constants derived
// from the normalized counts, mirroring the classic
// FSE_symbolCompressionTransform layout.
type fseSymbolTransform struct {
	deltaNbBits    uint32
	deltaFindState int32
}

// fseEncTable is the encoding representation: a "sorted by symbol" state
// table plus per-symbol transform constants.
type fseEncTable struct {
	tableLog   int
	stateTable []uint16
	symbolTT   []fseSymbolTransform
}

// tableStep is the RFC 8478 §4.1.1 spreading stride.
func tableStep(tableSize int) int {
	return (tableSize >> 1) + (tableSize >> 3) + 3
}

// spreadSymbols lays symbols from normalized counts into table cells: a
// symbol with count -1 ("low probability") takes one slot at the high end
// of the table, descending; all others are spread with tableStep, modulo
// tableSize, skipping any cells already claimed by a low-probability
// symbol. Every cell must be visited exactly once.
func spreadSymbols(counts []int, maxSymbol int, tableLog int) ([]uint8, error) {
	tableSize := 1 << tableLog
	highThreshold := tableSize - 1
	spread := make([]uint8, tableSize)
	claimedHigh := make([]bool, tableSize)

	for s := 0; s <= maxSymbol; s++ {
		if counts[s] == -1 {
			spread[highThreshold] = uint8(s)
			claimedHigh[highThreshold] = true
			highThreshold--
		}
	}

	step := tableStep(tableSize)
	mask := tableSize - 1
	position := 0
	for s := 0; s <= maxSymbol; s++ {
		freq := counts[s]
		if freq <= 0 {
			continue
		}
		for n := 0; n < freq; n++ {
			spread[position] = uint8(s)
			position = (position + step) & mask
			for position > highThreshold {
				position = (position + step) & mask
			}
		}
	}
	if position != 0 {
		return nil, corruptf(0, "FSE spreadSymbols did not cover every cell exactly once")
	}
	return spread, nil
}

// buildFSEDecodeTable derives each state's decoding entry: numberOfBits
// = tableLog - highBit(nextState), newState = (nextState << numberOfBits)
// - tableSize.
func buildFSEDecodeTable(counts []int, maxSymbol int, tableLog int) (*fseTable, error) {
	tableSize := 1 << tableLog
	spread, err := spreadSymbols(counts, maxSymbol, tableLog)
	if err != nil {
		return nil, err
	}

	next := make([]int, maxSymbol+1)
	for s := 0; s <= maxSymbol; s++ {
		if counts[s] == -1 {
			next[s] = 1
		} else {
			next[s] = counts[s]
		}
	}

	t := &fseTable{
		tableLog: tableLog,
		symbol:   spread,
		nbBits:   make([]uint8, tableSize),
		newState: make([]uint16, tableSize),
	}
	for u := 0; u < tableSize; u++ {
		sym := spread[u]
		nextState := next[sym]
		next[sym]++
		nbBits := tableLog - highBit32(uint32(nextState))
		t.nbBits[u] = uint8(nbBits)
		t.newState[u] = uint16(nextState<<uint(nbBits) - tableSize)
	}
	return t, nil
}

// buildFSEEncodeTable mirrors buildFSEDecodeTable to build the encode-side
// tables (classic FSE_buildCTable).
func buildFSEEncodeTable(counts []int, maxSymbol int, tableLog int) (*fseEncTable, error) {
	tableSize := 1 << tableLog
	spread, err := spreadSymbols(counts, maxSymbol, tableLog)
	if err != nil {
		return nil, err
	}

	cumul := make([]int, maxSymbol+2)
	highThreshold := tableSize - 1
	for s := 1; s <= maxSymbol+1; s++ {
		if counts[s-1] == -1 {
			cumul[s] = cumul[s-1] + 1
			highThreshold--
		} else {
			cumul[s] = cumul[s-1] + counts[s-1]
		}
	}

	stateTable := make([]uint16, tableSize)
	cursor := append([]int(nil), cumul...)
	for u := 0; u < tableSize; u++ {
		s := spread[u]
		stateTable[cursor[s]] = uint16(tableSize + u)
		cursor[s]++
	}

	symbolTT := make([]fseSymbolTransform, maxSymbol+1)
	total := 0
	for s := 0; s <= maxSymbol; s++ {
		switch counts[s] {
		case 0:
			symbolTT[s].deltaNbBits = uint32((tableLog+1)<<16) - uint32(tableSize)
		case -1, 1:
			symbolTT[s].deltaNbBits = uint32(tableLog<<16) - uint32(tableSize)
			symbolTT[s].deltaFindState = int32(total) - 1
			total++
		default:
			maxBitsOut := tableLog - highBit32(uint32(counts[s]-1))
			minStatePlus := counts[s] << uint(maxBitsOut)
			symbolTT[s].deltaNbBits = uint32(maxBitsOut<<16) - uint32(minStatePlus)
			symbolTT[s].deltaFindState = int32(total - counts[s])
			total += counts[s]
		}
	}

	return &fseEncTable{tableLog: tableLog, stateTable: stateTable, symbolTT: symbolTT}, nil
}

func highBit32(v uint32) int {
	if v == 0 {
		return 0
	}
	return bits.Len32(v) - 1
}

// optimalFSETableLog picks a table log no larger than needed to
// represent srcSize occurrences of maxSymbolValue+1 symbols, capped at
// maxTableLog, mirroring FSE_optimalTableLog's shrink-if-oversized rule.
func optimalFSETableLog(srcSize int, maxSymbolValue int, maxTableLog int) int {
	if srcSize <= 1 {
		return minFSETableLog
	}
	tableLog := maxTableLog
	minBitsSrc := highBit32(uint32(srcSize)) + 1
	minBitsSymbols := highBit32(uint32(maxSymbolValue)) + 2
	minBits := minBitsSrc
	if minBitsSymbols < minBits {
		minBits = minBitsSymbols
	}
	if minBits < tableLog {
		tableLog = minBits
	}
	maxBitsSrc := highBit32(uint32(srcSize-1)) - 2
	if maxBitsSrc < tableLog {
		tableLog = maxBitsSrc
	}
	if tableLog < minFSETableLog {
		tableLog = minFSETableLog
	}
	if tableLog > maxTableLog {
		tableLog = maxTableLog
	}
	return tableLog
}

// normalizeCounts scales a raw occurrence histogram down to sum exactly
// to 1<<tableLog, preserving zero/non-zero status of every symbol and
// marking "low probability" symbols (raw count at most total>>tableLog,
// small enough to round to zero) with -1, mirroring FSE_normalizeCount.
func normalizeCounts(counts []int, maxSymbol int, tableLog int, total int) ([]int, error) {
	tableSize := 1 << tableLog
	out := make([]int, maxSymbol+1)
	if total <= 0 {
		return nil, corruptf(0, "cannot normalize an empty histogram")
	}

	rest := tableSize
	curTotal := total
	lowThreshold := total >> uint(tableLog)
	if lowThreshold == 0 {
		lowThreshold = 1
	}

	type largeSym struct {
		index int
		count int
	}
	var large []largeSym

	for s := 0; s <= maxSymbol; s++ {
		c := counts[s]
		if c == 0 {
			continue
		}
		if c <= lowThreshold {
			out[s] = -1
			rest--
			curTotal -= c
			continue
		}
		large = append(large, largeSym{s, c})
	}

	sort.Slice(large, func(i, j int) bool { return large[i].count > large[j].count })

	for i := range large {
		scaled := (large[i].count*rest + curTotal/2) / curTotal
		if scaled < 1 {
			scaled = 1
		}
		out[large[i].index] = scaled
	}

	// Correct rounding drift so the normalized counts sum exactly to
	// tableSize: an excess is taken from the largest symbols first, one
	// unit at a time and never below 1; a shortfall goes to the single
	// largest symbol.
	sum := 0
	for s := 0; s <= maxSymbol; s++ {
		if out[s] > 0 {
			sum += out[s]
		} else if out[s] == -1 {
			sum++
		}
	}
	for i := 0; sum > tableSize && i < len(large); {
		if out[large[i].index] > 1 {
			out[large[i].index]--
			sum--
		} else {
			i++
		}
	}
	if len(large) > 0 {
		out[large[0].index] += tableSize - sum
	} else if sum != tableSize {
		return nil, corruptf(0, "FSE normalization could not converge")
	}

	return out, nil
}

// rleFSEDecodeTable builds the degenerate log2Size=0 table for a stream
// where every symbol is identical (an "RLE table").
func rleFSEDecodeTable(symbol uint8) *fseTable {
	return &fseTable{
		tableLog: 0,
		symbol:   []uint8{symbol},
		nbBits:   []uint8{0},
		newState: []uint16{0},
	}
}

func rleFSEEncodeTable(symbol uint8, maxSymbol int) *fseEncTable {
	symbolTT := make([]fseSymbolTransform, maxSymbol+1)
	symbolTT[symbol] = fseSymbolTransform{deltaNbBits: 0, deltaFindState: 0}
	return &fseEncTable{tableLog: 0, stateTable: []uint16{0, 0}, symbolTT: symbolTT}
}

// Default (BASIC) distributions for literalLength, matchLength and
// offsetCode, RFC 8478 Appendix, reproduced verbatim (a BASIC-mode
// stream MUST use exactly these).
var defaultLiteralLengthDistribution = []int{
	4, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 2, 1, 1, 1, 1, 1,
	-1, -1, -1, -1,
}
var defaultLiteralLengthTableLog = 6

var defaultMatchLengthDistribution = []int{
	1, 4, 3, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1,
	-1, -1, -1, -1, -1,
}
var defaultMatchLengthTableLog = 6

var defaultOffsetCodeDistribution = []int{
	1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1,
}
var defaultOffsetCodeTableLog = 5

func defaultDecodeTable(distribution []int, tableLog int) *fseTable {
	t, err := buildFSEDecodeTable(distribution, len(distribution)-1, tableLog)
	if err != nil {
		// The default distributions are fixed constants from the RFC and
		// are known to sum correctly; a build failure here is a bug in
		// this package, not a reachable runtime condition.
		panic(err)
	}
	return t
}

func defaultEncodeTable(distribution []int, tableLog int) *fseEncTable {
	t, err := buildFSEEncodeTable(distribution, len(distribution)-1, tableLog)
	if err != nil {
		panic(err)
	}
	return t
}
