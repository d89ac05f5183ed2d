package zstd

// fseCState is one FSE encoder state machine instance. Sequences are
// encoded symbol-by-symbol in reverse order so that a
// decoder walking the bit stream forward (after the reader's reversed
// read direction un-reverses it) recovers them in original order.
type fseCState struct {
	value uint32
}

func (c *fseCState) init(t *fseEncTable, symbol uint8) {
	tt := t.symbolTT[symbol]
	nbBitsOut := (tt.deltaNbBits + (1 << 15)) >> 16
	c.value = uint32(int64(nbBitsOut)<<16) - tt.deltaNbBits
	c.value = uint32(t.stateTable[(c.value>>nbBitsOut)+uint32(tt.deltaFindState)])
}

// encode appends the bits needed to transition from the current state on
// symbol, in REVERSE of the eventual decode order (the caller drives
// symbols from last to first).
func (c *fseCState) encode(w *bitWriter, t *fseEncTable, symbol uint8) {
	tt := t.symbolTT[symbol]
	nbBitsOut := (uint32(c.value) + tt.deltaNbBits) >> 16
	w.addBits(uint64(c.value), uint(nbBitsOut))
	c.value = uint32(t.stateTable[(c.value>>nbBitsOut)+uint32(tt.deltaFindState)])
}

// flush writes the final state value, tableLog bits wide.
func (c *fseCState) flush(w *bitWriter, t *fseEncTable) {
	w.addBits(uint64(c.value), uint(t.tableLog))
}
