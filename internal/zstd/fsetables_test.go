package zstd

import "testing"

func TestSpreadSymbolsCoversEveryCellOnce(t *testing.T) {
	counts := []int{2, 0, 6, 1, -1, 6} // sums to 16 = 1<<tableLog, as spreadSymbols requires
	tableLog := 4
	spread, err := spreadSymbols(counts, len(counts)-1, tableLog)
	if err != nil {
		t.Fatalf("spreadSymbols: %v", err)
	}
	if len(spread) != 1<<tableLog {
		t.Fatalf("got %d cells, want %d", len(spread), 1<<tableLog)
	}

	seen := make([]int, len(counts))
	for _, s := range spread {
		seen[s]++
	}
	for s, c := range counts {
		want := c
		if c == -1 {
			want = 1
		}
		if c <= 0 && c != -1 {
			want = 0
		}
		if seen[s] != want {
			t.Errorf("symbol %d appeared %d times, want %d", s, seen[s], want)
		}
	}
}

func TestNormalizedCountHeaderRoundTrip(t *testing.T) {
	cases := [][]int{
		defaultLiteralLengthDistribution,
		defaultMatchLengthDistribution,
		defaultOffsetCodeDistribution,
	}
	logs := []int{defaultLiteralLengthTableLog, defaultMatchLengthTableLog, defaultOffsetCodeTableLog}

	for i, counts := range cases {
		maxSymbol := len(counts) - 1
		tableLog := logs[i]

		header := writeNormalizedCounts(counts, maxSymbol, tableLog)
		gotCounts, gotLog, consumed, err := readNormalizedCounts(header, maxSymbol, maxSymbol+8)
		if err != nil {
			t.Fatalf("case %d: readNormalizedCounts: %v", i, err)
		}
		if consumed != len(header) {
			t.Errorf("case %d: consumed %d bytes, header is %d bytes", i, consumed, len(header))
		}
		if gotLog != tableLog {
			t.Errorf("case %d: tableLog = %d, want %d", i, gotLog, tableLog)
		}
		for s, want := range counts {
			if gotCounts[s] != want {
				t.Errorf("case %d symbol %d: count = %d, want %d", i, s, gotCounts[s], want)
			}
		}
	}
}

func TestFSEEncodeDecodeSingleSymbolRoundTrip(t *testing.T) {
	dec := defaultDecodeTable(defaultLiteralLengthDistribution, defaultLiteralLengthTableLog)
	enc := defaultEncodeTable(defaultLiteralLengthDistribution, defaultLiteralLengthTableLog)

	symbols := []uint8{0, 1, 2, 5, 10, 15, 20, 30, 35}

	for _, sym := range symbols {
		if defaultLiteralLengthDistribution[sym] <= 0 {
			continue
		}
		w := newBitWriter()
		var c fseCState
		c.init(enc, sym)
		c.flush(w, enc)
		buf := w.close()

		r, err := newBitReader(buf, 0, len(buf))
		if err != nil {
			t.Fatalf("symbol %d: newBitReader: %v", sym, err)
		}
		var d fseDState
		d.init(r, dec)
		got := d.peekSymbol(dec)
		if got != sym {
			t.Errorf("symbol %d: decoded %d", sym, got)
		}
	}
}

func TestFSEEncodeDecodeSequenceRoundTrip(t *testing.T) {
	symbols := []uint8{0, 3, 3, 1, 2, 0, 5, 5, 5, 1, 0, 2}
	maxSymbol := 35
	counts, actualMax := histogram(symbols, maxSymbol)
	tableLog := optimalFSETableLog(len(symbols), actualMax, literalsLengthTableLog)
	normalized, err := normalizeCounts(counts, actualMax, tableLog, len(symbols))
	if err != nil {
		t.Fatalf("normalizeCounts: %v", err)
	}
	enc, err := buildFSEEncodeTable(normalized, actualMax, tableLog)
	if err != nil {
		t.Fatalf("buildFSEEncodeTable: %v", err)
	}
	dec, err := buildFSEDecodeTable(normalized, actualMax, tableLog)
	if err != nil {
		t.Fatalf("buildFSEDecodeTable: %v", err)
	}

	n := len(symbols)
	w := newBitWriter()
	var c fseCState
	c.init(enc, symbols[n-1])
	for i := n - 2; i >= 0; i-- {
		c.encode(w, enc, symbols[i])
	}
	c.flush(w, enc)
	buf := w.close()

	r, err := newBitReader(buf, 0, len(buf))
	if err != nil {
		t.Fatalf("newBitReader: %v", err)
	}
	var d fseDState
	d.init(r, dec)
	got := make([]uint8, n)
	got[0] = d.peekSymbol(dec)
	for i := 1; i < n; i++ {
		d.update(r, dec)
		got[i] = d.peekSymbol(dec)
	}

	for i := range symbols {
		if got[i] != symbols[i] {
			t.Errorf("position %d: decoded %d, want %d", i, got[i], symbols[i])
		}
	}
}
