package zstd

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Frame_Header_Descriptor bit layout, RFC 8478 §3.1.1.1.1.
const (
	fhdFrameContentSizeFlagShift = 6
	fhdSingleSegmentFlag         = 1 << 5
	fhdContentChecksumFlag       = 1 << 2
	fhdDictionaryIDFlagMask      = 3
)

// FrameInfo summarizes a frame's header without decompressing its body.
type FrameInfo struct {
	WindowSize       int64
	HasContentSize   bool
	ContentSize      int64
	HasChecksum      bool
	HeaderSize       int
}

// CompressFrame writes one complete Zstd frame for src using params. m
// may be nil; when set, it records which block types this frame used.
// It always allocates a fresh match engine; callers that compress many
// frames serially and want to reuse that engine's hash/chain tables
// should go through Session.Compress instead.
func CompressFrame(dst []byte, src []byte, params CompressionParameters, withChecksum bool, m *metrics) ([]byte, error) {
	out, _, err := compressFrame(dst, src, params, withChecksum, m, nil)
	return out, err
}

// compressFrame is CompressFrame's engine-reusing core. engine may be
// nil, in which case a fresh one is allocated; either way the (possibly
// newly allocated) engine is returned so the caller can hold onto it
// for the next frame.
func compressFrame(dst []byte, src []byte, params CompressionParameters, withChecksum bool, m *metrics, engine *matchEngine) ([]byte, *matchEngine, error) {
	dst = binary.LittleEndian.AppendUint32(dst, magicNumber)
	dst = appendFrameHeader(dst, int64(len(src)), params.WindowLog, withChecksum)

	if engine == nil {
		engine = newMatchEngine(params)
	} else {
		engine.reset(params)
	}
	blockSize := params.BlockSize()

	var checksum *xxh64
	if withChecksum {
		checksum = newXXH64(0)
		checksum.update(src)
	}

	var llLast, mlLast, ofLast *seqFieldTables
	var litTable *huffmanTable

	for pos := 0; pos < len(src) || len(src) == 0; {
		end := pos + blockSize
		if end > len(src) {
			end = len(src)
		}
		isLast := end >= len(src)

		store := engine.segment(src[:end], pos, end)
		body, newLitTable, newLL, newML, newOF, err := compressBlockBody(store, litTable, maxHuffmanTableLog, llLast, mlLast, ofLast)
		if err != nil {
			return nil, engine, err
		}
		litTable, llLast, mlLast, ofLast = newLitTable, newLL, newML, newOF

		rawSize := end - pos
		if len(body) >= rawSize {
			dst = append(dst, writeBlockHeader(isLast, blockRaw, rawSize)...)
			dst = append(dst, src[pos:end]...)
			if m != nil {
				m.blockType.WithLabelValues("raw").Inc()
			}
		} else {
			dst = append(dst, writeBlockHeader(isLast, blockCompressed, len(body))...)
			dst = append(dst, body...)
			if m != nil {
				m.blockType.WithLabelValues("compressed").Inc()
			}
		}

		pos = end
		if len(src) == 0 {
			break
		}
	}

	if withChecksum {
		var sumBuf [4]byte
		binary.LittleEndian.PutUint32(sumBuf[:], uint32(checksum.sum()))
		dst = append(dst, sumBuf[:]...)
	}
	return dst, engine, nil
}

// compressBlockBody lays out one COMPRESSED block's payload: the
// Literals_Section followed by the Sequences_Section.
func compressBlockBody(store *sequenceStore, prevLit *huffmanTable, maxHuffLog int, llLast, mlLast, ofLast *seqFieldTables) (body []byte, litTable *huffmanTable, llUsed, mlUsed, ofUsed *seqFieldTables, err error) {
	litSection, newLitTable, err := encodeLiteralsSection(store.literals, prevLit, maxHuffLog)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	if newLitTable != nil {
		litTable = newLitTable
	} else {
		litTable = prevLit
	}

	seqSection, llUsed, mlUsed, ofUsed, err := encodeSequencesSection(store, llLast, mlLast, ofLast)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	body = append(append([]byte{}, litSection...), seqSection...)
	return body, litTable, llUsed, mlUsed, ofUsed, nil
}

func appendFrameHeader(dst []byte, contentSize int64, windowLog int, withChecksum bool) []byte {
	var fcsFlag byte
	var fcsBytes int
	switch {
	case contentSize == 0:
		fcsFlag, fcsBytes = 0, 0
	case contentSize < 256:
		fcsFlag, fcsBytes = 0, 1
	case contentSize < 65536+256:
		fcsFlag, fcsBytes = 1, 2
	case contentSize < 1<<32:
		fcsFlag, fcsBytes = 2, 4
	default:
		fcsFlag, fcsBytes = 3, 8
	}

	// Single_Segment_flag lets the frame omit the window descriptor byte
	// whenever the window would have to cover the whole content anyway:
	// the decoder then takes WindowSize == Frame_Content_Size.
	singleSegment := contentSize <= int64(1)<<uint(windowLog)
	if singleSegment && fcsBytes == 0 {
		fcsFlag, fcsBytes = 0, 1
	}
	descriptor := fcsFlag << fhdFrameContentSizeFlagShift
	if singleSegment {
		descriptor |= fhdSingleSegmentFlag
	}
	if withChecksum {
		descriptor |= fhdContentChecksumFlag
	}
	dst = append(dst, descriptor)

	if !singleSegment {
		// Mantissa is always 0: WindowSize is always an exact power of
		// two in this implementation.
		dst = append(dst, byte(windowLog-10)<<3)
	}

	switch fcsBytes {
	case 1:
		dst = append(dst, byte(contentSize))
	case 2:
		dst = binary.LittleEndian.AppendUint16(dst, uint16(contentSize-256))
	case 4:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(contentSize))
	case 8:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(contentSize))
	}
	return dst
}

// DecompressFrame reads one complete Zstd frame from src, returning the
// decompressed content. maxSize bounds the output to guard against
// hostile or corrupt Frame_Content_Size fields.
func DecompressFrame(src []byte, maxSize int64) (out []byte, err error) {
	defer recoverCorruption(0, &err)
	info, headerSize, err := parseFrameHeader(src)
	if err != nil {
		return nil, err
	}
	if info.HasContentSize && maxSize > 0 && info.ContentSize > maxSize {
		return nil, tooSmallf("frame content size %d exceeds limit %d", info.ContentSize, maxSize)
	}

	out = make([]byte, 0, initialOutputCap(info, maxSize))
	pos := headerSize

	var llLast, mlLast, ofLast *seqFieldTables
	var litTable *huffmanTable
	rep := [3]int32{1, 4, 8}

	for {
		last, bt, size, err := readBlockHeader(src[pos:])
		if err != nil {
			return nil, err
		}
		pos += 3

		switch bt {
		case blockRLE:
			// For RLE blocks, Block_Size is the decompressed size; the
			// wire only carries the single repeated byte.
			if pos+1 > len(src) {
				return nil, corruptf(pos, "truncated RLE block")
			}
			b := src[pos]
			for i := 0; i < size; i++ {
				out = append(out, b)
			}
			pos++
		case blockRaw:
			if pos+size > len(src) {
				return nil, corruptf(pos, "raw block overruns frame")
			}
			out = append(out, src[pos:pos+size]...)
			pos += size
		case blockCompressed:
			if pos+size > len(src) {
				return nil, corruptf(pos, "compressed block overruns frame")
			}
			decoded, newLitTable, newLL, newML, newOF, err := decompressBlockBody(src[pos:pos+size], litTable, llLast, mlLast, ofLast, &rep)
			if err != nil {
				return nil, err
			}
			out = append(out, decoded...)
			litTable, llLast, mlLast, ofLast = newLitTable, newLL, newML, newOF
			pos += size
		}

		if last {
			break
		}
	}

	if info.HasChecksum {
		if pos+4 > len(src) {
			return nil, corruptf(pos, "truncated frame checksum")
		}
		want := binary.LittleEndian.Uint32(src[pos : pos+4])
		got := frameChecksum(out)
		if want != got {
			return nil, errors.Wrapf(ErrBadChecksum, "offset %d: frame checksum mismatch", pos)
		}
	}
	return out, nil
}

func initialOutputCap(info *FrameInfo, maxSize int64) int64 {
	if info.HasContentSize {
		return info.ContentSize
	}
	if maxSize > 0 {
		return maxSize
	}
	return 4096
}

// decompressBlockBody parses one COMPRESSED block's Literals_Section and
// Sequences_Section and replays the sequences to reconstruct the block's
// original bytes. rep carries the three repeat offsets across block
// boundaries within a frame; the caller owns it and resets it only at
// the start of a new frame.
func decompressBlockBody(buf []byte, prevLit *huffmanTable, llLast, mlLast, ofLast *seqFieldTables, rep *[3]int32) (out []byte, litTable *huffmanTable, llUsed, mlUsed, ofUsed *seqFieldTables, err error) {
	lits, litConsumed, err := decodeLiteralsSection(buf, prevLit)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	litTable = prevLit
	if lits.table != nil {
		litTable = lits.table
	}

	store, llUsed, mlUsed, ofUsed, err := decodeSequencesSection(buf[litConsumed:], llLast, mlLast, ofLast)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	litPos := 0
	out = make([]byte, 0, len(lits.bytes)+len(lits.bytes)/2)
	for i := range store.litLen {
		ll := int(store.litLen[i])
		if litPos+ll > len(lits.bytes) {
			return nil, nil, nil, nil, nil, corruptf(0, "sequence literal length overruns literals section")
		}
		out = append(out, lits.bytes[litPos:litPos+ll]...)
		litPos += ll

		offset := decodeOffsetValue(rep, store.offset[i], ll)
		if int(offset) <= 0 || int(offset) > len(out) {
			return nil, nil, nil, nil, nil, corruptf(0, "match offset exceeds decoded history")
		}
		matchPos := len(out) - int(offset)
		ml := int(store.matchLen[i])
		for j := 0; j < ml; j++ {
			out = append(out, out[matchPos+j])
		}
	}
	if litPos < len(lits.bytes) {
		out = append(out, lits.bytes[litPos:]...)
	}
	return out, litTable, llUsed, mlUsed, ofUsed, nil
}

// BlockInfo summarizes one block's header fields, as found by
// InspectBlocks without decompressing the block's payload.
type BlockInfo struct {
	Type             string
	Last             bool
	CompressedSize   int
	UncompressedSize int64 // -1 when unknown without a full decode (COMPRESSED blocks)
}

func (t blockType) String() string {
	switch t {
	case blockRaw:
		return "raw"
	case blockRLE:
		return "rle"
	case blockCompressed:
		return "compressed"
	default:
		return "reserved"
	}
}

// InspectBlocks walks a frame's block headers and reports each block's
// type and size without decompressing any block body. RAW and RLE
// blocks carry their own uncompressed size in the header; COMPRESSED
// blocks do not, so their UncompressedSize is reported as -1.
func InspectBlocks(src []byte) (*FrameInfo, []BlockInfo, error) {
	info, headerSize, err := parseFrameHeader(src)
	if err != nil {
		return nil, nil, err
	}

	var blocks []BlockInfo
	pos := headerSize
	for {
		last, bt, size, err := readBlockHeader(src[pos:])
		if err != nil {
			return nil, nil, err
		}
		pos += 3

		b := BlockInfo{Type: bt.String(), Last: last}
		switch bt {
		case blockRLE:
			b.CompressedSize = 1
			b.UncompressedSize = int64(size)
			pos++
		case blockRaw:
			b.CompressedSize = size
			b.UncompressedSize = int64(size)
			pos += size
		case blockCompressed:
			b.CompressedSize = size
			b.UncompressedSize = -1
			pos += size
		}
		if pos > len(src) {
			return nil, nil, corruptf(pos, "block overruns frame")
		}
		blocks = append(blocks, b)

		if last {
			break
		}
	}
	return info, blocks, nil
}

// parseFrameHeader reads the magic number and Frame_Header, rejecting
// legacy frames and dictionary IDs, both out of scope for this package.
func parseFrameHeader(src []byte) (*FrameInfo, int, error) {
	if len(src) < 4 {
		return nil, 0, corruptf(0, "truncated frame magic number")
	}
	magic := binary.LittleEndian.Uint32(src[:4])
	if magic == magicNumberLegacy {
		return nil, 0, unsupportedf(0, "legacy zstd frame format is not supported")
	}
	if magic != magicNumber {
		return nil, 0, corruptf(0, "not a zstd frame: bad magic number %#x", magic)
	}

	if len(src) < 5 {
		return nil, 0, corruptf(4, "truncated frame header descriptor")
	}
	descriptor := src[4]
	fcsFlag := descriptor >> fhdFrameContentSizeFlagShift
	singleSegment := descriptor&fhdSingleSegmentFlag != 0
	hasChecksum := descriptor&fhdContentChecksumFlag != 0
	if descriptor&fhdDictionaryIDFlagMask != 0 {
		return nil, 0, unsupportedf(4, "dictionary-carrying frames are not supported")
	}

	pos := 5
	info := &FrameInfo{HasChecksum: hasChecksum}

	if !singleSegment {
		if pos >= len(src) {
			return nil, 0, corruptf(pos, "truncated window descriptor")
		}
		wd := src[pos]
		pos++
		exponent := int(wd >> 3)
		mantissa := int(wd & 7)
		windowBase := int64(1) << uint(10+exponent)
		windowAdd := (windowBase / 8) * int64(mantissa)
		info.WindowSize = windowBase + windowAdd
	}

	fcsBytes := [4]int{0, 2, 4, 8}[fcsFlag]
	if singleSegment && fcsFlag == 0 {
		fcsBytes = 1
	}
	if fcsBytes > 0 {
		if pos+fcsBytes > len(src) {
			return nil, 0, corruptf(pos, "truncated frame content size")
		}
		var size int64
		switch fcsBytes {
		case 1:
			size = int64(src[pos])
		case 2:
			size = int64(binary.LittleEndian.Uint16(src[pos:])) + 256
		case 4:
			size = int64(binary.LittleEndian.Uint32(src[pos:]))
		case 8:
			size = int64(binary.LittleEndian.Uint64(src[pos:]))
		}
		info.HasContentSize = true
		info.ContentSize = size
		pos += fcsBytes
	}

	if singleSegment {
		info.WindowSize = info.ContentSize
	}
	if info.WindowSize > maxSupportedWindowSiz {
		return nil, 0, unsupportedf(pos, "window size %d exceeds supported maximum %d", info.WindowSize, maxSupportedWindowSiz)
	}

	info.HeaderSize = pos
	return info, pos, nil
}
