// Package zstd implements a from-scratch Zstandard frame encoder and
// decoder: block segmentation with a double-fast match engine, FSE
// sequence coding, canonical Huffman literal coding and an XXH64
// content checksum (RFC 8478).
package zstd

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// MaxCompressedBound returns a safe upper bound on the compressed size
// of an input of the given length, for callers sizing their own output
// buffer ahead of time.
func MaxCompressedBound(srcSize int) int {
	// Worst case: every byte survives as a literal inside RAW blocks,
	// plus a block header per block, plus frame overhead.
	blocks := srcSize/maxBlockSize + 1
	return srcSize + blocks*3 + 18
}

// Compress returns src encoded as a single Zstd frame at the given
// compression level, with a content checksum appended.
func Compress(src []byte, level int) ([]byte, error) {
	return NewSession(level).Compress(nil, src)
}

// Decompress decodes a single Zstd frame. maxSize bounds the frame's
// declared content size; pass 0 for no cap. A frame that declares no
// content size is not capped.
func Decompress(src []byte, maxSize int64) (out []byte, err error) {
	defer recoverCorruption(0, &err)
	return DecompressFrame(src, maxSize)
}

// GetFrameContentSize reports the decompressed size recorded in a
// frame's header, if present.
func GetFrameContentSize(src []byte) (size int64, known bool, err error) {
	info, _, err := parseFrameHeader(src)
	if err != nil {
		return 0, false, err
	}
	return info.ContentSize, info.HasContentSize, nil
}

// Inspect parses a frame's header without decompressing its body.
func Inspect(src []byte) (*FrameInfo, error) {
	info, _, err := parseFrameHeader(src)
	return info, err
}

// Session owns the scratch state reused across repeated Compress or
// Decompress calls: the compression level's parameters, the match
// engine's hash/chain tables, the metrics registered against its own
// Registerer, and an slog.Logger for diagnostics. Deliberately no
// package-level shared cache: every caller that wants reuse constructs
// its own Session, unlike the global decompressioncache singleton this
// package replaces (see DESIGN.md). A Session is not safe for
// concurrent use; each goroutine that compresses needs its own.
type Session struct {
	level   int
	withSum bool
	log     *slog.Logger
	metrics *metrics

	engine *matchEngine
}

// SessionOption configures a Session at construction time.
type SessionOption func(*Session)

// WithChecksum enables or disables the frame content checksum. Enabled
// by default.
func WithChecksum(enabled bool) SessionOption {
	return func(s *Session) { s.withSum = enabled }
}

// WithLogger attaches a structured logger. A nil logger (the default)
// disables logging.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l == nil {
			l = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		s.log = l
	}
}

// WithMetrics registers this session's counters against reg. Passing
// nil (the default) leaves metrics unregistered.
func WithMetrics(reg prometheus.Registerer) SessionOption {
	return func(s *Session) { s.metrics = newMetrics(reg) }
}

// NewSession builds a Session for the given compression level (clamped
// to [MinCompressionLevel, MaxCompressionLevel]).
func NewSession(level int, opts ...SessionOption) *Session {
	s := &Session{level: level, withSum: true, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Compress encodes src as a Zstd frame, appending to dst (which may be
// nil).
func (s *Session) Compress(dst []byte, src []byte) ([]byte, error) {
	params := ParametersForLevel(s.level, int64(len(src)))
	out, engine, err := compressFrame(dst, src, params, s.withSum, s.metrics, s.engine)
	s.engine = engine
	if err != nil {
		s.log.Error("zstd compress failed", "err", err, "input_bytes", len(src))
		return nil, err
	}
	s.log.Debug("zstd compress", "input_bytes", len(src), "output_bytes", len(out)-len(dst), "level", s.level)
	if s.metrics != nil {
		s.metrics.framesCompressed.Inc()
		s.metrics.bytesIn.Add(float64(len(src)))
		s.metrics.bytesOut.Add(float64(len(out) - len(dst)))
	}
	return out, nil
}

// Decompress decodes a single Zstd frame from src.
func (s *Session) Decompress(src []byte, maxSize int64) (out []byte, err error) {
	defer recoverCorruption(0, &err)
	out, err = DecompressFrame(src, maxSize)
	if err != nil {
		s.log.Error("zstd decompress failed", "err", err, "input_bytes", len(src))
		return nil, err
	}
	s.log.Debug("zstd decompress", "input_bytes", len(src), "output_bytes", len(out))
	if s.metrics != nil {
		s.metrics.framesDecompressed.Inc()
		s.metrics.bytesIn.Add(float64(len(src)))
		s.metrics.bytesOut.Add(float64(len(out)))
	}
	return out, nil
}

// Reset drops the session's match engine, so the next Compress call
// allocates a fresh one instead of reusing (and clearing) the old
// hash/chain tables. Callers that are done with one kind of workload
// and about to switch to inputs of a very different size can use this
// to release the old tables rather than carry their memory forward.
func (s *Session) Reset() {
	s.engine = nil
}

// Inspect parses a frame header, for symmetry with Compress/Decompress.
// It does not use the session's level or logger.
func (s *Session) Inspect(src []byte) (*FrameInfo, error) {
	return Inspect(src)
}
