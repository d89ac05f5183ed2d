package zstd

import "github.com/cockroachdb/errors"

// Error taxonomy. Every concrete failure wraps one of these sentinels so
// callers can classify with errors.Is while the wrapped message still
// carries a byte offset for diagnostics.
var (
	// ErrCorruption covers malformed frames, blocks, tables and bit
	// streams: anything that indicates the input bytes don't describe a
	// valid Zstd frame.
	ErrCorruption = errors.New("zstd: corruption")

	// ErrUnsupported covers well-formed but out-of-scope frames: legacy
	// magic, oversized windows, dictionaries.
	ErrUnsupported = errors.New("zstd: unsupported")

	// ErrBadChecksum is returned when a frame's trailing XXH64 checksum
	// does not match the decoded content.
	ErrBadChecksum = errors.New("zstd: checksum mismatch")

	// ErrBufferTooSmall is returned when a frame's declared content size
	// exceeds the caller's maxSize limit.
	ErrBufferTooSmall = errors.New("zstd: output buffer too small")
)

func corruptf(offset int, format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorruption, "at byte offset %d: "+format, append([]interface{}{offset}, args...)...)
}

func unsupportedf(offset int, format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnsupported, "at byte offset %d: "+format, append([]interface{}{offset}, args...)...)
}

func tooSmallf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrBufferTooSmall, format, args...)
}

// verify panics with a corruption error carrying offset when cond is false.
// No code in this package calls it; a panic it raised inside a decode
// entry point would be recovered into a proper error.
func verify(cond bool, offset int, msg string) {
	if !cond {
		panic(corruptf(offset, "%s", msg))
	}
}

// recoverCorruption turns a panic raised by verify (or an out-of-bounds
// slice index on malformed input) into a proper *err return. It must be
// deferred at every exported decode entry point.
func recoverCorruption(offset int, err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok && errors.Is(e, ErrCorruption) {
			*err = e
			return
		}
		*err = corruptf(offset, "%v", r)
	}
}
