package colorcrunch

import "fmt"

// InvalidConfigError reports an out-of-range Builder option, returned from
// Build with no side effects (spec §7).
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("colorcrunch: invalid config field %q: %s", e.Field, e.Reason)
}

// BackendUnavailableError is returned from Build when algorithm is
// LloydGpu but no compute adapter was supplied via SetAdapter/WithAdapter
// (spec §7). Build does not construct an adapter on its own.
type BackendUnavailableError struct {
	Reason string
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("colorcrunch: GPU backend unavailable: %s", e.Reason)
}

// BufferTooLargeError is returned from QuantizeImage when the pixel count
// exceeds what the GPU backend's 32-bit atomic channel sums can hold
// without overflow (spec §4.6, §7): 255*N must fit in a uint32, so
// N must not exceed 2^24.
type BufferTooLargeError struct {
	N   int
	Max int
}

func (e *BufferTooLargeError) Error() string {
	return fmt.Sprintf("colorcrunch: buffer has %d pixels, exceeds GPU backend maximum of %d", e.N, e.Max)
}

// EmptyBufferError is returned from QuantizeImage when the pixel buffer
// has zero pixels (spec §7).
type EmptyBufferError struct{}

func (e *EmptyBufferError) Error() string {
	return "colorcrunch: pixel buffer is empty"
}

// NumericFailureError reports a non-finite distance computation, which the
// spec calls out as "should be unreachable" for well-formed inputs (spec
// §7). It surfaces rather than panics so a caller can decide how to react.
type NumericFailureError struct {
	Stage string
}

func (e *NumericFailureError) Error() string {
	return fmt.Sprintf("colorcrunch: non-finite value encountered during %s", e.Stage)
}
