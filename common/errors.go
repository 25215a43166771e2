package common

import "errors"

// Sentinel errors for the error kinds in spec §7. Components wrap these with
// fmt.Errorf("...: %w", ErrX) so callers can errors.Is against a stable kind
// while still getting a descriptive message.
var (
	// ErrInvalidViewport: W <= 0 or H <= 0 passed to the Line Composer or
	// Page Assembler.
	ErrInvalidViewport = errors.New("invalid viewport")

	// ErrCorruptedCache: section cache header mismatch, short read, or an
	// oversized field during deserialization.
	ErrCorruptedCache = errors.New("corrupted section cache")

	// ErrUnsupportedVersion: section cache file_version newer than this
	// build understands.
	ErrUnsupportedVersion = errors.New("unsupported cache version")

	// ErrResourceExhausted: free heap (or configured memory budget) fell
	// below threshold mid-batch.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrTimeout: a parse/layout batch exceeded its wall-clock budget.
	ErrTimeout = errors.New("batch timed out")

	// ErrCancelled: the external abort callback fired.
	ErrCancelled = errors.New("cancelled")

	// ErrPageUnavailable: requested page is beyond the cache and the
	// source is exhausted.
	ErrPageUnavailable = errors.New("page unavailable")

	// ErrMalformedDocument: SAX parse error or element-depth overrun.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrIoFailure: storage collaborator returned a short read/write.
	ErrIoFailure = errors.New("storage io failure")
)
