package pkgarchive

import (
	"errors"
	"fmt"
)

// Sentinel errors checked with errors.Is. Each operation that can fail for a
// domain reason (as opposed to a wrapped I/O error) returns one of these,
// possibly wrapped with extra context via fmt.Errorf("...: %w", ...).
var (
	// ErrMismatchedMagic is returned by Parse when the stream does not start
	// with the 4-byte PKG magic and magic checking was requested.
	ErrMismatchedMagic = errors.New("pkgarchive: mismatched magic")

	// ErrMismatchedHeaderSize is returned by Parse when the on-disk header
	// size field is not 16.
	ErrMismatchedHeaderSize = errors.New("pkgarchive: mismatched header size")

	// ErrMismatchedEntrySize is returned by Parse when the on-disk entry
	// size field is not 20.
	ErrMismatchedEntrySize = errors.New("pkgarchive: mismatched entry size")

	// ErrEntryOverflow is returned by Parse when the entry table claims to
	// extend past the end of the stream.
	ErrEntryOverflow = errors.New("pkgarchive: entry table extends beyond end of stream")

	// ErrPathOverflow is returned by Parse when the path region claims to
	// extend past the end of the stream.
	ErrPathOverflow = errors.New("pkgarchive: path region extends beyond end of stream")

	// ErrUnrecognisedEntryFlags is returned by Parse when an entry record's
	// high flag byte has bits set outside the recognised set.
	ErrUnrecognisedEntryFlags = errors.New("pkgarchive: entry has unrecognised flags")

	// ErrNonASCIIPath is returned by Parse when a path in the path region
	// contains a byte outside 0x01-0x7F.
	ErrNonASCIIPath = errors.New("pkgarchive: entry has a non-ASCII path")

	// ErrDuplicatePath is returned by Parse when two entries claim the same
	// path.
	ErrDuplicatePath = errors.New("pkgarchive: two entries share the same path")

	// ErrNotFound is returned by Open, Remove, Rename (source), and Replace
	// (source) when the named path does not exist.
	ErrNotFound = errors.New("pkgarchive: path not found")

	// ErrAlreadyExists is returned by Insert and Rename (destination) when
	// the named path already exists.
	ErrAlreadyExists = errors.New("pkgarchive: path already exists")

	// ErrOverlappingEntries is returned by Repack when two entries' data
	// ranges overlap, which can only happen with an adversarially crafted
	// archive.
	ErrOverlappingEntries = errors.New("pkgarchive: entries have overlapping data ranges")

	// ErrNotSeekable is returned by ReadHandle.Seek on a compressed entry.
	ErrNotSeekable = errors.New("pkgarchive: compressed entries are not seekable")

	// ErrSeekOutOfBounds is returned by ReadHandle.Seek when the target
	// offset falls outside the entry's logical byte range.
	ErrSeekOutOfBounds = errors.New("pkgarchive: seek target out of bounds")

	// ErrTruncateUnsupported is returned by Repack when the storage backing
	// the archive does not implement Truncate.
	ErrTruncateUnsupported = errors.New("pkgarchive: storage does not support truncate")

	// ErrWriteUnsupported is returned by mutating methods when the storage
	// backing the archive does not implement Write.
	ErrWriteUnsupported = errors.New("pkgarchive: storage does not support writing")
)

// ParseError wraps a domain error encountered while parsing an archive with
// the field values observed on disk, when the domain error carries extra
// context (a mismatched size, an unrecognised flag bit). For errors that
// carry no extra context it is equivalent to the bare sentinel.
type ParseError struct {
	Err error // one of the Err* sentinels above, or a wrapped I/O error

	// Observed is the unexpected value that triggered the error, when
	// applicable (header/entry size, flag bits). Zero otherwise.
	Observed uint32
	// Path is set for ErrDuplicatePath. ErrNonASCIIPath is returned as the
	// bare sentinel, without a ParseError.
	Path string
}

func (e *ParseError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMismatchedHeaderSize):
		return fmt.Sprintf("pkgarchive: mismatched header size %d (want 16)", e.Observed)
	case errors.Is(e.Err, ErrMismatchedEntrySize):
		return fmt.Sprintf("pkgarchive: mismatched entry size %d (want 20)", e.Observed)
	case errors.Is(e.Err, ErrUnrecognisedEntryFlags):
		return fmt.Sprintf("pkgarchive: entry has unrecognised flags %#08x", e.Observed)
	case errors.Is(e.Err, ErrDuplicatePath):
		return fmt.Sprintf("pkgarchive: archive contains two entries with the same path %q", e.Path)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "pkgarchive: parse error"
	}
}

func (e *ParseError) Unwrap() error { return e.Err }
