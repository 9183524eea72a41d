package pkgarchive

import (
	"log/slog"
)

// Archive is a handle to a parsed or newly created PKG archive: the
// in-memory state plus the storage it was built from. Archive is not safe
// for concurrent use, and a method that returns a ReadHandle or WriteHandle
// borrows the Archive exclusively until that handle is closed/finished —
// calling another mutating method on the Archive while such a handle is
// live will corrupt the stream position and is a programming error this
// package does not detect for you (see spec.md's concurrency model).
type Archive struct {
	state   *state
	storage ReadSeeker
	opts    *Options
	logger  *slog.Logger
}

// SetOptions replaces the preallocation tunables used by subsequent growth
// operations on an already-open Archive. It has no effect on bytes already
// committed to storage.
func (a *Archive) SetOptions(opts *Options) {
	a.opts = opts.orDefault()
}

// SetLogger replaces the logger used for internal tracing and non-fatal
// warnings. The default is slog.Default().
func (a *Archive) SetLogger(logger *slog.Logger) {
	a.logger = logger
}

func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// Contains reports whether path names an entry in the archive.
func (a *Archive) Contains(path string) bool {
	return a.state.contains(path)
}

// Paths returns every path currently in the archive, in unspecified order.
func (a *Archive) Paths() []string {
	return a.state.paths()
}

// writable recovers write capability from the storage handed to Parse or
// Create. FileStorage and MemStorage always satisfy this; a caller that
// constructed an Archive from a bare ReadSeeker (read-only use) gets a
// clear error instead of a panic if they then try to mutate it.
func (a *Archive) writable() (ReadWriteSeeker, error) {
	rw, ok := a.storage.(ReadWriteSeeker)
	if !ok {
		return nil, ErrWriteUnsupported
	}
	return rw, nil
}

// truncatable recovers truncate capability from the storage handed to
// Parse or Create, as required by Repack.
func (a *Archive) truncatable() (ReadWriteSeekTruncater, error) {
	t, ok := a.storage.(ReadWriteSeekTruncater)
	if !ok {
		return nil, ErrTruncateUnsupported
	}
	return t, nil
}

// syncer is satisfied by storage backends (like *os.File, via FileStorage)
// that can flush buffered writes to their underlying medium.
type syncer interface {
	Sync() error
}

// Flush pushes any writes already issued against this Archive's storage
// down to the underlying medium. It is a no-op for storage backends, such
// as MemStorage, that have no buffering layer of their own to flush.
func (a *Archive) Flush() error {
	if s, ok := a.storage.(syncer); ok {
		return s.Sync()
	}
	return nil
}
