package pkgarchive

import (
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
)

// WriteHandle is returned by Insert and streams one new entry's bytes into
// storage. The entry's table record is not written until the handle is
// finalized with Finish or Close — until then the entry exists only as a
// reserved path-region/entry-table slot. Unlike the reference
// implementation's scope-exit finalization, Go has no destructors: a
// WriteHandle that is never closed leaves its slot's on-disk record zeroed
// forever (it still parses fine, just as an empty slot), so callers must
// always call Close.
type WriteHandle struct {
	archive       *Archive
	rw            ReadWriteSeeker
	path          string
	relPathOffset uint32
	slot          int
	flags         Flags

	raw      *rawWriteState
	deflate  *deflateWriteState
	finished bool
}

type rawWriteState struct {
	offset int64
	size   int64
}

type deflateWriteState struct {
	offset       int64
	unpackedSize int64
	sink         *countingWriter
	fw           *flate.Writer
}

// countingWriter forwards writes to storage (which is assumed to be
// positioned, and to stay positioned, at the write handle's current data
// cursor) and counts the bytes actually written, which becomes the entry's
// stored data_size for compressed entries.
type countingWriter struct {
	w ReadWriteSeeker
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Insert reserves a new entry named path with the given compression flags
// and returns a handle to stream its bytes. It fails with ErrAlreadyExists
// if path is already present.
func (a *Archive) Insert(path string, flags Flags) (*WriteHandle, error) {
	rw, err := a.writable()
	if err != nil {
		return nil, err
	}
	if a.state.contains(path) {
		return nil, ErrAlreadyExists
	}

	slot := a.state.lowestEmptySlot()
	if slot == -1 {
		slot = len(a.state.entries)
		if err := a.state.reserveEntries(rw, a.log(), a.opts, a.opts.EntryGrowthBurst); err != nil {
			return nil, err
		}
	}

	relOffset, err := a.state.insertPathIntoPathRegion(rw, a.log(), a.opts, path)
	if err != nil {
		return nil, err
	}
	a.state.pathToIdx[path] = slot

	dataOffset, err := rw.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	wh := &WriteHandle{
		archive:       a,
		rw:            rw,
		path:          path,
		relPathOffset: relOffset,
		slot:          slot,
		flags:         flags,
	}

	switch flags.Compression {
	case Deflate:
		level := flate.DefaultCompression
		if flags.Level != nil {
			level = *flags.Level
		}
		sink := &countingWriter{w: rw}
		fw, err := flate.NewWriter(sink, level)
		if err != nil {
			return nil, err
		}
		wh.deflate = &deflateWriteState{offset: dataOffset, sink: sink, fw: fw}
	default:
		wh.raw = &rawWriteState{offset: dataOffset}
	}

	return wh, nil
}

// Write streams len(p) bytes into the entry's data. For a raw entry this
// passes bytes straight through; for a Deflate entry it feeds the
// compressor, which may or may not produce output for this call.
func (wh *WriteHandle) Write(p []byte) (int, error) {
	if wh.finished {
		return 0, errors.New("pkgarchive: write to a finished WriteHandle")
	}
	if wh.raw != nil {
		n, err := wh.rw.Write(p)
		wh.raw.size += int64(n)
		return n, err
	}
	n, err := wh.deflate.fw.Write(p)
	wh.deflate.unpackedSize += int64(n)
	return n, err
}

// IsCompressed reports whether this handle was opened with Deflate.
func (wh *WriteHandle) IsCompressed() bool { return wh.deflate != nil }

func (wh *WriteHandle) offsetAndSize() (offset, size, unpacked int64) {
	if wh.raw != nil {
		return wh.raw.offset, wh.raw.size, wh.raw.size
	}
	return wh.deflate.offset, wh.deflate.sink.n, wh.deflate.unpackedSize
}

// finalize drains the deflate compressor (if any) with a finishing flush,
// synthesizes the entry record, writes it at the entry table slot, and
// installs the finished entry into the archive's in-memory state.
func (wh *WriteHandle) finalize(final bool) error {
	if wh.deflate != nil {
		if final {
			if err := wh.deflate.fw.Close(); err != nil {
				return err
			}
		} else if err := wh.deflate.fw.Flush(); err != nil {
			return err
		}
	}

	offset, size, unpacked := wh.offsetAndSize()

	e := &entry{
		pathHash:      pathHash(wh.path),
		relPathOffset: wh.relPathOffset,
		path:          wh.path,
		dataOffset:    uint32(offset),
		dataSize:      uint32(size),
		unpackedSize:  uint32(unpacked),
		deflated:      wh.deflate != nil,
	}

	if _, err := wh.rw.Seek(wh.archive.state.entryRecordOffset(wh.slot), io.SeekStart); err != nil {
		return err
	}
	var buf [entrySize]byte
	e.encode(buf[:])
	if _, err := wh.rw.Write(buf[:]); err != nil {
		return err
	}

	wh.archive.state.entries[wh.slot] = e
	return nil
}

// Flush writes the entry's partial record at its correct table offset
// (without marking the handle finished) and repositions storage back to
// the write cursor, so subsequent Write calls continue the blob.
func (wh *WriteHandle) Flush() error {
	if err := wh.finalize(false); err != nil {
		return err
	}
	offset, size, _ := wh.offsetAndSize()
	_, err := wh.rw.Seek(offset+size, io.SeekStart)
	return err
}

// Finish finalizes the entry: draining any pending compressed output,
// writing the final entry record, and marking the handle unusable for
// further writes. Finish (or Close) must be called for the entry to
// actually appear in the archive.
func (wh *WriteHandle) Finish() error {
	if wh.finished {
		return nil
	}
	wh.finished = true
	return wh.finalize(true)
}

// Close is an alias for Finish, so WriteHandle satisfies io.WriteCloser.
func (wh *WriteHandle) Close() error { return wh.Finish() }
