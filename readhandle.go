package pkgarchive

import (
	"io"
	"log/slog"

	"github.com/klauspost/compress/flate"
)

// ReadHandle streams one entry's decoded bytes back out of an archive. The
// raw variant supports Seek; the Deflate variant does not (ErrNotSeekable),
// since seeking within a DEFLATE stream would require either buffering the
// whole decompressed blob or re-running the decompressor from the start.
type ReadHandle struct {
	raw     *rawReadHandle
	deflate *deflateReadHandle
}

// Read implements io.Reader.
func (h *ReadHandle) Read(p []byte) (int, error) {
	if h.raw != nil {
		return h.raw.Read(p)
	}
	return h.deflate.Read(p)
}

// Seek implements io.Seeker for raw (uncompressed) entries. It always fails
// with ErrNotSeekable for Deflate entries.
func (h *ReadHandle) Seek(offset int64, whence int) (int64, error) {
	if h.raw == nil {
		return 0, ErrNotSeekable
	}
	return h.raw.Seek(offset, whence)
}

// IsCompressed reports whether the underlying entry is stored DEFLATEd.
func (h *ReadHandle) IsCompressed() bool { return h.deflate != nil }

// boundedStorageReader reads a fixed byte range out of shared storage,
// reseeking before every Read since other handles or archive operations may
// move storage's cursor between calls.
type boundedStorageReader struct {
	rs     ReadSeeker
	offset int64
	size   int64
	cursor int64
}

func (b *boundedStorageReader) Read(p []byte) (int, error) {
	if b.cursor >= b.size {
		return 0, io.EOF
	}
	if remaining := b.size - b.cursor; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	if _, err := b.rs.Seek(b.offset+b.cursor, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := b.rs.Read(p)
	b.cursor += int64(n)
	return n, err
}

// rawReadHandle serves an uncompressed entry's bytes directly out of
// storage, reseeking on every Read/Seek for the same reason
// boundedStorageReader does.
type rawReadHandle struct {
	rs     ReadSeeker
	offset int64
	size   int64
	cursor int64
}

func (h *rawReadHandle) Read(p []byte) (int, error) {
	if h.cursor >= h.size {
		return 0, io.EOF
	}
	if remaining := h.size - h.cursor; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	if _, err := h.rs.Seek(h.offset+h.cursor, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := h.rs.Read(p)
	h.cursor += int64(n)
	return n, err
}

func (h *rawReadHandle) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = h.cursor + offset
	case io.SeekEnd:
		target = h.size + offset
	}
	if target < 0 || target > h.size {
		return 0, ErrSeekOutOfBounds
	}
	h.cursor = target
	return target, nil
}

// deflateReadHandle wraps flate.NewReader over a boundedStorageReader. A
// short compressed stream (decompressor hits EOF before the bounded region
// is exhausted) is not treated as an error: it's logged and the handle
// reports io.EOF, matching the reference implementation's tolerance of
// truncated-but-parseable archives.
type deflateReadHandle struct {
	fr      io.ReadCloser
	bounded *boundedStorageReader
	logger  *slog.Logger
	done    bool
}

func (h *deflateReadHandle) Read(p []byte) (int, error) {
	if h.done {
		return 0, io.EOF
	}
	n, err := h.fr.Read(p)
	if err == io.EOF {
		h.done = true
		if h.bounded.cursor < h.bounded.size {
			h.logger.Warn("deflate stream ended before declared data_size",
				"consumed", h.bounded.cursor, "data_size", h.bounded.size)
		}
	}
	return n, err
}

// Open returns a handle to read path's decoded bytes. It fails with
// ErrNotFound if path is not present, including a path whose Insert has not
// yet been finalized with Finish/Close.
func (a *Archive) Open(path string) (*ReadHandle, error) {
	idx, ok := a.state.pathToIdx[path]
	if !ok {
		return nil, ErrNotFound
	}
	e := a.state.entries[idx]
	if e == nil {
		return nil, ErrNotFound
	}

	if e.deflated {
		bounded := &boundedStorageReader{rs: a.storage, offset: int64(e.dataOffset), size: int64(e.dataSize)}
		fr := flate.NewReader(bounded)
		return &ReadHandle{deflate: &deflateReadHandle{fr: fr, bounded: bounded, logger: a.log()}}, nil
	}

	return &ReadHandle{raw: &rawReadHandle{rs: a.storage, offset: int64(e.dataOffset), size: int64(e.dataSize)}}, nil
}
