package pkgarchive

import (
	"io"
)

// Parse reconstructs an Archive from storage that already holds a valid
// PKG archive. If expectMagic is true (the common case), the first four
// bytes must be the literal magic "PKG\n"; pass false only when the
// archive is known to be embedded after some other framing that has
// already consumed/validated the magic itself.
func Parse(storage ReadSeeker, expectMagic bool) (*Archive, error) {
	if _, err := storage.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if expectMagic {
		var got [4]byte
		if _, err := io.ReadFull(storage, got[:]); err != nil {
			return nil, err
		}
		if got != magic {
			return nil, &ParseError{Err: ErrMismatchedMagic}
		}
	}

	var head [4]byte
	if _, err := io.ReadFull(storage, head[:]); err != nil {
		return nil, err
	}
	if hs := beUint16(head[0:2]); uint64(hs) != headerSize {
		return nil, &ParseError{Err: ErrMismatchedHeaderSize, Observed: uint32(hs)}
	}
	if es := beUint16(head[2:4]); uint64(es) != entrySize {
		return nil, &ParseError{Err: ErrMismatchedEntrySize, Observed: uint32(es)}
	}

	streamLength, err := streamLen(storage)
	if err != nil {
		return nil, err
	}

	// The header is 4 bytes shorter in a stream that carries no magic.
	headerLen := int64(headerSize)
	if !expectMagic {
		headerLen -= int64(len(magic))
	}

	var counts [8]byte
	if _, err := io.ReadFull(storage, counts[:]); err != nil {
		return nil, err
	}
	entryCount := beUint32(counts[0:4])
	if headerLen+int64(entryCount)*entrySize > streamLength {
		return nil, &ParseError{Err: ErrEntryOverflow}
	}

	pathRegionSize := beUint32(counts[4:8])
	if headerLen+int64(entryCount)*entrySize+int64(pathRegionSize) > streamLength {
		return nil, &ParseError{Err: ErrPathOverflow}
	}

	entries := make([]*entry, entryCount)
	recordBuf := make([]byte, entrySize)
	for i := range entries {
		if _, err := io.ReadFull(storage, recordBuf); err != nil {
			return nil, err
		}
		e, err := decodeEntry(recordBuf)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}

	pathRegion := make([]byte, pathRegionSize)
	if _, err := io.ReadFull(storage, pathRegion); err != nil {
		return nil, err
	}

	pathToIdx := make(map[string]int, entryCount)
	for i, e := range entries {
		if e == nil {
			continue
		}
		path, err := decodeNULPath(pathRegion, e.relPathOffset)
		if err != nil {
			return nil, err
		}
		e.path = path
		if _, dup := pathToIdx[path]; dup {
			return nil, &ParseError{Err: ErrDuplicatePath, Path: path}
		}
		pathToIdx[path] = i
	}

	st := &state{
		pathRegionSize:        pathRegionSize,
		pathRegionEmptyOffset: trailingUsedOffset(pathRegion),
		entries:               entries,
		pathToIdx: pathToIdx,
	}

	return &Archive{state: st, storage: storage, opts: DefaultOptions()}, nil
}

// trailingUsedOffset derives pathRegionEmptyOffset by scanning the path
// blob's trailing zero bytes: the single NUL terminating the last used
// path counts as part of the used prefix, everything after it is free.
func trailingUsedOffset(pathRegion []byte) uint32 {
	n := len(pathRegion)
	trailingZeros := 0
	for n-trailingZeros-1 >= 0 && pathRegion[n-trailingZeros-1] == 0 {
		trailingZeros++
	}
	free := trailingZeros - 1
	if free < 0 {
		free = 0
	}
	return uint32(n - free)
}

// Create initializes a fresh archive in storage: magic, header sizes,
// InitialEntrySlots empty slots, and a path region sized
// InitialEntrySlots*PathBytesPerSlot, all zero-filled. It does not
// truncate any trailing bytes already present in storage beyond what it
// writes, so a caller can Create into a pre-allocated, larger file.
func Create(storage ReadWriteSeeker, opts *Options) (*Archive, error) {
	opts = opts.orDefault()

	if _, err := storage.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := storage.Write(magic[:]); err != nil {
		return nil, err
	}

	var head [4]byte
	bePutUint16(head[0:2], headerSize)
	bePutUint16(head[2:4], entrySize)
	if _, err := storage.Write(head[:]); err != nil {
		return nil, err
	}

	initialEntryCount := opts.InitialEntrySlots
	initialPathRegionSize := initialEntryCount * opts.PathBytesPerSlot

	var counts [8]byte
	bePutUint32(counts[0:4], initialEntryCount)
	bePutUint32(counts[4:8], initialPathRegionSize)
	if _, err := storage.Write(counts[:]); err != nil {
		return nil, err
	}

	if err := fill(storage, 0, int64(initialEntryCount)*entrySize+int64(initialPathRegionSize)); err != nil {
		return nil, err
	}

	st := &state{
		pathRegionSize: initialPathRegionSize,
		entries:        make([]*entry, initialEntryCount),
		pathToIdx:      make(map[string]int),
	}

	return &Archive{state: st, storage: storage, opts: opts}, nil
}
