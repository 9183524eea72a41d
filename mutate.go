package pkgarchive

import (
	"io"
	"log/slog"
	"sort"
)

// Remove deletes path from the archive. The entry's data bytes remain in
// storage, unreferenced, until Repack reclaims them.
func (a *Archive) Remove(path string) error {
	rw, err := a.writable()
	if err != nil {
		return err
	}

	idx, ok := a.state.pathToIdx[path]
	if !ok {
		return ErrNotFound
	}

	delete(a.state.pathToIdx, path)
	a.state.entries[idx] = nil

	if _, err := rw.Seek(a.state.entryRecordOffset(idx), io.SeekStart); err != nil {
		return err
	}
	var buf [entrySize]byte
	writeEmptyEntry(buf[:])
	_, err = rw.Write(buf[:])
	return err
}

// Rename moves the entry at src to dst, preserving its data. If src was the
// most recently inserted path (its bytes end at the path region's current
// empty offset) the rename extends the path region in place; otherwise the
// new path is appended and the old bytes become garbage reclaimed at the
// next Repack.
func (a *Archive) Rename(src, dst string) error {
	rw, err := a.writable()
	if err != nil {
		return err
	}
	return a.state.rename(rw, a.log(), a.opts, src, dst)
}

func (s *state) rename(rw ReadWriteSeeker, log *slog.Logger, opts *Options, src, dst string) error {
	idx, ok := s.pathToIdx[src]
	if !ok {
		return ErrNotFound
	}
	if _, exists := s.pathToIdx[dst]; exists {
		return ErrAlreadyExists
	}

	e := s.entries[idx]
	delete(s.pathToIdx, src)

	if int(e.relPathOffset)+len(src)+1 == int(s.pathRegionEmptyOffset) {
		// src's bytes are the last thing written into the path region: grow
		// in place (only if dst needs more room than is currently free) and
		// overwrite.
		relOffset := e.relPathOffset
		newEmptyOffset := relOffset + uint32(len(dst)) + 1

		if newEmptyOffset > s.pathRegionSize {
			if err := s.reservePathSpace(rw, log, newEmptyOffset-s.pathRegionSize); err != nil {
				return err
			}
		}
		s.pathRegionEmptyOffset = newEmptyOffset

		if _, err := rw.Seek(s.pathRegionOffset()+int64(relOffset), io.SeekStart); err != nil {
			return err
		}
		if _, err := rw.Write(append([]byte(dst), 0)); err != nil {
			return err
		}
	} else {
		// The old path is not at the tail: append dst fresh and leave the
		// old bytes as garbage for the next Repack to reclaim.
		newOffset, err := s.insertPathIntoPathRegion(rw, log, opts, dst)
		if err != nil {
			return err
		}
		e.relPathOffset = newOffset
	}

	e.path = dst
	e.pathHash = pathHash(dst)
	s.pathToIdx[dst] = idx

	if _, err := rw.Seek(s.entryRecordOffset(idx), io.SeekStart); err != nil {
		return err
	}
	var buf [entrySize]byte
	e.encode(buf[:])
	_, err := rw.Write(buf[:])
	return err
}

// Replace makes dst's data identical to src's and removes src. If dst does
// not already exist this is exactly Rename(src, dst); if dst exists, its
// previous data becomes garbage reclaimed at the next Repack.
func (a *Archive) Replace(src, dst string) error {
	rw, err := a.writable()
	if err != nil {
		return err
	}

	_, srcOK := a.state.pathToIdx[src]
	if !srcOK {
		return ErrNotFound
	}
	dstIdx, dstOK := a.state.pathToIdx[dst]
	if !dstOK {
		return a.state.rename(rw, a.log(), a.opts, src, dst)
	}
	srcIdx := a.state.pathToIdx[src]

	srcEntry := a.state.entries[srcIdx]
	dstEntry := a.state.entries[dstIdx]

	dstEntry.dataOffset = srcEntry.dataOffset
	dstEntry.dataSize = srcEntry.dataSize
	dstEntry.unpackedSize = srcEntry.unpackedSize
	dstEntry.deflated = srcEntry.deflated

	delete(a.state.pathToIdx, src)
	a.state.entries[srcIdx] = nil

	if _, err := rw.Seek(a.state.entryRecordOffset(srcIdx), io.SeekStart); err != nil {
		return err
	}
	var empty [entrySize]byte
	writeEmptyEntry(empty[:])
	if _, err := rw.Write(empty[:]); err != nil {
		return err
	}

	if _, err := rw.Seek(a.state.entryRecordOffset(dstIdx), io.SeekStart); err != nil {
		return err
	}
	var buf [entrySize]byte
	dstEntry.encode(buf[:])
	_, err = rw.Write(buf[:])
	return err
}

// Repack compacts the archive: drops tombstones, packs data blobs
// contiguously with no gaps, sorts entries by path hash on disk, shrinks
// the path region to exactly fit the remaining paths, and truncates the
// stream to the new end. It requires storage that supports Truncate.
func (a *Archive) Repack() error {
	rw, err := a.truncatable()
	if err != nil {
		return err
	}
	return a.state.repack(rw, a.log())
}

func (s *state) repack(rw ReadWriteSeekTruncater, log *slog.Logger) error {
	compact := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e != nil {
			compact = append(compact, e)
		}
	}

	sort.Slice(compact, func(i, j int) bool {
		a, b := compact[i], compact[j]
		if a.dataOffset != b.dataOffset {
			return a.dataOffset < b.dataOffset
		}
		return a.dataSize < b.dataSize
	})

	for i := 1; i < len(compact); i++ {
		prev, cur := compact[i-1], compact[i]
		if prev.dataOffset+prev.dataSize > cur.dataOffset {
			return ErrOverlappingEntries
		}
	}

	pathRegionSize := 0
	for _, e := range compact {
		pathRegionSize += len(e.path) + 1
	}

	pathRegionOffset := headerSize + int64(len(compact))*entrySize
	dataRegionStart := pathRegionOffset + int64(pathRegionSize)

	log.Debug("repacking", "entries", len(compact), "path_region_size", pathRegionSize, "data_region_start", dataRegionStart)

	if _, err := rw.Seek(pathRegionOffset, io.SeekStart); err != nil {
		return err
	}
	for _, e := range compact {
		pos, err := rw.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		e.relPathOffset = uint32(pos - pathRegionOffset)
		if _, err := rw.Write(append([]byte(e.path), 0)); err != nil {
			return err
		}
	}

	cursor := dataRegionStart
	for _, e := range compact {
		if cursor != int64(e.dataOffset) {
			if err := copyWithin(rw, int64(e.dataOffset), int64(e.dataSize), cursor); err != nil {
				return err
			}
			e.dataOffset = uint32(cursor)
		}
		cursor += int64(e.dataSize)
	}

	sort.Slice(compact, func(i, j int) bool { return compact[i].pathHash < compact[j].pathHash })

	s.entries = compact
	s.pathRegionSize = uint32(pathRegionSize)
	s.pathRegionEmptyOffset = uint32(pathRegionSize)
	s.pathToIdx = make(map[string]int, len(compact))
	for i, e := range compact {
		s.pathToIdx[e.path] = i
	}

	if _, err := rw.Seek(8, io.SeekStart); err != nil {
		return err
	}
	var counts [8]byte
	bePutUint32(counts[0:4], uint32(len(compact)))
	bePutUint32(counts[4:8], uint32(pathRegionSize))
	if _, err := rw.Write(counts[:]); err != nil {
		return err
	}

	for _, e := range compact {
		var buf [entrySize]byte
		e.encode(buf[:])
		if _, err := rw.Write(buf[:]); err != nil {
			return err
		}
	}

	return rw.Truncate(cursor)
}
