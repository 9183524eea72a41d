package pkgarchive

import (
	"io"
	"log/slog"
)

// pushBackDataRegion ensures no occupied entry's data lies below minOffset,
// relocating any that do to the current stream end. It never rewrites the
// header's region-size fields — only entry records and raw bytes move.
func (s *state) pushBackDataRegion(rw ReadWriteSeeker, log *slog.Logger, minOffset int64) error {
	log.Debug("pushing back data region", "min_offset", minOffset)

	var moved int
	for i, e := range s.entries {
		if e == nil || int64(e.dataOffset) >= minOffset {
			continue
		}

		newOffset, err := rw.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		oldOffset := int64(e.dataOffset)

		if err := copyWithin(rw, oldOffset, int64(e.dataSize), newOffset); err != nil {
			return err
		}
		e.dataOffset = uint32(newOffset)

		if _, err := rw.Seek(s.entryRecordOffset(i), io.SeekStart); err != nil {
			return err
		}
		var buf [entrySize]byte
		e.encode(buf[:])
		if _, err := rw.Write(buf[:]); err != nil {
			return err
		}
		moved++
	}
	log.Debug("pushed back data region", "entries_moved", moved)
	return nil
}

// pushBackAndResizePathRegion pushes the data region behind
// offset+newSize, copies the existing path bytes to offset, and updates
// pathRegionSize in memory and on disk.
func (s *state) pushBackAndResizePathRegion(rw ReadWriteSeeker, log *slog.Logger, offset int64, newSize uint32) error {
	log.Debug("resizing path region", "offset", offset, "new_size", newSize)

	if err := s.pushBackDataRegion(rw, log, offset+int64(newSize)); err != nil {
		return err
	}

	if err := copyWithin(rw, s.pathRegionOffset(), int64(s.pathRegionSize), offset); err != nil {
		return err
	}

	s.pathRegionSize = newSize
	if err := s.writePathRegionSizeHeader(rw); err != nil {
		return err
	}
	return nil
}

// reservePathSpace grows the path region by amount bytes, zero-filling the
// new tail.
func (s *state) reservePathSpace(rw ReadWriteSeeker, log *slog.Logger, amount uint32) error {
	log.Debug("reserving path space", "amount", amount)

	newSize := s.pathRegionSize + amount
	newStart := s.pathRegionOffset()
	newEnd := newStart + int64(newSize)

	if err := s.pushBackDataRegion(rw, log, newEnd); err != nil {
		return err
	}

	if _, err := rw.Seek(newStart+int64(s.pathRegionEmptyOffset), io.SeekStart); err != nil {
		return err
	}
	if err := fill(rw, 0, int64(newSize-s.pathRegionEmptyOffset)); err != nil {
		return err
	}

	s.pathRegionSize = newSize
	return s.writePathRegionSizeHeader(rw)
}

// reserveEntries grows the entry table by amount slots, preallocating a
// proportional burst of path-region space at the same time so the common
// case of many small inserts doesn't repeatedly reshuffle the path region.
func (s *state) reserveEntries(rw ReadWriteSeeker, log *slog.Logger, opts *Options, amount uint32) error {
	log.Debug("reserving entries", "amount", amount)

	extraEntrySpace := int64(amount) * entrySize
	extraPathSpace := amount * opts.PathBytesPerSlot

	growStart := s.entryListOffset() + int64(len(s.entries))*entrySize
	newPathRegionOffset := growStart + extraEntrySpace

	if err := s.pushBackAndResizePathRegion(rw, log, newPathRegionOffset, s.pathRegionSize+extraPathSpace); err != nil {
		return err
	}

	if _, err := rw.Seek(growStart, io.SeekStart); err != nil {
		return err
	}
	if err := fill(rw, 0, extraEntrySpace); err != nil {
		return err
	}

	for i := uint32(0); i < amount; i++ {
		s.entries = append(s.entries, nil)
	}

	return s.writeEntryCountHeader(rw)
}

// insertPathIntoPathRegion appends path (NUL-terminated) at the current
// empty offset, growing the path region first if it wouldn't fit, and
// returns the relative offset the path was written at.
func (s *state) insertPathIntoPathRegion(rw ReadWriteSeeker, log *slog.Logger, opts *Options, path string) (uint32, error) {
	log.Debug("inserting path into path region", "path", path, "empty_offset", s.pathRegionEmptyOffset, "region_size", s.pathRegionSize)

	needed := uint32(len(path)) + 1
	if s.pathRegionEmptyOffset+needed >= s.pathRegionSize {
		if err := s.reservePathSpace(rw, log, opts.PathGrowthBurst(len(path))); err != nil {
			return 0, err
		}
	}

	offset := s.pathRegionEmptyOffset

	if _, err := rw.Seek(s.pathRegionOffset()+int64(offset), io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := rw.Write(append([]byte(path), 0)); err != nil {
		return 0, err
	}

	s.pathRegionEmptyOffset += needed
	return offset, nil
}

func (s *state) writePathRegionSizeHeader(rw ReadWriteSeeker) error {
	if _, err := rw.Seek(12, io.SeekStart); err != nil {
		return err
	}
	var buf [4]byte
	bePutUint32(buf[:], s.pathRegionSize)
	_, err := rw.Write(buf[:])
	return err
}

func (s *state) writeEntryCountHeader(rw ReadWriteSeeker) error {
	if _, err := rw.Seek(8, io.SeekStart); err != nil {
		return err
	}
	var buf [4]byte
	bePutUint32(buf[:], uint32(len(s.entries)))
	_, err := rw.Write(buf[:])
	return err
}
