package pkgarchive

import "encoding/binary"

// entry is the in-memory representation of one occupied entry-table slot.
// A nil *entry in state.entries represents an empty slot (tombstone).
type entry struct {
	pathHash      uint32
	relPathOffset uint32 // offset into the path region, < pathOffsetMask
	path          string
	dataOffset    uint32 // absolute offset into storage
	dataSize      uint32 // stored (possibly compressed) byte count
	unpackedSize  uint32
	deflated      bool
}

// encode writes the 20-byte on-disk record for e into buf[:entrySize].
func (e *entry) encode(buf []byte) {
	var flags uint32
	if e.deflated {
		flags = flagDeflated
	}
	binary.BigEndian.PutUint32(buf[0:4], e.pathHash)
	binary.BigEndian.PutUint32(buf[4:8], e.relPathOffset|flags)
	binary.BigEndian.PutUint32(buf[8:12], e.dataOffset)
	binary.BigEndian.PutUint32(buf[12:16], e.dataSize)
	binary.BigEndian.PutUint32(buf[16:20], e.unpackedSize)
}

// decodeEntry parses a 20-byte on-disk record. It returns (nil, nil) for an
// empty slot (data_offset == 0). path is left empty; the caller fills it in
// once the path region has been read.
func decodeEntry(buf []byte) (*entry, error) {
	pathHash := binary.BigEndian.Uint32(buf[0:4])
	packed := binary.BigEndian.Uint32(buf[4:8])
	dataOffset := binary.BigEndian.Uint32(buf[8:12])
	dataSize := binary.BigEndian.Uint32(buf[12:16])
	unpackedSize := binary.BigEndian.Uint32(buf[16:20])

	if dataOffset == 0 {
		return nil, nil
	}

	relPathOffset := packed & pathOffsetMask
	flagBits := packed &^ pathOffsetMask
	if flagBits&^knownFlagsMask != 0 {
		return nil, &ParseError{Err: ErrUnrecognisedEntryFlags, Observed: flagBits}
	}

	return &entry{
		pathHash:      pathHash,
		relPathOffset: relPathOffset,
		dataOffset:    dataOffset,
		dataSize:      dataSize,
		unpackedSize:  unpackedSize,
		deflated:      flagBits&flagDeflated != 0,
	}, nil
}

func writeEmptyEntry(buf []byte) {
	for i := range buf[:entrySize] {
		buf[i] = 0
	}
}
