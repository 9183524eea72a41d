package pkgarchive

import "encoding/binary"

// bePutUint32 writes v to buf[:4] as big-endian. A tiny wrapper kept local
// to this package so call sites read "be" the way the format's own field
// table is laid out, rather than reaching for encoding/binary directly at
// every header-field write site.
func bePutUint32(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

func bePutUint16(buf []byte, v uint16) {
	binary.BigEndian.PutUint16(buf, v)
}

func beUint32(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

func beUint16(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf)
}

// decodeNULPath extracts the NUL-terminated ASCII path starting at offset
// within region. It returns ErrNonASCIIPath if any byte before the
// terminator falls outside 0x01-0x7F.
func decodeNULPath(region []byte, offset uint32) (string, error) {
	i := int(offset)
	start := i
	for i < len(region) && region[i] != 0 {
		if region[i] > 0x7F {
			return "", ErrNonASCIIPath
		}
		i++
	}
	return string(region[start:i]), nil
}
