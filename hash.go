package pkgarchive

// Format constants. These are byte-exact and never change across archives;
// they are not part of Options.
const (
	headerSize = 16
	entrySize  = 20

	flagDeflated uint32 = 1 << 24
	// knownFlagsMask is the set of high-byte bits (bits 24-31 of the packed
	// path-offset-and-flags field) this package recognises. Any bit set
	// outside this mask fails parsing with ErrUnrecognisedEntryFlags.
	knownFlagsMask uint32 = flagDeflated

	pathOffsetMask uint32 = 0x00FFFFFF
)

var magic = [4]byte{'P', 'K', 'G', '\n'}

// pathHash computes the format-defined 32-bit rolling hash of path. The
// hash is case-insensitive (ASCII-only lowercasing) and is used purely as
// an on-disk hint for tooling that wants to sort or bucket by hash; lookup
// by exact path never uses it. The case-insensitivity is a property of the
// wire format, not a design choice of this package, and coexists with
// case-sensitive path identity: "Foo" and "foo" hash identically but remain
// distinct entries.
func pathHash(path string) uint32 {
	var h uint32
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		h = (h << 27) | (h >> 5)
		h ^= uint32(c)
	}
	return h
}
