package pkgarchive

// CompressionKind selects how Insert stores a new entry's bytes.
type CompressionKind int

const (
	// NoCompression stores bytes verbatim.
	NoCompression CompressionKind = iota
	// Deflate stores bytes through a raw DEFLATE stream.
	Deflate
)

// Flags configures a new entry at Insert time. The zero value is
// NoCompression.
type Flags struct {
	Compression CompressionKind
	// Level is the DEFLATE compression level, 0-9 inclusive, used only
	// when Compression is Deflate. 0 is itself a valid, distinct level
	// (store-only, minimal compression effort) rather than a sentinel for
	// "unspecified", so a literal 0 cannot stand for "use the default". A
	// nil Level — including a zero-value Flags{Compression: Deflate} —
	// means "unspecified" and falls back to flate.DefaultCompression. Use
	// DeflateLevel to build a non-nil *int without a local variable.
	Level *int
}

// DeflateLevel returns a pointer to level, for use as Flags.Level.
func DeflateLevel(level int) *int {
	return &level
}
