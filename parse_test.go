package pkgarchive

import (
	"errors"
	"testing"
)

// buildHeader assembles the fixed 16-byte header with the given
// entry_count/path_region_size, for hand-rolled malformed-archive tests.
func buildHeader(entryCount, pathRegionSize uint32) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	bePutUint16(buf[4:6], headerSize)
	bePutUint16(buf[6:8], entrySize)
	bePutUint32(buf[8:12], entryCount)
	bePutUint32(buf[12:16], pathRegionSize)
	return buf
}

func TestParseMismatchedMagic(t *testing.T) {
	raw := append([]byte("XXXX"), buildHeader(0, 0)[4:]...)
	_, err := Parse(NewMemStorage(raw), true)
	if !errors.Is(err, ErrMismatchedMagic) {
		t.Fatalf("err = %v, want ErrMismatchedMagic", err)
	}
}

func TestParseSkipsMagicWhenNotExpected(t *testing.T) {
	raw := buildHeader(0, 0)[4:] // no magic prefix at all
	_, err := Parse(NewMemStorage(raw), false)
	if err != nil {
		t.Fatalf("Parse with expectMagic=false: %v", err)
	}
}

func TestParseMismatchedHeaderSize(t *testing.T) {
	raw := buildHeader(0, 0)
	bePutUint16(raw[4:6], 99)
	_, err := Parse(NewMemStorage(raw), true)
	var pe *ParseError
	if !errors.As(err, &pe) || !errors.Is(pe.Err, ErrMismatchedHeaderSize) {
		t.Fatalf("err = %v, want ErrMismatchedHeaderSize", err)
	}
	if pe.Observed != 99 {
		t.Fatalf("Observed = %d, want 99", pe.Observed)
	}
}

func TestParseMismatchedEntrySize(t *testing.T) {
	raw := buildHeader(0, 0)
	bePutUint16(raw[6:8], 99)
	_, err := Parse(NewMemStorage(raw), true)
	if !errors.Is(err, ErrMismatchedEntrySize) {
		t.Fatalf("err = %v, want ErrMismatchedEntrySize", err)
	}
}

func TestParseEntryOverflow(t *testing.T) {
	// Claims 5 entries (100 bytes) but the stream is only the header.
	raw := buildHeader(5, 0)
	_, err := Parse(NewMemStorage(raw), true)
	if !errors.Is(err, ErrEntryOverflow) {
		t.Fatalf("err = %v, want ErrEntryOverflow", err)
	}
}

func TestParsePathOverflow(t *testing.T) {
	// Zero entries but a path region claimed larger than the stream.
	raw := buildHeader(0, 100)
	_, err := Parse(NewMemStorage(raw), true)
	if !errors.Is(err, ErrPathOverflow) {
		t.Fatalf("err = %v, want ErrPathOverflow", err)
	}
}

func TestParseUnrecognisedEntryFlags(t *testing.T) {
	raw := buildHeader(1, 8)
	rec := make([]byte, entrySize)
	bePutUint32(rec[0:4], 0x1234)
	// data_offset must be non-zero for this to not be read as an empty
	// slot, and the flag bits above pathOffsetMask must include something
	// outside knownFlagsMask.
	bePutUint32(rec[4:8], 0|(1<<25))
	bePutUint32(rec[8:12], 1)
	bePutUint32(rec[12:16], 1)
	bePutUint32(rec[16:20], 1)
	raw = append(raw, rec...)
	raw = append(raw, make([]byte, 8)...)

	_, err := Parse(NewMemStorage(raw), true)
	if !errors.Is(err, ErrUnrecognisedEntryFlags) {
		t.Fatalf("err = %v, want ErrUnrecognisedEntryFlags", err)
	}
}

func TestParseNonASCIIPath(t *testing.T) {
	raw := buildHeader(1, 8)
	rec := make([]byte, entrySize)
	bePutUint32(rec[4:8], 0) // relPathOffset 0
	bePutUint32(rec[8:12], 1)
	bePutUint32(rec[12:16], 0)
	bePutUint32(rec[16:20], 0)
	raw = append(raw, rec...)
	raw = append(raw, 0xFF, 0, 0, 0, 0, 0, 0, 0)

	_, err := Parse(NewMemStorage(raw), true)
	if !errors.Is(err, ErrNonASCIIPath) {
		t.Fatalf("err = %v, want ErrNonASCIIPath", err)
	}
}

func TestParseDuplicatePath(t *testing.T) {
	raw := buildHeader(2, 8)
	rec1 := make([]byte, entrySize)
	bePutUint32(rec1[4:8], 0)
	bePutUint32(rec1[8:12], 1)
	bePutUint32(rec1[12:16], 0)
	bePutUint32(rec1[16:20], 0)

	rec2 := make([]byte, entrySize)
	bePutUint32(rec2[4:8], 0) // same relPathOffset -> same path "a"
	bePutUint32(rec2[8:12], 1)
	bePutUint32(rec2[12:16], 0)
	bePutUint32(rec2[16:20], 0)

	raw = append(raw, rec1...)
	raw = append(raw, rec2...)
	raw = append(raw, 'a', 0, 0, 0, 0, 0, 0, 0)

	_, err := Parse(NewMemStorage(raw), true)
	var pe *ParseError
	if !errors.As(err, &pe) || !errors.Is(pe.Err, ErrDuplicatePath) {
		t.Fatalf("err = %v, want ErrDuplicatePath", err)
	}
	if pe.Path != "a" {
		t.Fatalf("Path = %q, want %q", pe.Path, "a")
	}
}

func TestCreateThenParseRoundTrip(t *testing.T) {
	storage := NewMemStorage(nil)
	created, err := Create(storage, DefaultOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Paths()) != 0 {
		t.Fatalf("freshly created archive has paths: %v", created.Paths())
	}

	parsed, err := Parse(NewMemStorage(storage.Bytes()), true)
	if err != nil {
		t.Fatalf("Parse(Create(...)): %v", err)
	}
	if len(parsed.Paths()) != 0 {
		t.Fatalf("parsed fresh archive has paths: %v", parsed.Paths())
	}
}
