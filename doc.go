/*
Package pkgarchive reads, mutates, and rewrites PKG archives: a flat binary
container format that stores a set of named byte blobs, each optionally
compressed with raw DEFLATE.

The format itself is simple — a 16-byte header, a table of fixed-size entry
records, a NUL-terminated path table, and a data region — but this package's
job is the part that isn't simple: mutating an archive in place against a
single random-access backing store (a file, an in-memory buffer, or any
io.ReadWriteSeeker) without ever holding the whole archive in memory, and
without leaving the archive unparseable if the process is interrupted
between writes.

# Quick start

To open an existing archive use [Parse]. To build a new one use [Create].
Both return an [Archive], which exposes [Archive.Insert], [Archive.Remove],
[Archive.Rename], [Archive.Replace], and [Archive.Repack] for mutation, and
[Archive.Open] for reading entries back out.

# Storage

[Archive] operates against any [ReadWriteSeekTruncater]. Two implementations
ship here: [FileStorage] wraps an *os.File, and [MemStorage] is a growable
in-memory buffer. [Archive.Repack] is the only operation that needs to shrink the
stream; storage that can't truncate can still be used for everything else
via the narrower [ReadWriteSeeker] interface.

Information sources for the wire format this package implements:

  - the PKG container format as used by the SIL engine (achurch.org/SIL)
  - general prior art in named-blob archive formats with hash-hinted
    lookup tables (MoPaQ/MPQ, WAD, PAK-style containers)
*/
package pkgarchive
