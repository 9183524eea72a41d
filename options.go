package pkgarchive

// Options holds the construction-time preallocation tunables from the
// format's configurable-constants table. None of these are on-disk or part
// of the wire format; they only amortize table/path-region growth.
type Options struct {
	// InitialEntrySlots is how many empty entry-table slots Create
	// allocates up front. Default 64.
	InitialEntrySlots uint32
	// PathBytesPerSlot sizes the initial path region as
	// InitialEntrySlots * PathBytesPerSlot. Default 30.
	PathBytesPerSlot uint32
	// EntryGrowthBurst is how many slots reserveEntries adds each time the
	// entry table runs out of empty slots. Default 64.
	EntryGrowthBurst uint32
	// PathGrowthBurst computes how many bytes to add to the path region when
	// inserting a path of length pathLen does not fit. The result is the
	// whole amount reserved, including the pathLen+1 bytes the path and its
	// NUL need. Default: pathLen + 1 + 30*32.
	PathGrowthBurst func(pathLen int) uint32
}

// DefaultOptions returns the tunables the format's own table recommends.
func DefaultOptions() *Options {
	return &Options{
		InitialEntrySlots: 64,
		PathBytesPerSlot:  30,
		EntryGrowthBurst:  64,
		PathGrowthBurst: func(pathLen int) uint32 {
			return uint32(pathLen) + 1 + 30*32
		},
	}
}

func (o *Options) orDefault() *Options {
	if o == nil {
		return DefaultOptions()
	}
	d := *o
	if d.InitialEntrySlots == 0 {
		d.InitialEntrySlots = 64
	}
	if d.PathBytesPerSlot == 0 {
		d.PathBytesPerSlot = 30
	}
	if d.EntryGrowthBurst == 0 {
		d.EntryGrowthBurst = 64
	}
	if d.PathGrowthBurst == nil {
		d.PathGrowthBurst = func(pathLen int) uint32 {
			return uint32(pathLen) + 1 + 30*32
		}
	}
	return &d
}
