//go:build unix

// Platform abstracted file control ops.
//
// Every body takes plain integers and returns the raw error from x/sys/unix,
// callers translate. Operations the platform lacks return ENOSYS, and the
// matching HAVE_* constant is false so callers can refuse them up front.
package system

import "maps"

// Capabilities is fixed at build time by the HAVE_* constants. It is handed
// out by value.
type Capabilities struct {
	DataSync       bool
	Fadvise        bool
	PosixFallocate bool
	Fallocate      bool
	SyncFileRange  bool
}

func Platform() Capabilities {
	return Capabilities{
		DataSync:       true, // fsync fallback everywhere
		Fadvise:        HAVE_FADVISE,
		PosixFallocate: HAVE_POSIX_FALLOCATE,
		Fallocate:      HAVE_FALLOCATE,
		SyncFileRange:  HAVE_SYNC_FILE_RANGE,
	}
}

// Constants returns a copy of the platform's named advice/allocation/range
// flags, keyed by their C names.
func Constants() map[string]int {
	return maps.Clone(constants)
}
