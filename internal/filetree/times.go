package filetree

import "time"

// FileTime is a 64-bit Windows FILETIME tick count: 100-nanosecond
// intervals since 1601-01-01T00:00:00Z.
type FileTime uint64

// windowsEpochOffset is the number of 100ns ticks between the Windows
// epoch (1601-01-01) and the Unix epoch (1970-01-01).
const windowsEpochOffset = 116444736000000000

// NewFileTime converts a time.Time to a FileTime.
func NewFileTime(t time.Time) FileTime {
	ticks := t.UnixNano()/100 + windowsEpochOffset
	if ticks < 0 {
		return 0
	}
	return FileTime(ticks)
}

// Now returns the current time as a FileTime.
func Now() FileTime { return NewFileTime(time.Now()) }

// Time converts a FileTime back to a time.Time.
func (f FileTime) Time() time.Time {
	ticks := int64(f) - windowsEpochOffset
	return time.Unix(0, ticks*100)
}

// Times bundles the four timestamps carried on every Node.
type Times struct {
	Creation   FileTime
	LastAccess FileTime
	LastWrite  FileTime
	Change     FileTime
}

// NowTimes returns a Times with all four fields set to the current time,
// used when a node is created or reset.
func NowTimes() Times {
	now := Now()
	return Times{Creation: now, LastAccess: now, LastWrite: now, Change: now}
}
