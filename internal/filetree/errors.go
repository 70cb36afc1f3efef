package filetree

import "errors"

// Sentinel errors returned by FileTree operations. Callers use errors.Is.
// "NotFound" is deliberately not in this list: per §7, a lookup miss is
// reported through a boolean/ok return, not an error value.
var (
	// ErrFull means the byte budget could not cover a requested charge.
	// The caller may retry after freeing space or with a smaller request.
	ErrFull = errors.New("filetree: volume full")

	// ErrOutOfMemory means the host allocator refused a request. Some
	// operations (SegmentedBuffer growth, write-grow ladder) may have made
	// partial progress; the visible state reflects what was actually
	// acquired.
	ErrOutOfMemory = errors.New("filetree: out of memory")

	// ErrObjectPathNotFound is returned by path walking when an
	// intermediate path component is missing or is not a directory.
	ErrObjectPathNotFound = errors.New("filetree: object path not found")

	// ErrDirectoryIsAReparsePoint is returned by path walking when an
	// intermediate component is a directory with the ReparsePoint bit set.
	// The caller (the host driver shim) handles reparse resolution.
	ErrDirectoryIsAReparsePoint = errors.New("filetree: directory is a reparse point")

	// ErrNotADirectory is returned when an operation requires a directory
	// target and the resolved node is not one.
	ErrNotADirectory = errors.New("filetree: not a directory")

	// ErrIsADirectory is returned when an operation requires a non-directory
	// target and the resolved node is a directory.
	ErrIsADirectory = errors.New("filetree: is a directory")

	// ErrNotAReparsePoint is returned by reparse-point-only operations when
	// the target node does not have the ReparsePoint attribute set.
	ErrNotAReparsePoint = errors.New("filetree: not a reparse point")
)
