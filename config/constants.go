package config

import "github.com/memtreefs/memtree/internal/util"

// Bytes per unit, used both for size defaults and for parsing the
// K/M/G/T suffixes accepted by --size.
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
	TB = 1024 * GB
)

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultTotalSize is the volume byte budget used when --size is not
	// given.
	DefaultTotalSize = 2 * GB

	// MinTotalSize is the smallest byte budget --size accepts.
	MinTotalSize = 512

	// DefaultCaseInsensitive matches Windows' own default: names compare
	// ordinal-ignore-case unless --case-sensitive is given.
	DefaultCaseInsensitive = true

	// DefaultFileSystemName is the fs type string reported to the host
	// driver (FUSE's fsname mount option).
	DefaultFileSystemName = "memtreefs"

	// DefaultLabel is the volume label reported when --label is absent.
	DefaultLabel = "MemTree"
)

// DefaultLogLvl is the log level used when --verbose is absent.
var DefaultLogLvl = util.InfoLevel
