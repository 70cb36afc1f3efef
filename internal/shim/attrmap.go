// Package shim translates github.com/hanwen/go-fuse/v2/fuse's raw callback
// ABI onto filetree.FileTree operations, playing the role the teacher's
// internal/core/fuse.go plays for its POSIX Node/Inode model, generalized
// to the engine's NT-attribute/reparse/security model.
package shim

import (
	"errors"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/memtreefs/memtree/internal/filetree"
)

// modeFromAttributes derives a POSIX mode word from an NT attribute set and
// a directory flag, for the subset of bits FUSE actually consults.
func modeFromAttributes(attrs filetree.Attributes, isDir bool, filePerm, dirPerm uint32) uint32 {
	if isDir {
		return syscall.S_IFDIR | dirPerm
	}
	if attrs.IsReparsePoint() {
		return syscall.S_IFLNK | 0o777
	}
	mode := uint32(syscall.S_IFREG) | filePerm
	if attrs&filetree.AttrReadOnly != 0 {
		mode &^= 0o222 // clear write bits
	}
	return mode
}

// attributesFromMode derives the NT attribute bits FUSE's setattr can
// plausibly influence from a POSIX mode word, preserving everything else
// the caller already holds (FuseRaw.SetAttr passes in the current set).
func attributesFromMode(mode uint32, current filetree.Attributes) filetree.Attributes {
	if mode&0o222 == 0 {
		current |= filetree.AttrReadOnly
	} else {
		current &^= filetree.AttrReadOnly
	}
	return current
}

// toIno and toNodeIndex translate between node_index and the FUSE inode
// number space, which reserves 0 and starts the root at fuse.FUSE_ROOT_ID
// (1); node_index is 0-based with the root at filetree.RootNodeIndex (0),
// so the two spaces are related by a constant +1 offset. No separate
// NodeID registry sits between the two (§11) — just this offset.
func toIno(nodeIndex uint64) uint64 { return nodeIndex + 1 }
func toNodeIndex(ino uint64) uint64 { return ino - 1 }

// fillAttr populates out from a node snapshot.
func fillAttr(out *fuse.Attr, snap filetree.NodeSnapshot, filePerm, dirPerm uint32) {
	out.Ino = toIno(snap.NodeIndex)
	out.Size = uint64(snap.FileSize)
	out.Blocks = (out.Size + 511) / 512
	out.Mode = modeFromAttributes(snap.Attributes, snap.IsDirectory, filePerm, dirPerm)
	if snap.IsDirectory {
		out.Nlink = 2
	} else {
		out.Nlink = uint32(snap.LinkCount)
		if out.Nlink == 0 {
			out.Nlink = 1
		}
	}
	setTimespec(&out.Atime, &out.Atimensec, snap.Times.LastAccess)
	setTimespec(&out.Mtime, &out.Mtimensec, snap.Times.LastWrite)
	setTimespec(&out.Ctime, &out.Ctimensec, snap.Times.Change)
}

func setTimespec(sec *uint64, nsec *uint32, ft filetree.FileTime) {
	t := ft.Time()
	*sec = uint64(t.Unix())
	*nsec = uint32(t.Nanosecond())
}

// statusFromError maps a filetree sentinel error to the fuse.Status the
// kernel expects, per §6's error-code table. Unrecognized errors map to
// EIO: they indicate a logic bug, not a reportable condition.
func statusFromError(err error) fuse.Status {
	switch {
	case err == nil:
		return fuse.OK
	case errors.Is(err, filetree.ErrFull):
		return fuse.Status(syscall.ENOSPC)
	case errors.Is(err, filetree.ErrOutOfMemory):
		return fuse.Status(syscall.ENOMEM)
	case errors.Is(err, filetree.ErrObjectPathNotFound):
		return fuse.ENOENT
	case errors.Is(err, filetree.ErrNotADirectory):
		return fuse.Status(syscall.ENOTDIR)
	case errors.Is(err, filetree.ErrIsADirectory):
		return fuse.Status(syscall.EISDIR)
	case errors.Is(err, filetree.ErrNotAReparsePoint):
		return fuse.Status(syscall.EINVAL)
	case errors.Is(err, filetree.ErrDirectoryIsAReparsePoint):
		return fuse.Status(syscall.EINVAL)
	default:
		return fuse.EIO
	}
}
