package shim

import (
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/rs/zerolog"

	"github.com/memtreefs/memtree/internal/filetree"
	"github.com/memtreefs/memtree/internal/util"
)

const (
	entryTimeout = time.Second
	attrTimeout  = time.Second
	defDirPerm   = 0o755
	defFilePerm  = 0o644
)

// FuseRaw implements the low-level FUSE wire protocol. It is the protocol
// adapter between the kernel and the engine, playing the role the
// teacher's internal/core/fuse.go plays for its own tree — generalized
// from a POSIX Node/Inode model to filetree's NT-attribute engine.
type FuseRaw struct {
	fuse.RawFileSystem

	tree    *filetree.FileTree
	fhTable *handleTable
	dhTable *handleTable
	log     zerolog.Logger
	server  *fuse.Server
}

// NewFuseRaw builds a FuseRaw serving tree.
func NewFuseRaw(tree *filetree.FileTree) *FuseRaw {
	return &FuseRaw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		tree:          tree,
		fhTable:       newHandleTable(),
		dhTable:       newHandleTable(),
		log:           util.GetLogger("shim.fuse"),
	}
}

// callLogger returns a logger tagged with the raw callback name, mirroring
// the teacher's per-callback util.GetLogger("Fuse.X") while keeping this
// mount's session id attached to every line.
func (r *FuseRaw) callLogger(name string) *zerolog.Logger {
	l := r.log.With().Str("callback", name).Logger()
	return &l
}

func (r *FuseRaw) Init(s *fuse.Server) {
	r.server = s
	r.log.Info().Msg("fuse initialized")
}

func (r *FuseRaw) OnUnmount() {
	r.log.Info().Msg("fuse unmounted")
}

func (r *FuseRaw) String() string {
	return "FuseRaw"
}

// Access reports that every node is accessible; NT security descriptors
// are opaque blobs the engine neither interprets nor enforces (§3), so
// there is no permission model to check here.
func (r *FuseRaw) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	r.callLogger("Access").Debug().Interface("input", input).Msg("Access called")
	return fuse.OK
}

func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	r.callLogger("Lookup").Debug().Interface("header", header).Str("name", name).Msg("Lookup called")
	parent := toNodeIndex(header.NodeId)
	idx, _, ok := r.tree.Find(parent, name)
	if !ok {
		return fuse.ENOENT
	}
	snap := r.tree.Open(idx)
	out.NodeId = toIno(idx)
	out.Generation = 1
	out.SetEntryTimeout(entryTimeout)
	out.SetAttrTimeout(attrTimeout)
	fillAttr(&out.Attr, snap, defFilePerm, defDirPerm)
	return fuse.OK
}

func (r *FuseRaw) Forget(nodeid, nlookup uint64) {
	r.callLogger("Forget").Trace().Uint64("nodeid", nodeid).Uint64("nlookup", nlookup).Msg("Forget called")
	r.tree.Close(toNodeIndex(nodeid))
}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	r.callLogger("GetAttr").Trace().Interface("input", input).Msg("GetAttr called")
	snap := r.tree.Get(toNodeIndex(input.NodeId))
	out.SetTimeout(attrTimeout)
	fillAttr(&out.Attr, snap, defFilePerm, defDirPerm)
	return fuse.OK
}

func (r *FuseRaw) SetAttr(cancel <-chan struct{}, input *fuse.SetAttrIn, out *fuse.AttrOut) fuse.Status {
	r.callLogger("SetAttr").Debug().Interface("input", input).Msg("SetAttr called")
	idx := toNodeIndex(input.NodeId)
	snap := r.tree.Get(idx)
	attrs, tag := snap.Attributes, snap.ReparseTag
	times := snap.Times

	if input.Valid&fuse.FATTR_MODE != 0 {
		attrs = attributesFromMode(input.Mode, attrs)
	}
	if input.Valid&fuse.FATTR_SIZE != 0 {
		if err := r.tree.SetFileSize(idx, int64(input.Size)); err != nil {
			return statusFromError(err)
		}
	}
	if input.Valid&fuse.FATTR_ATIME != 0 {
		times.LastAccess = filetree.NewFileTime(time.Unix(int64(input.Atime), int64(input.Atimensec)))
	}
	if input.Valid&fuse.FATTR_MTIME != 0 {
		times.LastWrite = filetree.NewFileTime(time.Unix(int64(input.Mtime), int64(input.Mtimensec)))
	}
	r.tree.SetTimesAndAttrs(idx, attrs, tag, times)

	snap = r.tree.Get(idx)
	out.SetTimeout(attrTimeout)
	fillAttr(&out.Attr, snap, defFilePerm, defDirPerm)
	return fuse.OK
}

func (r *FuseRaw) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	r.callLogger("Mkdir").Debug().Interface("input", input).Str("name", name).Msg("Mkdir called")
	parent := toNodeIndex(input.NodeId)
	idx, created, err := r.tree.Add(parent, name, filetree.AttrDirectory, 0, filetree.NowTimes(), filetree.AddOptions{})
	if err != nil {
		return statusFromError(err)
	}
	if !created {
		return fuse.Status(syscall.EEXIST)
	}
	snap := r.tree.Open(idx)
	out.NodeId = toIno(idx)
	out.Generation = 1
	out.SetEntryTimeout(entryTimeout)
	out.SetAttrTimeout(attrTimeout)
	fillAttr(&out.Attr, snap, defFilePerm, defDirPerm)
	return fuse.OK
}

func (r *FuseRaw) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	r.callLogger("Create").Debug().Interface("input", input).Str("name", name).Msg("Create called")
	parent := toNodeIndex(input.NodeId)
	idx, created, err := r.tree.Add(parent, name, filetree.AttrNormal, 0, filetree.NowTimes(), filetree.AddOptions{})
	if err != nil {
		return statusFromError(err)
	}
	if !created {
		idx, _, _ = r.tree.Find(parent, name)
	}
	snap := r.tree.Open(idx)
	fh := r.fhTable.open(idx)

	out.NodeId = toIno(idx)
	out.Generation = 1
	out.SetEntryTimeout(entryTimeout)
	out.SetAttrTimeout(attrTimeout)
	fillAttr(&out.Attr, snap, defFilePerm, defDirPerm)
	out.Fh = fh
	return fuse.OK
}

func (r *FuseRaw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	r.callLogger("Open").Debug().Interface("input", input).Msg("Open called")
	idx := toNodeIndex(input.NodeId)
	r.tree.Open(idx)
	out.Fh = r.fhTable.open(idx)
	return fuse.OK
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	r.callLogger("Read").Trace().Uint64("fh", input.Fh).Uint64("offset", input.Offset).Int("size", len(buf)).Msg("Read called")
	idx, ok := r.fhTable.lookup(input.Fh)
	if !ok {
		idx = toNodeIndex(input.NodeId)
	}
	n := r.tree.ReadData(idx, int64(input.Offset), buf)
	return fuse.ReadResultData(buf[:n]), fuse.OK
}

func (r *FuseRaw) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	r.callLogger("Write").Trace().Uint64("fh", input.Fh).Uint64("offset", input.Offset).Int("size", len(data)).Msg("Write called")
	idx, ok := r.fhTable.lookup(input.Fh)
	if !ok {
		idx = toNodeIndex(input.NodeId)
	}
	n, err := r.tree.WriteData(idx, int64(input.Offset), data)
	if err != nil && n == 0 {
		return 0, statusFromError(err)
	}
	return uint32(n), fuse.OK
}

func (r *FuseRaw) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {
	r.callLogger("Release").Debug().Interface("input", input).Msg("Release called")
	idx, ok := r.fhTable.lookup(input.Fh)
	if !ok {
		idx = toNodeIndex(input.NodeId)
	}
	r.fhTable.close(input.Fh)
	r.tree.Close(idx)
}

func (r *FuseRaw) Flush(cancel <-chan struct{}, input *fuse.FlushIn) fuse.Status {
	r.callLogger("Flush").Trace().Interface("input", input).Msg("Flush called")
	return fuse.OK
}

func (r *FuseRaw) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	r.callLogger("Unlink").Debug().Interface("header", header).Str("name", name).Msg("Unlink called")
	parent := toNodeIndex(header.NodeId)
	if !r.tree.Remove(parent, name) {
		return fuse.ENOENT
	}
	return fuse.OK
}

func (r *FuseRaw) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	r.callLogger("Rmdir").Debug().Interface("header", header).Str("name", name).Msg("Rmdir called")
	parent := toNodeIndex(header.NodeId)
	idx, _, ok := r.tree.Find(parent, name)
	if !ok {
		return fuse.ENOENT
	}
	if r.tree.HasChildren(idx) {
		return fuse.Status(syscall.ENOTEMPTY)
	}
	if !r.tree.Remove(parent, name) {
		return fuse.ENOENT
	}
	return fuse.OK
}

func (r *FuseRaw) Rename(cancel <-chan struct{}, input *fuse.RenameIn, oldName string, newName string) fuse.Status {
	r.callLogger("Rename").Debug().Interface("input", input).Str("oldName", oldName).Str("newName", newName).Msg("Rename called")
	srcParent := toNodeIndex(input.NodeId)
	dstParent := toNodeIndex(input.Newdir)
	var err error
	if srcParent == dstParent {
		err = r.tree.MoveSameParent(srcParent, oldName, newName)
	} else {
		err = r.tree.MoveCrossParent(srcParent, oldName, dstParent, newName)
	}
	if err != nil {
		return statusFromError(err)
	}
	return fuse.OK
}

func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	r.callLogger("OpenDir").Debug().Interface("input", input).Msg("OpenDir called")
	idx := toNodeIndex(input.NodeId)
	r.tree.Open(idx)
	out.Fh = r.dhTable.open(idx)
	return fuse.OK
}

func (r *FuseRaw) ReleaseDir(input *fuse.ReleaseIn) {
	r.callLogger("ReleaseDir").Debug().Interface("input", input).Msg("ReleaseDir called")
	idx, ok := r.dhTable.lookup(input.Fh)
	r.dhTable.close(input.Fh)
	if ok {
		r.tree.Close(idx)
	}
}

func (r *FuseRaw) readDir(input *fuse.ReadIn, out *fuse.DirEntryList, plus bool) fuse.Status {
	idx, ok := r.dhTable.lookup(input.Fh)
	if !ok {
		idx = toNodeIndex(input.NodeId)
	}

	var marker *string
	if input.Offset != 0 {
		// The opaque marker is the name of the previously emitted entry,
		// recovered here by walking once up to Offset entries (Offset is
		// small in practice since the kernel re-requests from the last
		// entry it consumed, per this ABI's own cursor semantics).
		enum := r.tree.GetChildren(idx, nil)
		var last string
		for i := uint64(0); i < input.Offset; i++ {
			c, ok := enum.Next()
			if !ok {
				break
			}
			last = c.Name
		}
		enum.Close()
		if last != "" {
			marker = &last
		}
	}

	enum := r.tree.GetChildren(idx, marker)
	defer enum.Close()
	for {
		child, ok := enum.Next()
		if !ok {
			break
		}
		childSnap := r.tree.Get(child.NodeIndex)
		mode := modeFromAttributes(childSnap.Attributes, childSnap.IsDirectory, defFilePerm, defDirPerm)
		entry := fuse.DirEntry{Name: child.Name, Mode: mode, Ino: toIno(child.NodeIndex)}
		if plus {
			eo := out.AddDirLookupEntry(entry)
			if eo == nil {
				break
			}
			eo.NodeId = toIno(child.NodeIndex)
			eo.Generation = 1
			eo.SetEntryTimeout(entryTimeout)
			eo.SetAttrTimeout(attrTimeout)
			fillAttr(&eo.Attr, childSnap, defFilePerm, defDirPerm)
		} else if !out.AddDirEntry(entry) {
			break
		}
	}
	return fuse.OK
}

func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	r.callLogger("ReadDir").Debug().Interface("input", input).Msg("ReadDir called")
	return r.readDir(input, out, false)
}

func (r *FuseRaw) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	r.callLogger("ReadDirPlus").Debug().Interface("input", input).Msg("ReadDirPlus called")
	return r.readDir(input, out, true)
}

func (r *FuseRaw) StatFs(cancel <-chan struct{}, header *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	r.callLogger("StatFs").Trace().Interface("header", header).Msg("StatFs called")
	const blockSize = 4096
	total := uint64(r.tree.TotalSize())
	free := uint64(r.tree.FreeSize())
	out.Bsize = blockSize
	out.Blocks = total / blockSize
	out.Bfree = free / blockSize
	out.Bavail = out.Bfree
	out.NameLen = 255
	out.Frsize = blockSize
	return fuse.OK
}
