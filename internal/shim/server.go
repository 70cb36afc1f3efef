package shim

import (
	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/rs/zerolog"

	"github.com/memtreefs/memtree/config"
	"github.com/memtreefs/memtree/internal/filetree"
	"github.com/memtreefs/memtree/internal/util"
)

// Server wraps a mounted fuse.Server, generalizing the teacher's
// internal/core.Server wrapper.
type Server struct {
	server    *fuse.Server
	sessionID uuid.UUID
	log       zerolog.Logger
}

// Mount builds the FUSE translation layer over tree and mounts it at
// mountPoint. Each mount gets a fresh session id attached to every log
// line the raw layer emits, per §10, so interleaved callback logs from
// many kernel worker threads can be correlated back to one mount.
func Mount(tree *filetree.FileTree, mountPoint string, opts config.MountOptions) (*Server, error) {
	sessionID := uuid.New()
	log := util.GetLogger("shim.server").With().Str("session", sessionID.String()).Logger()

	raw := NewFuseRaw(tree)
	raw.log = log

	mountOpts := &fuse.MountOptions{
		FsName: opts.FsName,
		Name:   opts.Name,
		Debug:  opts.Debug,
		Logger: util.NewLogLogger("FuseServer", util.TraceLevel),
	}
	server, err := fuse.NewServer(raw, mountPoint, mountOpts)
	if err != nil {
		return nil, err
	}
	return &Server{server: server, sessionID: sessionID, log: log}, nil
}

// Serve starts serving the mount in the background and blocks until the
// kernel reports the mount is ready.
func (s *Server) Serve() error {
	go s.server.Serve()
	return s.server.WaitMount()
}

// Unmount requests the kernel unmount the filesystem.
func (s *Server) Unmount() error {
	return s.server.Unmount()
}

// Wait blocks until the mount is unmounted, either by Unmount or
// externally (e.g. fusermount -u).
func (s *Server) Wait() {
	s.server.Wait()
}
