// Package memtree wires a config.Config into a running, mounted volume:
// an in-memory filetree.FileTree engine served over FUSE by internal/shim.
package memtree

import (
	"github.com/memtreefs/memtree/config"
	"github.com/memtreefs/memtree/internal/filetree"
	"github.com/memtreefs/memtree/internal/shim"
	"github.com/memtreefs/memtree/internal/util"
)

// New builds a fresh FileTree engine from cfg, with an empty root directory
// and cfg.SecuritySDDL (if non-empty) stamped on the root's security
// descriptor blob.
func New(cfg *config.Config) (*filetree.FileTree, error) {
	logger := util.GetLogger("filetree").With().Str("volume", cfg.VolumeID).Logger()
	return filetree.New(filetree.Options{
		TotalSize:              cfg.TotalSize,
		CaseInsensitive:        cfg.CaseInsensitive,
		RootSecurityDescriptor: []byte(cfg.SecuritySDDL),
		Logger:                 logger,
	})
}

// Mount serves tree over FUSE at mountPoint, using cfg's mount options.
func Mount(tree *filetree.FileTree, mountPoint string, cfg *config.Config) (*shim.Server, error) {
	return shim.Mount(tree, mountPoint, cfg.MountOptions)
}
