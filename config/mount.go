package config

// MountOptions holds the subset of settings that reach the host driver's
// mount call. No go-fuse types are exposed here.
type MountOptions struct {
	Debug  bool   // fuse debug logs
	FsName string // filesystem type string reported to the host driver
	Name   string // mount display name (the volume label)
}
