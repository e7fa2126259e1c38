package config

// MountOptions are passed through to the FUSE server at mount time.
type MountOptions struct {
	FsName string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"` // Filesystem source name shown in /proc/mounts
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`       // Filesystem type name
}
