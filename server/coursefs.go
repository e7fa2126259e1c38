// Package server owns the mount lifecycle: it assembles the node tree from
// the collaborators and drives the FUSE server.
package server

import (
	"context"
	"time"

	"github.com/brettbedarf/coursefs"
	"github.com/brettbedarf/coursefs/config"
	"github.com/brettbedarf/coursefs/filesystem"
	"github.com/brettbedarf/coursefs/internal/util"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// CourseFS wires the core filesystem to a FUSE server with abstractions over
// the underlying mount plumbing.
type CourseFS struct {
	cfg    *config.Config
	root   *filesystem.DirNode
	server *fuse.Server
}

// New creates a CourseFS rooted at the given listing entry.
func New(cfg *config.Config, source coursefs.ContentSource, transport coursefs.Transport, root coursefs.ListingEntry) *CourseFS {
	factory := filesystem.NewFactory(cfg, source, transport)
	return &CourseFS{
		cfg:  cfg,
		root: factory.Dir(root),
	}
}

// Root returns the root directory node.
func (c *CourseFS) Root() *filesystem.DirNode {
	return c.root
}

// Serve realizes the root (an early credential and connectivity check, same
// as listing the mount point would) and then mounts and serves the
// filesystem at mountPoint. It returns once the mount is live.
func (c *CourseFS) Serve(mountPoint string) error {
	logger := util.GetLogger("Server")

	if err := c.root.Realize(context.Background()); err != nil {
		return err
	}

	attrTimeout := time.Duration(c.cfg.AttrTimeout * float64(time.Second))
	entryTimeout := time.Duration(c.cfg.EntryTimeout * float64(time.Second))

	opts := &fs.Options{
		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,
	}
	opts.Name = c.cfg.MountOptions.Name
	opts.FsName = c.cfg.MountOptions.FsName
	opts.Debug = c.cfg.LogLvl == util.TraceLevel
	opts.Logger = util.NewLogLogger("FuseServer", util.DebugLevel)

	srv, err := fs.Mount(mountPoint, c.root, opts)
	if err != nil {
		return err
	}
	c.server = srv
	logger.Info().Str("mountpoint", mountPoint).Msg("Filesystem mounted")
	return nil
}

// ServeAsync runs Serve in a goroutine and reports its result on the
// returned channel.
func (c *CourseFS) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- c.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted.
func (c *CourseFS) Wait() {
	if c.server != nil {
		c.server.Wait()
	}
}

// Unmount cleanly unmounts the filesystem.
func (c *CourseFS) Unmount() error {
	if c.server == nil {
		return nil
	}
	return c.server.Unmount()
}
