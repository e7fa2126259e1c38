package filesystem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"syscall"

	"github.com/brettbedarf/coursefs"
	"github.com/brettbedarf/coursefs/internal/util"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"
)

// child is one entry in a directory's child table: the node variant plus the
// stable attributes the kernel identifies it by.
type child struct {
	node   fs.InodeEmbedder
	stable fs.StableAttr
}

// DirNode is a directory backed by a remote listing. Its children are not
// known until the first lookup or listing call triggers realization; after
// that the child table is fixed for the node's lifetime (the portal tree is
// read-only, so there is no refresh).
//
// The table is either empty (unrealized) or fully populated: realization runs
// under a per-node lock, concurrent first accesses block until the single
// enumeration completes, and a failed enumeration inserts nothing so a later
// access can retry.
type DirNode struct {
	fs.Inode
	factory *Factory
	entry   coursefs.ListingEntry

	mu       sync.Mutex // serializes realization
	realized bool
	children *xsync.Map[string, child]
}

var (
	_ = (fs.NodeGetattrer)((*DirNode)(nil))
	_ = (fs.NodeLookuper)((*DirNode)(nil))
	_ = (fs.NodeReaddirer)((*DirNode)(nil))
)

func newDirNode(factory *Factory, entry coursefs.ListingEntry) *DirNode {
	return &DirNode{
		factory:  factory,
		entry:    entry,
		children: xsync.NewMap[string, child](),
	}
}

// Entry returns the listing entry this directory represents.
func (d *DirNode) Entry() coursefs.ListingEntry {
	return d.entry
}

// Getattr reports directory attributes without any remote call.
func (d *DirNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | 0o555
	out.Owner = d.factory.owner
	setTimes(&out.Attr, d.entry.Modified)
	return 0
}

// Lookup realizes the directory if needed, then resolves name against the
// child table.
func (d *DirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if err := d.Realize(ctx); err != nil {
		return nil, syscall.EIO
	}
	c, ok := d.children.Load(name)
	if !ok {
		return nil, syscall.ENOENT
	}
	return d.NewInode(ctx, c.node, c.stable), 0
}

// Readdir realizes the directory if needed, then lists the child table in
// name order so repeated listings are stable.
func (d *DirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if err := d.Realize(ctx); err != nil {
		return nil, syscall.EIO
	}
	names := d.ChildNames()
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		c, ok := d.children.Load(name)
		if !ok {
			continue
		}
		entries = append(entries, fuse.DirEntry{
			Name: name,
			Mode: c.stable.Mode,
			Ino:  c.stable.Ino,
		})
	}
	return fs.NewListDirStream(entries), 0
}

// Realize populates the child table from the remote listing. Idempotent: once
// the table is populated no further enumeration ever happens for this node.
// On enumeration failure the table stays empty and the error is returned.
func (d *DirNode) Realize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.realized {
		return nil
	}
	logger := util.GetLogger("DirNode")

	entries, err := d.enumerate(ctx)
	if err != nil {
		logger.Error().Err(err).Str("path", d.entry.Path).Msg("Failed to enumerate directory")
		return err
	}

	for _, entry := range entries {
		name := d.insertName(displayName(entry))
		node, stable := d.factory.Node(entry)
		d.children.Store(name, child{node: node, stable: stable})
	}
	d.realized = true

	logger.Debug().
		Str("path", d.entry.Path).
		Int("children", d.children.Size()).
		Msg("Realized directory")
	return nil
}

// enumerate selects the enumeration call matching this directory's kind.
// Video and exercise folders use distinct listing protocols on the portal.
func (d *DirNode) enumerate(ctx context.Context) ([]coursefs.ListingEntry, error) {
	src := d.factory.source
	switch d.entry.Kind {
	case coursefs.KindVideoFolder:
		return src.EnumerateVideoFolder(ctx, d.entry.Path, d.entry.URL)
	case coursefs.KindExerciseFolder:
		return src.EnumerateExercises(ctx, d.entry.Path, d.entry.URL)
	default:
		return src.EnumerateFolder(ctx, d.entry.Path, d.entry.URL)
	}
}

// insertName disambiguates display-name collisions with a numeric suffix so
// no listing entry silently shadows an earlier one. Deterministic for a fixed
// listing order.
func (d *DirNode) insertName(name string) string {
	if _, exists := d.children.Load(name); !exists {
		return name
	}
	base := name
	for i := 2; ; i++ {
		name = fmt.Sprintf("%s (%d)", base, i)
		if _, exists := d.children.Load(name); !exists {
			logger := util.GetLogger("DirNode")
			logger.Warn().
				Str("path", d.entry.Path).
				Str("name", base).
				Str("renamed", name).
				Msg("Duplicate child name in listing")
			return name
		}
	}
}

// Child returns a child node from the table. It does not trigger
// realization.
func (d *DirNode) Child(name string) (fs.InodeEmbedder, bool) {
	c, ok := d.children.Load(name)
	if !ok {
		return nil, false
	}
	return c.node, true
}

// ChildNames returns the table's keys in sorted order. It does not trigger
// realization.
func (d *DirNode) ChildNames() []string {
	names := make([]string, 0, d.children.Size())
	d.children.Range(func(name string, _ child) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// displayName computes the child table key for an entry. Forums and external
// links get a prefix so they read naturally next to real files; everything
// else keeps its own path segment.
func displayName(e coursefs.ListingEntry) string {
	switch e.Kind {
	case coursefs.KindForum:
		return "Forum - " + e.Name
	case coursefs.KindExternalLink:
		return "Link - " + e.Name
	default:
		return e.Name
	}
}
