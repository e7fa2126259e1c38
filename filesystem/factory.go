package filesystem

import (
	"sync/atomic"

	"github.com/brettbedarf/coursefs"
	"github.com/brettbedarf/coursefs/config"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Factory maps listing entries onto filesystem nodes. It is a pure mapping
// keyed on the entry's kind plus the shared collaborators every node needs
// (content source, transport, ownership, tuning). One Factory serves a whole
// mount; it also hands out inode numbers.
type Factory struct {
	source  coursefs.ContentSource
	http    coursefs.Transport
	owner   fuse.Owner
	cfg     *config.Config
	lastIno atomic.Uint64 // Last fuse Attr.Ino assigned; incremented when new nodes are created
}

// NewFactory creates a Factory over the given collaborators.
func NewFactory(cfg *config.Config, source coursefs.ContentSource, http coursefs.Transport) *Factory {
	f := &Factory{
		source: source,
		http:   http,
		owner:  fuse.Owner{Uid: cfg.OwnerUID, Gid: cfg.OwnerGID},
		cfg:    cfg,
	}
	f.lastIno.Store(fuse.FUSE_ROOT_ID)
	return f
}

// Node converts one listing entry into exactly one node variant:
//
//	forum, external link  -> static read-only file containing the locator
//	file, stream          -> remote file backed by on-demand download
//	any folder variant    -> lazy directory
func (f *Factory) Node(entry coursefs.ListingEntry) (fs.InodeEmbedder, fs.StableAttr) {
	switch entry.Kind {
	case coursefs.KindForum, coursefs.KindExternalLink:
		return f.staticFile(entry.URL), f.nextStable(fuse.S_IFREG)
	case coursefs.KindFile, coursefs.KindStream:
		return f.newFile(entry.Download()), f.nextStable(fuse.S_IFREG)
	default:
		return f.Dir(entry), f.nextStable(fuse.S_IFDIR)
	}
}

// Dir creates a lazy directory node for entry. Exposed so the server can
// build the mount root from the root listing entry.
func (f *Factory) Dir(entry coursefs.ListingEntry) *DirNode {
	return newDirNode(f, entry)
}

func (f *Factory) newFile(info coursefs.DownloadInfo) *FileNode {
	return &FileNode{
		info:      info,
		http:      f.http,
		owner:     f.owner,
		chunkSize: f.cfg.ChunkSize,
		directIO:  f.cfg.DirectIO,
	}
}

// staticFile renders container kinds that have no downloadable body (forums,
// external links) as a read-only file whose content is the locator string.
func (f *Factory) staticFile(url string) *fs.MemRegularFile {
	return &fs.MemRegularFile{
		Data: []byte(url),
		Attr: fuse.Attr{
			Mode:  0o444,
			Owner: f.owner,
		},
	}
}

func (f *Factory) nextStable(mode uint32) fs.StableAttr {
	return fs.StableAttr{Mode: mode, Ino: f.lastIno.Add(1)}
}
