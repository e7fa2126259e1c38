package filesystem

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"
	"time"

	"github.com/brettbedarf/coursefs"
	"github.com/brettbedarf/coursefs/internal/util"
	"github.com/brettbedarf/coursefs/stream"
	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// FileNode is a read-only file whose content lives on the remote portal.
// The node never holds content itself: every open issues a fresh download
// and hands back an independent handle, so two concurrent opens perform two
// downloads and share nothing.
type FileNode struct {
	fs.Inode
	info      coursefs.DownloadInfo
	http      coursefs.Transport
	owner     fuse.Owner
	chunkSize int
	directIO  bool

	mu     sync.Mutex // guards the memoized size probe
	probed bool
	size   int64
}

var (
	_ = (fs.NodeGetattrer)((*FileNode)(nil))
	_ = (fs.NodeOpener)((*FileNode)(nil))
)

// Getattr reports regular-file attributes. The size comes from a HEAD-style
// probe performed on first call and memoized; servers that omit a
// Content-Length report size 0.
func (f *FileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	size, err := f.probeSize(ctx)
	if err != nil {
		logger := util.GetLogger("FileNode")
		logger.Error().Err(err).Str("url", f.info.URL).Msg("Size probe failed")
		return syscall.EIO
	}

	out.Mode = fuse.S_IFREG | 0o444
	out.Owner = f.owner
	out.Size = uint64(size)
	out.Blksize = 512
	out.Blocks = (uint64(size) + 511) / 512
	setTimes(&out.Attr, f.info.Modified)
	return 0
}

func (f *FileNode) probeSize(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.probed {
		return f.size, nil
	}
	size, err := f.http.Probe(ctx, f.info.URL)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		size = 0
	}
	f.size = size
	f.probed = true
	return size, nil
}

// Open starts a streaming download and wraps it in a fresh buffer. The
// portal is read-only, so any write intent is rejected up front.
func (f *FileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	logger := util.GetLogger("FileNode")

	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EACCES
	}

	src, err := f.http.StreamGet(ctx, f.info.URL)
	if err != nil {
		logger.Error().Err(err).Str("url", f.info.URL).Msg("Failed to open download stream")
		return nil, 0, syscall.EIO
	}
	buf, err := stream.New(src, f.chunkSize)
	if err != nil {
		src.Close() // nolint:errcheck
		logger.Error().Err(err).Str("url", f.info.URL).Msg("Failed to create stream buffer")
		return nil, 0, syscall.EIO
	}

	handle := &FileHandle{
		buf:    buf,
		id:     uuid.NewString(),
		logger: logger.With().Str("url", f.info.URL).Logger(),
	}
	handle.logger.Debug().Str("handle", handle.id).Msg("Opened download stream")

	var fuseFlags uint32
	if f.directIO {
		fuseFlags = fuse.FOPEN_DIRECT_IO
	}
	return handle, fuseFlags, 0
}

// FileHandle serves byte-range reads for one open call out of its own stream
// buffer. Handles are single-owner and never shared between opens.
type FileHandle struct {
	buf    *stream.Buffer
	id     string // correlation id for log lines
	logger util.Logger
}

var (
	_ = (fs.FileReader)((*FileHandle)(nil))
	_ = (fs.FileReleaser)((*FileHandle)(nil))
)

// Read serves [off, off+len(dest)) from the buffer, pulling the download
// forward only as far as needed. A short read at end-of-stream is a normal
// EOF, not an error.
func (h *FileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := h.buf.ReadAt(dest, off)
	if err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error().Err(err).Str("handle", h.id).Int64("offset", off).Msg("Read failed")
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n]), 0
}

// Release closes the buffer, which discards the spill store and tears down
// the in-flight download stream. Other handles on the same node are
// unaffected.
func (h *FileHandle) Release(ctx context.Context) syscall.Errno {
	if err := h.buf.Close(); err != nil {
		h.logger.Warn().Err(err).Str("handle", h.id).Msg("Error releasing stream buffer")
	}
	return 0
}

// setTimes applies the entry's modification timestamp to atime, mtime and
// ctime alike; the portal only reports a single timestamp.
func setTimes(attr *fuse.Attr, t *time.Time) {
	if t == nil {
		return
	}
	sec := uint64(t.Unix())
	nsec := uint32(t.Nanosecond())
	attr.Atime, attr.Atimensec = sec, nsec
	attr.Mtime, attr.Mtimensec = sec, nsec
	attr.Ctime, attr.Ctimensec = sec, nsec
}
