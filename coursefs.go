// Package coursefs contains core domain types and interfaces for the coursefs
// filesystem: the listing entries the remote portal hands back, the content
// source that enumerates them, and the transport used to download file bodies.
package coursefs

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrEnumerate is the single failure kind for remote listing operations.
// Implementations of [ContentSource] wrap the underlying cause so callers can
// both match with errors.Is and inspect the chain.
var ErrEnumerate = errors.New("enumeration failed")

// EntryKind is the categorical type of a remote object as reported by the
// portal's listing API.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindFolder
	KindVideoFolder
	KindExerciseFolder
	KindForum
	KindExternalLink
	KindStream
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	case KindVideoFolder:
		return "video_folder"
	case KindExerciseFolder:
		return "exercise_folder"
	case KindForum:
		return "forum"
	case KindExternalLink:
		return "link"
	case KindStream:
		return "stream"
	}
	return "unknown"
}

// IsFolder reports whether entries of this kind enumerate children of their
// own. Forum and link entries are rendered as files even though the portal
// models them as containers.
func (k EntryKind) IsFolder() bool {
	switch k {
	case KindFile, KindForum, KindExternalLink, KindStream:
		return false
	}
	return true
}

// ListingEntry describes one remote object returned by an enumeration call.
// Immutable once produced by a [ContentSource].
type ListingEntry struct {
	Name     string     // last path segment, the basis for the display name
	Path     string     // full path relative to the enumeration root
	Kind     EntryKind  // categorical type
	URL      string     // absolute locator of the object
	Modified *time.Time // optional modification timestamp
}

// Download returns the download descriptor for file-like entries.
func (e ListingEntry) Download() DownloadInfo {
	return DownloadInfo{URL: e.URL, Modified: e.Modified}
}

// DownloadInfo is the locator plus metadata needed to fetch a file's content.
type DownloadInfo struct {
	URL      string
	Modified *time.Time
}

// ContentSource enumerates the remote hierarchy. The portal distinguishes
// three listing protocols, hence three calls; the directory node picks the
// one matching its own kind.
//
// Failures wrap [ErrEnumerate]. Implementations must be safe for concurrent
// use by multiple directory nodes.
type ContentSource interface {
	// EnumerateFolder lists the children of a generic folder.
	EnumerateFolder(ctx context.Context, dir, locator string) ([]ListingEntry, error)

	// EnumerateVideoFolder lists the recordings inside a video folder.
	EnumerateVideoFolder(ctx context.Context, dir, locator string) ([]ListingEntry, error)

	// EnumerateExercises lists the contents of an exercise folder.
	EnumerateExercises(ctx context.Context, dir, locator string) ([]ListingEntry, error)
}

// Transport performs the raw HTTP work for file nodes. Safe for concurrent
// use; each StreamGet returns an independent sequential stream.
type Transport interface {
	// Probe returns the remote content length, or -1 if the server does not
	// report one.
	Probe(ctx context.Context, url string) (int64, error)

	// StreamGet opens a sequential download of the resource. The caller owns
	// the returned stream and must close it.
	StreamGet(ctx context.Context, url string) (io.ReadCloser, error)
}
