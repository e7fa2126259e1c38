// Package portal implements the content source against the course portal's
// JSON listing API. It owns the wire format and maps it onto the domain
// types in the root package; it never downloads file bodies (that is the
// transport's job).
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/brettbedarf/coursefs"
	"github.com/brettbedarf/coursefs/internal/util"
)

// Client is a course portal listing API client implementing
// [coursefs.ContentSource]. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	headers map[string]string
}

var _ coursefs.ContentSource = (*Client)(nil)

// NewClient creates a portal client. hc may be nil, in which case a default
// client with a 2 minute timeout is used. headers (session cookie or bearer
// token) are applied to every listing request.
func NewClient(baseURL string, hc *http.Client, headers map[string]string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		headers: headers,
	}
}

// listingItem is one entry in the wire listing response.
type listingItem struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	URL      string     `json:"url"`
	Modified *time.Time `json:"modified,omitempty"`
}

// Wire values for listingItem.Type.
const (
	wireFile           = "file"
	wireFolder         = "folder"
	wireVideoFolder    = "video_folder"
	wireExerciseFolder = "exercise_folder"
	wireForum          = "forum"
	wireLink           = "link"
	wireStream         = "stream"
)

// EnumerateFolder lists the children of a generic folder.
func (c *Client) EnumerateFolder(ctx context.Context, dir, locator string) ([]coursefs.ListingEntry, error) {
	return c.enumerate(ctx, "folder", dir, locator)
}

// EnumerateVideoFolder lists the recordings inside a video folder.
func (c *Client) EnumerateVideoFolder(ctx context.Context, dir, locator string) ([]coursefs.ListingEntry, error) {
	return c.enumerate(ctx, "videos", dir, locator)
}

// EnumerateExercises lists the contents of an exercise folder.
func (c *Client) EnumerateExercises(ctx context.Context, dir, locator string) ([]coursefs.ListingEntry, error) {
	return c.enumerate(ctx, "exercises", dir, locator)
}

func (c *Client) enumerate(ctx context.Context, endpoint, dir, locator string) ([]coursefs.ListingEntry, error) {
	u := fmt.Sprintf("%s/fs/%s?ref=%s", c.baseURL, endpoint, url.QueryEscape(locator))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", coursefs.ErrEnumerate, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", coursefs.ErrEnumerate, endpoint, dir, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s %q: status %d", coursefs.ErrEnumerate, endpoint, dir, resp.StatusCode)
	}

	var items []listingItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", coursefs.ErrEnumerate, endpoint, dir, err)
	}

	entries := make([]coursefs.ListingEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, coursefs.ListingEntry{
			Name:     item.Name,
			Path:     path.Join(dir, item.Name),
			Kind:     kindFromWire(item.Type),
			URL:      item.URL,
			Modified: item.Modified,
		})
	}
	logger := util.GetLogger("Portal")
	logger.Debug().
		Str("endpoint", endpoint).
		Str("dir", dir).
		Int("entries", len(entries)).
		Msg("Enumerated listing")
	return entries, nil
}

// kindFromWire maps a wire type string to the domain kind. Unknown container
// types show up on the portal now and then; treating them as generic folders
// keeps them browsable.
func kindFromWire(t string) coursefs.EntryKind {
	switch t {
	case wireFile:
		return coursefs.KindFile
	case wireFolder:
		return coursefs.KindFolder
	case wireVideoFolder:
		return coursefs.KindVideoFolder
	case wireExerciseFolder:
		return coursefs.KindExerciseFolder
	case wireForum:
		return coursefs.KindForum
	case wireLink:
		return coursefs.KindExternalLink
	case wireStream:
		return coursefs.KindStream
	default:
		logger := util.GetLogger("Portal")
		logger.Debug().Str("type", t).Msg("Unknown entry type, treating as folder")
		return coursefs.KindFolder
	}
}

// CourseRoot returns the root listing entry for a single course.
func (c *Client) CourseRoot(courseID string) coursefs.ListingEntry {
	return coursefs.ListingEntry{
		Name: courseID,
		Path: ".",
		Kind: coursefs.KindFolder,
		URL:  c.baseURL + "/courses/" + url.PathEscape(courseID),
	}
}

// DesktopRoot returns the root listing entry for the user's personal
// desktop, the default mount root.
func (c *Client) DesktopRoot() coursefs.ListingEntry {
	return coursefs.ListingEntry{
		Name: "desktop",
		Path: ".",
		Kind: coursefs.KindFolder,
		URL:  c.baseURL + "/desktop",
	}
}
