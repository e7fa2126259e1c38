package filesystem

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/brettbedarf/coursefs"
	"github.com/brettbedarf/coursefs/config"
	"github.com/brettbedarf/coursefs/internal/mocks"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestFactory(src coursefs.ContentSource) *Factory {
	return NewFactory(config.NewConfig(nil), src, &mocks.MockTransport{})
}

func entry(name string, kind coursefs.EntryKind) coursefs.ListingEntry {
	return coursefs.ListingEntry{
		Name: name,
		Path: "course/" + name,
		Kind: kind,
		URL:  "https://portal.example.com/obj/" + name,
	}
}

func folderNode(src coursefs.ContentSource) *DirNode {
	return newTestFactory(src).Dir(entry("course", coursefs.KindFolder))
}

func TestDirNode_Getattr_NoRemoteCall(t *testing.T) {
	src := &mocks.MockContentSource{} // no expectations: any enumeration would fail the test
	dir := folderNode(src)

	var out fuse.AttrOut
	require.EqualValues(t, 0, dir.Getattr(context.Background(), nil, &out))

	assert.Equal(t, uint32(fuse.S_IFDIR|0o555), out.Mode)
	assert.Equal(t, uint32(os.Getuid()), out.Owner.Uid)
	assert.Equal(t, uint32(os.Getgid()), out.Owner.Gid)
	src.AssertExpectations(t)
}

func TestDirNode_Realize_Idempotent(t *testing.T) {
	src := &mocks.MockContentSource{}
	src.On("EnumerateFolder", mock.Anything, mock.Anything, mock.Anything).
		Return([]coursefs.ListingEntry{
			entry("slides.pdf", coursefs.KindFile),
			entry("week 1", coursefs.KindFolder),
		}, nil)

	dir := folderNode(src)
	ctx := context.Background()

	require.NoError(t, dir.Realize(ctx))
	names := dir.ChildNames()
	assert.Equal(t, []string{"slides.pdf", "week 1"}, names)

	// Repeated realization must not enumerate again or change the table
	require.NoError(t, dir.Realize(ctx))
	require.NoError(t, dir.Realize(ctx))
	assert.Equal(t, names, dir.ChildNames())
	src.AssertNumberOfCalls(t, "EnumerateFolder", 1)
}

func TestDirNode_NameMapping(t *testing.T) {
	src := &mocks.MockContentSource{}
	src.On("EnumerateFolder", mock.Anything, mock.Anything, mock.Anything).
		Return([]coursefs.ListingEntry{
			entry("General Discussion", coursefs.KindForum),
			entry("Course Wiki", coursefs.KindExternalLink),
			entry("notes.txt", coursefs.KindFile),
			entry("Recordings", coursefs.KindVideoFolder),
		}, nil)

	dir := folderNode(src)
	require.NoError(t, dir.Realize(context.Background()))

	assert.Equal(t, []string{
		"Forum - General Discussion",
		"Link - Course Wiki",
		"Recordings",
		"notes.txt",
	}, dir.ChildNames(), "unexpected child keys")

	_, ok := dir.Child("Forum - General Discussion")
	assert.True(t, ok)
	_, ok = dir.Child("Link - Course Wiki")
	assert.True(t, ok)
	_, ok = dir.Child("notes.txt")
	assert.True(t, ok)
	_, ok = dir.Child("General Discussion")
	assert.False(t, ok, "forum entry must not be reachable under its bare name")
}

func TestDirNode_DuplicateNames(t *testing.T) {
	src := &mocks.MockContentSource{}
	src.On("EnumerateFolder", mock.Anything, mock.Anything, mock.Anything).
		Return([]coursefs.ListingEntry{
			entry("handout.pdf", coursefs.KindFile),
			entry("handout.pdf", coursefs.KindFile),
			entry("handout.pdf", coursefs.KindFile),
		}, nil)

	dir := folderNode(src)
	require.NoError(t, dir.Realize(context.Background()))

	// Collisions are suffixed, not silently overwritten
	assert.Equal(t, []string{"handout.pdf", "handout.pdf (2)", "handout.pdf (3)"}, dir.ChildNames())
}

func TestDirNode_EnumerationVariants(t *testing.T) {
	tests := []struct {
		kind   coursefs.EntryKind
		method string
	}{
		{coursefs.KindFolder, "EnumerateFolder"},
		{coursefs.KindVideoFolder, "EnumerateVideoFolder"},
		{coursefs.KindExerciseFolder, "EnumerateExercises"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			src := &mocks.MockContentSource{}
			src.On(tt.method, mock.Anything, mock.Anything, mock.Anything).
				Return([]coursefs.ListingEntry{}, nil)

			dir := newTestFactory(src).Dir(entry("d", tt.kind))
			require.NoError(t, dir.Realize(context.Background()))

			src.AssertNumberOfCalls(t, tt.method, 1)
			src.AssertExpectations(t)
		})
	}
}

func TestDirNode_FailureLeavesUnrealized(t *testing.T) {
	src := &mocks.MockContentSource{}
	cause := errors.New("session expired")
	src.On("EnumerateFolder", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, cause).Once()
	src.On("EnumerateFolder", mock.Anything, mock.Anything, mock.Anything).
		Return([]coursefs.ListingEntry{entry("a.txt", coursefs.KindFile)}, nil)

	dir := folderNode(src)
	ctx := context.Background()

	err := dir.Realize(ctx)
	require.ErrorIs(t, err, cause)
	assert.Empty(t, dir.ChildNames(), "failed realization must not cache a partial tree")

	// A later access retries and succeeds
	require.NoError(t, dir.Realize(ctx))
	assert.Equal(t, []string{"a.txt"}, dir.ChildNames())
	src.AssertNumberOfCalls(t, "EnumerateFolder", 2)
}

func TestDirNode_ConcurrentFirstAccess(t *testing.T) {
	src := &mocks.MockContentSource{}
	src.On("EnumerateFolder", mock.Anything, mock.Anything, mock.Anything).
		After(20*time.Millisecond). // widen the race window
		Return([]coursefs.ListingEntry{
			entry("a.txt", coursefs.KindFile),
			entry("b.txt", coursefs.KindFile),
		}, nil)

	dir := folderNode(src)

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([][]string, goroutines)
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = dir.Realize(context.Background())
			results[i] = dir.ChildNames()
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []string{"a.txt", "b.txt"}, results[i], "every racer must observe the fully realized table")
	}
	src.AssertNumberOfCalls(t, "EnumerateFolder", 1)
}
