package server

import (
	"errors"
	"testing"

	"github.com/brettbedarf/coursefs"
	"github.com/brettbedarf/coursefs/config"
	"github.com/brettbedarf/coursefs/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNew_BuildsRootFromEntry(t *testing.T) {
	root := coursefs.ListingEntry{
		Name: "desktop",
		Path: ".",
		Kind: coursefs.KindFolder,
		URL:  "https://portal.example.com/desktop",
	}

	fs := New(config.NewConfig(nil), &mocks.MockContentSource{}, &mocks.MockTransport{}, root)

	require.NotNil(t, fs.Root())
	assert.Equal(t, root, fs.Root().Entry())
}

func TestServe_FailsWhenRootEnumerationFails(t *testing.T) {
	src := &mocks.MockContentSource{}
	cause := errors.New("bad session token")
	src.On("EnumerateFolder", mock.Anything, mock.Anything, mock.Anything).Return(nil, cause)

	fs := New(config.NewConfig(nil), src, &mocks.MockTransport{}, coursefs.ListingEntry{
		Path: ".",
		Kind: coursefs.KindFolder,
		URL:  "https://portal.example.com/desktop",
	})

	// The credential check fails before anything is mounted
	err := fs.Serve(t.TempDir())
	require.ErrorIs(t, err, cause)
	assert.NoError(t, fs.Unmount(), "unmount without a live mount is a no-op")
}
