package mocks

import (
	"context"
	"io"

	"github.com/brettbedarf/coursefs"
	"github.com/stretchr/testify/mock"
)

// MockContentSource implements coursefs.ContentSource for testing across packages
type MockContentSource struct {
	mock.Mock
}

func (m *MockContentSource) EnumerateFolder(ctx context.Context, dir, locator string) ([]coursefs.ListingEntry, error) {
	args := m.Called(ctx, dir, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]coursefs.ListingEntry), args.Error(1)
}

func (m *MockContentSource) EnumerateVideoFolder(ctx context.Context, dir, locator string) ([]coursefs.ListingEntry, error) {
	args := m.Called(ctx, dir, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]coursefs.ListingEntry), args.Error(1)
}

func (m *MockContentSource) EnumerateExercises(ctx context.Context, dir, locator string) ([]coursefs.ListingEntry, error) {
	args := m.Called(ctx, dir, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]coursefs.ListingEntry), args.Error(1)
}

var _ coursefs.ContentSource = (*MockContentSource)(nil)

// MockTransport implements coursefs.Transport for testing across packages
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Probe(ctx context.Context, url string) (int64, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransport) StreamGet(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)

	// Handle function return types so each call can produce a fresh stream
	if fn, ok := args.Get(0).(func(context.Context) io.ReadCloser); ok {
		return fn(ctx), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

var _ coursefs.Transport = (*MockTransport)(nil)
