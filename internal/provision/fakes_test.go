package provision

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/tonimelisma/projectfolders/internal/webdav"
)

const (
	testDomain = "https://cloud.test"
	testBase   = testDomain + "/remote.php/webdav"
	hrefBase   = "/remote.php/webdav"
)

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type transfer struct {
	src, dst string
}

// fakeStorage is an in-memory Storage. Listings are keyed by URL and depth.
type fakeStorage struct {
	listings map[string][]webdav.Item
	listErr  error
	failOn   map[string]error // keyed by source URL, for copy and move
	copies   []transfer
	moves    []transfer
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{listings: map[string][]webdav.Item{}, failOn: map[string]error{}}
}

func listingKey(rawURL string, depth webdav.Depth) string {
	return rawURL + "#" + string(depth)
}

func (f *fakeStorage) setListing(folder string, depth webdav.Depth, items ...webdav.Item) {
	f.listings[listingKey(f.FolderURL(folder), depth)] = items
}

func (f *fakeStorage) Propfind(_ context.Context, rawURL string, depth webdav.Depth) ([]webdav.Item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	return f.listings[listingKey(rawURL, depth)], nil
}

func (f *fakeStorage) Copy(_ context.Context, src, dst string) error {
	f.copies = append(f.copies, transfer{src, dst})

	return f.failOn[src]
}

func (f *fakeStorage) Move(_ context.Context, src, dst string) error {
	f.moves = append(f.moves, transfer{src, dst})

	return f.failOn[src]
}

func (f *fakeStorage) FolderURL(folderPath string) string {
	return testBase + "/" + strings.TrimLeft(folderPath, "/")
}

func (f *fakeStorage) ItemURL(href string) string {
	return testDomain + href
}

// file and dir build listing items below hrefBase.
func file(rel string) webdav.Item {
	href := hrefBase + "/" + rel

	return webdav.Item{Href: href, Name: rel[strings.LastIndex(rel, "/")+1:]}
}

func dir(rel string) webdav.Item {
	it := file(rel)
	it.IsCollection = true

	return it
}

// fakeFolders is an in-memory FolderMaker.
type fakeFolders struct {
	existing map[string]bool
	err      error
	calls    []string
}

func (f *fakeFolders) Mkdir(_ context.Context, folderPath string) (bool, error) {
	f.calls = append(f.calls, folderPath)

	if f.err != nil {
		return false, f.err
	}

	if f.existing == nil {
		f.existing = map[string]bool{}
	}

	if f.existing[folderPath] {
		return false, nil
	}

	f.existing[folderPath] = true

	return true, nil
}
