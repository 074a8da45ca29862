package provision

import (
	"context"
	"net/url"
	"strings"

	"github.com/tonimelisma/projectfolders/internal/webdav"
)

// DefaultSentinel is the reserved name excluded from copy and rename.
const DefaultSentinel = "S000xx"

// Storage is the WebDAV surface the synchronizer and renamer need.
// Satisfied by *webdav.Client.
type Storage interface {
	Propfind(ctx context.Context, rawURL string, depth webdav.Depth) ([]webdav.Item, error)
	Copy(ctx context.Context, src, dst string) error
	Move(ctx context.Context, src, dst string) error
	FolderURL(folderPath string) string
	ItemURL(href string) string
}

// entry is a listed item placed relative to the folder that was listed.
type entry struct {
	webdav.Item
	URL  string   // absolute source URL
	Rel  []string // decoded path segments below the listed folder
	Self bool     // the listed folder itself
}

// locate resolves item against the listed folder. Items whose path does not
// sit under the folder keep only their leaf as relative path.
func locate(s Storage, folderURL string, item webdav.Item) entry {
	e := entry{Item: item, URL: s.ItemURL(item.Href)}

	folderPath := decodedPath(folderURL)
	itemPath := decodedPath(e.URL)

	switch {
	case itemPath == folderPath:
		e.Self = true
	case strings.HasPrefix(itemPath, folderPath+"/"):
		e.Rel = strings.Split(itemPath[len(folderPath)+1:], "/")
	default:
		e.Rel = []string{item.Name}
	}

	return e
}

// underSentinel reports whether any segment of the relative path is the
// sentinel, so the sentinel and everything below it are excluded.
func (e entry) underSentinel(sentinel string) bool {
	if e.Name == sentinel {
		return true
	}

	for _, seg := range e.Rel {
		if seg == sentinel {
			return true
		}
	}

	return false
}

func decodedPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.TrimRight(rawURL, "/")
	}

	p := u.EscapedPath()
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}

	return strings.TrimRight(p, "/")
}
