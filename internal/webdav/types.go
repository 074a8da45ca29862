// Package webdav is a minimal WebDAV client covering the verbs the folder
// workflow needs: PROPFIND listings, and COPY/MOVE that never overwrite.
package webdav

import (
	"encoding/xml"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Depth is the value of the PROPFIND Depth header.
type Depth string

// Supported listing depths.
const (
	DepthOne      Depth = "1"
	DepthInfinity Depth = "infinity"
)

// propfindBody requests only the display name. Collections are recognized by
// the trailing slash servers put on their hrefs, or by a resourcetype if the
// server volunteers one.
const propfindBody = `<?xml version="1.0" encoding="UTF-8"?>
<d:propfind xmlns:d="DAV:" xmlns:oc="http://owncloud.org/ns" xmlns:nc="http://nextcloud.org/ns">
  <d:prop>
    <d:displayname/>
  </d:prop>
</d:propfind>`

// Item is one entry of a PROPFIND listing. Href is the server path exactly as
// listed, minus trailing slashes; Name is its decoded leaf.
type Item struct {
	Href         string
	Name         string
	IsCollection bool
}

// multistatus is the body of a 207 response.
type multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []response `xml:"DAV: response"`
}

// response holds the href and the merged properties of one resource.
//
//	<d:response>
//	  <d:href>/remote.php/webdav/default/Auftrag_X.docx</d:href>
//	  <d:propstat>
//	    <d:prop><d:displayname>Auftrag_X.docx</d:displayname></d:prop>
//	    <d:status>HTTP/1.1 200 OK</d:status>
//	  </d:propstat>
//	</d:response>
type response struct {
	Href     string     `xml:"DAV: href"`
	Propstat []propstat `xml:"DAV: propstat"`
}

type propstat struct {
	Status      string    `xml:"DAV: status"`
	DisplayName string    `xml:"DAV: prop>displayname"`
	Collection  *xml.Name `xml:"DAV: prop>resourcetype>collection"`
}

// toItem normalizes a response into an Item.
func (r *response) toItem() Item {
	raw := strings.TrimSpace(r.Href)
	href := strings.TrimRight(raw, "/")

	item := Item{
		Href:         href,
		Name:         leafName(href),
		IsCollection: strings.HasSuffix(raw, "/"),
	}

	for i := range r.Propstat {
		if r.Propstat[i].Collection != nil {
			item.IsCollection = true
		}
	}

	return item
}

// leafName returns the percent-decoded, NFC-normalized basename of href.
// Servers that store names from macOS clients may list them in NFD.
func leafName(href string) string {
	if href == "" {
		return ""
	}

	p := href
	if u, err := url.Parse(href); err == nil && u.Scheme != "" {
		p = u.EscapedPath()
	}

	base := path.Base(p)
	if base == "/" || base == "." {
		return ""
	}

	if decoded, err := url.PathUnescape(base); err == nil {
		base = decoded
	}

	return norm.NFC.String(base)
}
