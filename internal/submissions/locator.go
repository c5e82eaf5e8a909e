package submissions

import (
	"net/url"
	"strings"
)

// LocatorKind tells how a file key was obtained.
type LocatorKind int

const (
	// LocatorNone means the submission has no attached file.
	LocatorNone LocatorKind = iota
	// LocatorKey is a structured object key stored on the record.
	LocatorKey
	// LocatorLegacyURL is a key derived from an older full-URL column.
	LocatorLegacyURL
)

func (k LocatorKind) String() string {
	switch k {
	case LocatorKey:
		return "key"
	case LocatorLegacyURL:
		return "legacy_url"
	default:
		return "none"
	}
}

// FileLocator points at the object backing a submission.
type FileLocator struct {
	Kind LocatorKind
	Key  string
}

// Locate resolves the object key of s: the stored key first, then a key decoded from the
// legacy URL's path. ok is false when neither yields a key.
func Locate(s Submission) (FileLocator, bool) {
	if key := strings.TrimSpace(s.FileKey); key != "" {
		return FileLocator{Kind: LocatorKey, Key: key}, true
	}
	if key := keyFromURL(s.FileURL); key != "" {
		return FileLocator{Kind: LocatorLegacyURL, Key: key}, true
	}
	return FileLocator{}, false
}

// keyFromURL decodes the object key from a virtual-hosted
// (https://bucket.s3.region.amazonaws.com/key) or path-style
// (https://s3.region.amazonaws.com/bucket/key) URL.
func keyFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	p, err := url.PathUnescape(u.EscapedPath())
	if err != nil {
		return ""
	}
	p = strings.TrimPrefix(p, "/")
	if isPathStyleHost(u.Hostname()) {
		_, rest, found := strings.Cut(p, "/")
		if !found {
			return ""
		}
		p = rest
	}
	return p
}

func isPathStyleHost(host string) bool {
	return host == "s3.amazonaws.com" || (strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-")) && strings.HasSuffix(host, ".amazonaws.com")
}
