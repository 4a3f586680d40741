/*
storage_path Package recovers object paths from cloud storage download URLs

Usage:

	A download URL handed out by the storage service looks like
	https://<storage-host>/v0/b/<bucket>/o/<percent-encoded-object-path>?<query>
	and ExtractStoragePath returns the decoded object path. Every failure
	(empty input, malformed URL, no marker, bad escape) collapses into ok=false.
*/

package storage_path

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultObjectMarker prefixes the encoded object key in the path
	DefaultObjectMarker = "/o/"
	// DefaultStorageHost is the host of firebase storage download URLs
	DefaultStorageHost = "firebasestorage.googleapis.com"

	bucketMarker = "/b/"
)

var defaultExtractor = NewExtractor(DefaultObjectMarker)

// Extractor captures everything after the first occurrence of marker in the
// escaped URL path. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	marker string
	re     *regexp.Regexp
}

// NewExtractor returns an Extractor for a URL convention whose object key
// follows marker, e.g. "/o/". Hosts are never checked, so custom domains that
// keep the same path layout work as is.
func NewExtractor(marker string) Extractor {
	return Extractor{
		marker: marker,
		re:     regexp.MustCompile(regexp.QuoteMeta(marker) + `(.+)$`),
	}
}

func (e Extractor) Marker() string {
	return e.marker
}

// Extract returns the decoded object path encoded in rawUrl, ok is false if
// there is none.
func (e Extractor) Extract(rawUrl string) (path string, ok bool) {
	u, ok := parseAbsoluteUrl(rawUrl)
	if !ok {
		return "", false
	}

	// Path of url.URL is already decoded, match against the escaped form so
	// an encoded "/" inside the key can't be confused with a path separator.
	match := e.re.FindStringSubmatch(u.EscapedPath())
	if match == nil {
		return "", false
	}

	path, err := url.PathUnescape(match[1])
	// escapes like %FF decode fine but aren't a valid object name
	if err != nil || !utf8.ValidString(path) {
		return "", false
	}
	return path, true
}

// ExtractStoragePath returns the object path of a download URL such as
// https://firebasestorage.googleapis.com/v0/b/my-bucket/o/images%2Favatar.png?alt=media
// which is "images/avatar.png".
func ExtractStoragePath(rawUrl string) (string, bool) {
	return defaultExtractor.Extract(rawUrl)
}

// ExtractStoragePathPtr is ExtractStoragePath for optional values, nil in and
// nil out.
func ExtractStoragePathPtr(rawUrl *string) *string {
	if rawUrl == nil {
		return nil
	}
	path, ok := ExtractStoragePath(*rawUrl)
	if !ok {
		return nil
	}
	return &path
}

// ExtractBucket returns the bucket name of a /v0/b/<bucket>/o/... download URL.
func ExtractBucket(rawUrl string) (string, bool) {
	u, ok := parseAbsoluteUrl(rawUrl)
	if !ok {
		return "", false
	}
	escaped := u.EscapedPath()

	start := strings.Index(escaped, bucketMarker)
	if start < 0 {
		return "", false
	}
	rest := escaped[start+len(bucketMarker):]
	end := strings.Index(rest, DefaultObjectMarker)
	if end <= 0 {
		return "", false
	}

	bucket, err := url.PathUnescape(rest[:end])
	if err != nil || !utf8.ValidString(bucket) {
		return "", false
	}
	return bucket, true
}

// BuildDownloadUrl is the inverse of ExtractStoragePath. token is optional.
func BuildDownloadUrl(host, bucket, path, token string) string {
	u := url.URL{
		Scheme: "https",
		Host:   host,
		// url.PathEscape keeps "/" in the key encoded as %2F
		Path:    "/v0/b/" + bucket + DefaultObjectMarker + path,
		RawPath: "/v0/b/" + url.PathEscape(bucket) + DefaultObjectMarker + url.PathEscape(path),
	}

	q := url.Values{}
	q.Set("alt", "media")
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func parseAbsoluteUrl(rawUrl string) (*url.URL, bool) {
	if rawUrl == "" {
		return nil, false
	}
	u, err := url.Parse(rawUrl)
	if err != nil {
		return nil, false
	}
	// url.Parse accepts almost anything as a relative reference
	if u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}
