package s3io

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename replaces unsafe characters, caps the length, and
// defaults to "upload" when nothing usable remains.
func SanitizeFilename(name string) string {
	safe := unsafeName.ReplaceAllString(name, "_")
	if len(safe) > 128 {
		safe = safe[:128]
	}
	if safe == "" {
		return "upload"
	}
	return safe
}

// BuildKey constructs the object key for an upload.
func BuildKey(prefix, uploadID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", prefix, uploadID, SanitizeFilename(filename))
}

// URI renders the s3:// URI for a bucket and key.
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// ParseURI extracts bucket and key from an s3:// URI.
func ParseURI(uri string) (bucket, key string, ok bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}
