package report

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/Lllllllleong/aethercare/internal/logger"
)

var downloadURLObject = regexp.MustCompile(`/o/(.+)$`)

// NormalizeReference turns an artifact reference into an object path. gs://
// locators lose their scheme and bucket, Firebase download URLs are reduced
// to their decoded object path, and anything else is returned unchanged. A
// gs:// locator without an object path is returned as given.
func NormalizeReference(ctx context.Context, ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "gs://"):
		rest := strings.TrimPrefix(ref, "gs://")
		_, path, _ := strings.Cut(rest, "/")
		if path == "" {
			return ref
		}
		return path
	case strings.Contains(ref, "firebasestorage.googleapis.com"):
		u, err := url.Parse(ref)
		if err != nil {
			logger.Warn(ctx, "Failed to parse download URL, using it as a path.", "reference", ref, "error", err)
			return ref
		}
		m := downloadURLObject.FindStringSubmatch(u.EscapedPath())
		if m == nil {
			return ref
		}
		path, err := url.PathUnescape(m[1])
		if err != nil {
			logger.Warn(ctx, "Failed to decode download URL path.", "reference", ref, "error", err)
			return ref
		}
		return path
	}
	return ref
}

// resolve picks the storage path over the URL and normalizes it.
func resolve(ctx context.Context, storagePath, rawURL string) (path, original string) {
	original = storagePath
	if original == "" {
		original = rawURL
	}
	if original == "" {
		return "", ""
	}
	return NormalizeReference(ctx, original), original
}
