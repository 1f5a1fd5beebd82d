package httphelpers

import (
	"io"
	"net/http"
	"strings"
)

// DrainAndClose consumes the remaining response body and closes it to allow connection reuse.
func DrainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// NormalizeBasePath trims whitespace and leading/trailing slashes, and
// ensures a single leading slash, returning "" for a path that reduces to
// nothing (i.e. the server is mounted at the root). Duplicate slashes inside
// the path are kept as they are.
func NormalizeBasePath(basePath string) string {
	trimmed := strings.Trim(strings.TrimSpace(basePath), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

// JoinBasePath joins an already-normalized basePath with a suffix, ensuring
// exactly one "/" between them and a leading "/" on the result.
func JoinBasePath(basePath, suffix string) string {
	basePath = strings.TrimSuffix(basePath, "/")
	suffix = strings.TrimPrefix(suffix, "/")
	if suffix == "" {
		if basePath == "" {
			return "/"
		}
		return basePath
	}
	return basePath + "/" + suffix
}
