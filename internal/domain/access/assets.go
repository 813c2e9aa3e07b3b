package access

import (
	"path"
	"strings"
)

// staticExtensions are served straight through without an authorization decision.
// JSON is not listed, so data files stay behind the policy.
var staticExtensions = map[string]struct{}{
	".html": {}, ".htm": {},
	".css": {}, ".js": {},
	".jpg": {}, ".jpeg": {}, ".webp": {}, ".png": {}, ".gif": {}, ".svg": {},
	".ttf": {}, ".woff": {}, ".woff2": {}, ".ico": {},
	".csv": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".zip": {},
	".webmanifest": {},
}

// alwaysChecked prefixes are never treated as assets, whatever their extension.
var alwaysChecked = []string{"/api", "/trpc"}

// IsAsset reports whether a request path is a framework or static asset that
// bypasses the authorization policy.
func IsAsset(p string) bool {
	for _, prefix := range alwaysChecked {
		if underPrefix(p, prefix) {
			return false
		}
	}
	if underPrefix(p, "/_next") {
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	_, ok := staticExtensions[ext]
	return ok
}
