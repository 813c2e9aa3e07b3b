// Package access holds the route classification and decision types used by
// the authorization policy. Everything here is static and request-scoped.
package access

import "strings"

// Fixed redirect targets and public entry points.
const (
	SignInPath         = "/auth/sign-in"
	SignUpPath         = "/auth/sign-up"
	ResetPasswordPath  = "/auth/reset-password"
	RootPath           = "/"
	AdminDashboardPath = "/admin/dashboard"
	CompletionRootPath = "/completion"

	// ReturnToQueryParam carries the originally requested URL to the sign-in flow.
	ReturnToQueryParam = "redirect_uri"

	adminSection      = "/admin"
	completionSection = "/completion"
)

// RouteClass is the static classification of a request path.
type RouteClass int

const (
	// ClassOther is any path not covered by another class.
	ClassOther RouteClass = iota
	// ClassPublic covers the sign-in, sign-up and password-reset pages.
	ClassPublic
	// ClassAdmin covers the admin section.
	ClassAdmin
	// ClassCompletion covers the completion section.
	ClassCompletion
)

func (c RouteClass) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassAdmin:
		return "admin-scoped"
	case ClassCompletion:
		return "completion-scoped"
	default:
		return "other"
	}
}

var publicPrefixes = []string{SignInPath, SignUpPath, ResetPasswordPath}

// Classify returns the class of path. Prefixes match on segment boundaries,
// so "/admin" and "/admin/users" are admin-scoped but "/administrator" is not.
// Public prefixes also cover sub-paths such as "/auth/sign-in/sso-callback".
func Classify(path string) RouteClass {
	for _, p := range publicPrefixes {
		if underPrefix(path, p) {
			return ClassPublic
		}
	}
	if underPrefix(path, adminSection) {
		return ClassAdmin
	}
	if underPrefix(path, completionSection) {
		return ClassCompletion
	}
	return ClassOther
}

// IsRoot reports whether path is exactly the application root.
func IsRoot(path string) bool {
	return path == RootPath
}

func underPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}
