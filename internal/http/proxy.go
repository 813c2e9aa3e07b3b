package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/target/punchlist-gateway/internal/domain/access"
)

// NewUpstreamProxy forwards allowed requests to the dashboard at rawURL.
func NewUpstreamProxy(rawURL string, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be an absolute http(s) URL", rawURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
			pr.Out.Header.Del(AuthenticatedUserHeader)
			if id, ok := IdentityFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(AuthenticatedUserHeader, id.UserID)
			}
			if rid := RequestIDFromContext(pr.In.Context()); rid != "" {
				pr.Out.Header.Set(RequestIDHeader, rid)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) {
				return
			}
			logger.ErrorContext(r.Context(), "upstream request failed",
				"error", err, "path", r.URL.Path, "upstream", target.Host)
			WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "upstream_unavailable", Err: err})
		},
	}, nil
}

// LandingHandler stands in for the dashboard when no upstream is configured.
// It reports which area the request reached and as whom.
func LandingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"path": r.URL.Path,
			"area": access.Classify(r.URL.Path).String(),
		}
		if id, ok := IdentityFromContext(r.Context()); ok {
			body["user"] = userPayload(id)
		}
		WriteJSON(w, http.StatusOK, body)
	})
}
