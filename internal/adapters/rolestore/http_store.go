// Package rolestore reads user roles from the platform's REST backend.
package rolestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/punchlist-gateway/internal/ports"
)

const (
	idPlaceholder     = "{id}"
	maxResponseBytes  = 1 << 20
	defaultExpression = "role"
)

// ErrRecordNotFound aliases the port sentinel so callers can match either.
var ErrRecordNotFound = ports.ErrRoleRecordNotFound

// HTTPStoreConfig configures an HTTPStore.
type HTTPStoreConfig struct {
	// URLTemplate contains {id}, e.g. "https://api/users/{id}" or
	// "https://db/rest/v1/users?uuid=eq.{id}&select=role".
	URLTemplate string
	// AuthHeader is sent verbatim as the Authorization header when set.
	AuthHeader string
	// APIKey is sent as the apikey header when set.
	APIKey string
	// RoleExpression is a JMESPath expression selecting the role from the JSON body.
	RoleExpression string
	HTTPClient     *http.Client
}

// HTTPStore implements ports.RoleStore with one GET per lookup.
type HTTPStore struct {
	urlTemplate string
	authHeader  string
	apiKey      string
	expr        jmespath.JMESPath
	client      *http.Client
}

var _ ports.RoleStore = (*HTTPStore)(nil)

// NewHTTPStore validates cfg and compiles the role expression.
func NewHTTPStore(cfg HTTPStoreConfig) (*HTTPStore, error) {
	tmpl := strings.TrimSpace(cfg.URLTemplate)
	if !strings.Contains(tmpl, idPlaceholder) {
		return nil, fmt.Errorf("role store URL template must contain %s", idPlaceholder)
	}
	if _, err := url.Parse(strings.ReplaceAll(tmpl, idPlaceholder, "x")); err != nil {
		return nil, fmt.Errorf("parse role store URL template: %w", err)
	}

	exprSrc := strings.TrimSpace(cfg.RoleExpression)
	if exprSrc == "" {
		exprSrc = defaultExpression
	}
	expr, err := jmespath.Compile(exprSrc)
	if err != nil {
		return nil, fmt.Errorf("compile role expression %q: %w", exprSrc, err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	return &HTTPStore{
		urlTemplate: tmpl,
		authHeader:  strings.TrimSpace(cfg.AuthHeader),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		expr:        expr,
		client:      client,
	}, nil
}

// lookupURL substitutes userID, escaping for the query string when the
// placeholder sits after '?'.
func (s *HTTPStore) lookupURL(userID string) string {
	q := strings.Index(s.urlTemplate, "?")
	p := strings.Index(s.urlTemplate, idPlaceholder)
	escaped := url.PathEscape(userID)
	if q >= 0 && p > q {
		escaped = url.QueryEscape(userID)
	}
	return strings.ReplaceAll(s.urlTemplate, idPlaceholder, escaped)
}

// LookupRole fetches the user record and evaluates the role expression.
// A 404, a null body or an empty result set is ErrRecordNotFound; a record
// without a role yields "".
func (s *HTTPStore) LookupRole(ctx context.Context, userID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.lookupURL(userID), nil)
	if err != nil {
		return "", fmt.Errorf("build role request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.authHeader != "" {
		req.Header.Set("Authorization", s.authHeader)
	}
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("role request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrRecordNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	var doc any
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("decode role response: %w", err)
	}
	if isEmptyDocument(doc) {
		return "", ErrRecordNotFound
	}

	value, err := s.expr.Search(doc)
	if err != nil {
		return "", fmt.Errorf("evaluate role expression: %w", err)
	}
	return roleString(value), nil
}

// StatusError reports an unexpected HTTP status from the role endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("role endpoint returned status %d", e.StatusCode)
}

// HTTPStatus exposes the status code to error classification.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

func isEmptyDocument(doc any) bool {
	switch v := doc.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// roleString renders the expression result. Non-string values are rendered
// so the resolver reports them as malformed rather than as a missing role.
func roleString(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Sprint(r)
		}
		return string(b)
	}
}
