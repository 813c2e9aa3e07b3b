package service

import (
	"context"
	"time"

	"github.com/target/punchlist-gateway/internal/domain/access"
)

// Role lookup results used for logs and metric tags.
const (
	LookupResultOK        = "ok"
	LookupResultNoRole    = "no_role"
	LookupResultNotFound  = "not_found"
	LookupResultMalformed = "malformed"
	LookupResultTimeout   = "timeout"
	LookupResultCanceled  = "canceled"
	LookupResultError     = "error"
	LookupResultPanic     = "panic"
)

// AccessMetrics receives observations from the resolver and the policy.
// Implementations must be safe for concurrent use.
type AccessMetrics interface {
	RecordRoleLookup(ctx context.Context, result string, elapsed time.Duration)
	RecordDecision(ctx context.Context, decision access.Decision)
}

type noopAccessMetrics struct{}

func (noopAccessMetrics) RecordRoleLookup(context.Context, string, time.Duration) {}
func (noopAccessMetrics) RecordDecision(context.Context, access.Decision)         {}
