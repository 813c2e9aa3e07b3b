package access

import "net/url"

// State names the branch of the policy that produced a decision.
type State string

const (
	StatePublicRoute       State = "public_route"
	StateUnauthenticated   State = "unauthenticated"
	StateAuthenticatedRoot State = "authenticated_root"
	StateAdminGuard        State = "admin_guard"
	StateCompletionGuard   State = "completion_guard"
	StatePassThrough       State = "pass_through"
)

// Outcome is what the pipeline does with the request.
type Outcome string

const (
	OutcomeAllow    Outcome = "allow"
	OutcomeRedirect Outcome = "redirect"
)

// Decision is the result of evaluating one request.
type Decision struct {
	State    State
	Outcome  Outcome
	Location string // set when Outcome is OutcomeRedirect
}

// Allowed reports whether the request continues unchanged.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Allow builds a pass-through decision.
func Allow(state State) Decision {
	return Decision{State: state, Outcome: OutcomeAllow}
}

// Redirect builds a redirect decision.
func Redirect(state State, location string) Decision {
	return Decision{State: state, Outcome: OutcomeRedirect, Location: location}
}

// SignInURL returns the sign-in entry point carrying returnTo for post-login
// return. An empty returnTo yields the bare sign-in path.
func SignInURL(returnTo string) string {
	if returnTo == "" {
		return SignInPath
	}
	return SignInPath + "?" + url.Values{ReturnToQueryParam: {returnTo}}.Encode()
}
