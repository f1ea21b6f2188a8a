package auth

import "strings"

// Client routes the gate knows about.
const (
	PathAuth           = "/auth"
	PathOnboarding     = "/onboarding"
	PathLeadGeneration = "/lead-generation"
)

// GateDecision says whether a client route may render, and where to go if not.
type GateDecision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
}

// Decide routes a visitor given only session presence and onboarding state.
// Paths outside the three gated routes are protected content.
func Decide(path string, hasSession, hasBusinessProfile bool) GateDecision {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}
	if !hasSession {
		if path == PathAuth || path == "/" {
			return GateDecision{Allow: true}
		}
		return GateDecision{Redirect: PathAuth}
	}
	switch path {
	case PathAuth:
		if hasBusinessProfile {
			return GateDecision{Redirect: PathLeadGeneration}
		}
		return GateDecision{Redirect: PathOnboarding}
	case PathOnboarding:
		if hasBusinessProfile {
			return GateDecision{Redirect: PathLeadGeneration}
		}
	case PathLeadGeneration:
		if !hasBusinessProfile {
			return GateDecision{Redirect: PathOnboarding}
		}
	}
	return GateDecision{Allow: true}
}
