package server

import (
	"net/http"
	"strings"

	"github.com/hexacore/hexacore/internal/policy"
)

// identityProvider extracts verified claims from a request. The server
// never validates credentials itself; it trusts whatever front door
// (gateway, auth proxy) populated the identity headers.
type identityProvider interface {
	Identify(r *http.Request) (policy.Claims, bool)
}

// headerIdentityProvider reads X-Identity-* headers set by a verifying
// proxy. Absent or blank user/org headers mean no identity.
type headerIdentityProvider struct{}

func (headerIdentityProvider) Identify(r *http.Request) (policy.Claims, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-Identity-User"))
	orgID := strings.TrimSpace(r.Header.Get("X-Identity-Org"))
	if userID == "" && orgID == "" {
		return policy.Claims{}, false
	}
	var perms []string
	if raw := strings.TrimSpace(r.Header.Get("X-Identity-Permissions")); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				perms = append(perms, p)
			}
		}
	}
	return policy.Claims{
		UserID:         userID,
		Role:           strings.ToLower(strings.TrimSpace(r.Header.Get("X-Identity-Role"))),
		Permissions:    perms,
		OrganizationID: orgID,
		Email:          strings.TrimSpace(r.Header.Get("X-Identity-Email")),
	}, true
}

// staticIdentityProvider binds every request to one identity.
type staticIdentityProvider struct {
	claims policy.Claims
}

func (p staticIdentityProvider) Identify(*http.Request) (policy.Claims, bool) {
	return p.claims, true
}
