// Package policy decides whether a request may touch a resource. The
// decision pipeline is fixed: identity, then organization binding, then
// visibility conditions, then role gates. Organization binding is never
// expressed as a condition; it is checked positionally before any
// configured rule runs.
package policy

import (
	"go.uber.org/zap"

	"github.com/hexacore/hexacore/internal/condition"
	"github.com/hexacore/hexacore/pkg/authz"
	"github.com/hexacore/hexacore/pkg/httperr"
	"github.com/hexacore/hexacore/pkg/telemetry"
)

type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// Decision is terminal. Denied is an ordinary value with a safe reason;
// Err is set only for OutcomeError and carries a typed httperr error.
type Decision struct {
	Outcome Outcome
	Reason  string
	Err     error
}

func granted() Decision { return Decision{Outcome: OutcomeGranted} }

func denied(r string) Decision { return Decision{Outcome: OutcomeDenied, Reason: r} }

func failed(err error) Decision { return Decision{Outcome: OutcomeError, Err: err} }

// Claims is the verified identity attached to a request before it
// reaches the gateway. The gateway never parses tokens itself.
type Claims struct {
	UserID         string
	Role           string
	Permissions    []string
	OrganizationID string
	Email          string
}

// Request bundles everything one decision needs. EvalCtx may be nil;
// the gateway then builds a minimal context from the claims.
type Request struct {
	Claims         *Claims
	OrganizationID string
	Conditions     []condition.Condition
	Object         string
	Action         string
	EvalCtx        *condition.Context
}

type Gateway struct {
	authorizer *authz.Authorizer
	log        *zap.Logger
}

// NewGateway wires the role authorizer. authorizer may be nil, in which
// case only identity, organization and condition checks apply.
func NewGateway(authorizer *authz.Authorizer, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{authorizer: authorizer, log: log}
}

// Decide runs the pipeline to a terminal decision. It performs no I/O
// and is safe to call concurrently.
func (g *Gateway) Decide(req Request) Decision {
	if req.Claims == nil {
		return failed(httperr.NewMissingAuthorization("no identity attached to request"))
	}
	c := req.Claims
	if c.UserID == "" || c.OrganizationID == "" {
		return failed(httperr.NewInvalidTokenFormat("identity claims incomplete"))
	}
	// The organization check is fatal and runs before any configured
	// condition; a mismatched caller never reaches rule evaluation.
	if req.OrganizationID == "" || c.OrganizationID != req.OrganizationID {
		return failed(httperr.NewOrganizationMismatch())
	}

	evalCtx := req.EvalCtx
	if evalCtx == nil {
		evalCtx = ContextFromClaims(c, nil, nil)
	}
	ok, err := condition.Evaluate(req.Conditions, evalCtx)
	if err != nil {
		return failed(err)
	}
	if !ok {
		return denied("visibility conditions not satisfied")
	}

	if g.authorizer != nil && req.Object != "" {
		sub := authz.SubjectFromRoleSlug(c.Role)
		dom := authz.DomainFromOrgID(c.OrganizationID)
		allowed, enforced, err := g.authorizer.Authorize(sub, dom, req.Object, req.Action)
		if err != nil {
			return failed(httperr.NewStore("authz", err))
		}
		if !allowed {
			if enforced {
				return denied("role not permitted")
			}
			g.log.Warn("authz shadow deny",
				zap.String("subject", sub),
				zap.String("object", req.Object),
				zap.String("action", req.Action),
				zap.String("email", telemetry.RedactEmail(c.Email)),
			)
		}
	}
	return granted()
}

// ContextFromClaims builds the request evaluation context. Entity and
// variables are optional and referenced as-is.
func ContextFromClaims(c *Claims, entity map[string]any, variables map[string]any) *condition.Context {
	return &condition.Context{
		User: condition.User{
			ID:             c.UserID,
			Role:           c.Role,
			Permissions:    c.Permissions,
			OrganizationID: c.OrganizationID,
			Email:          c.Email,
		},
		Organization: condition.Organization{ID: c.OrganizationID},
		Entity:       entity,
		Variables:    variables,
	}
}
