package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/hexacore/hexacore/internal/action"
	"github.com/hexacore/hexacore/internal/condition"
	"github.com/hexacore/hexacore/internal/policy"
	"github.com/hexacore/hexacore/internal/resource"
	"github.com/hexacore/hexacore/internal/routing"
	"github.com/hexacore/hexacore/internal/stats"
	"github.com/hexacore/hexacore/modules/entity/services"
	"github.com/hexacore/hexacore/pkg/authz"
	"github.com/hexacore/hexacore/pkg/httperr"
)

type resourceAPI struct {
	registry *resource.Registry
	gateway  *policy.Gateway
	resolver *stats.Resolver
	executor *action.Executor
	svc      *services.Service
	log      *zap.Logger
}

// lookupResource resolves the path params against the registry. An
// unknown resource id is a plain not found.
func (a *resourceAPI) lookupResource(w http.ResponseWriter, r *http.Request) (resource.Resource, string, bool) {
	params := routing.Params(r)
	orgID := params["orgId"]
	if a.registry == nil {
		routing.WriteErr(w, r, httperr.NewStore("registry", errors.New("resource registry not configured")))
		return resource.Resource{}, "", false
	}
	res, ok := a.registry.Resource(params["resourceId"])
	if !ok {
		routing.WriteErr(w, r, httperr.NewNotFound("resource not found"))
		return resource.Resource{}, "", false
	}
	return res, orgID, true
}

// bindRequest checks identity and organization before anything touches
// the store, then builds the evaluation context. The optional entity
// query param loads an entity and its dynamic fields into the context.
func (a *resourceAPI) bindRequest(r *http.Request, orgID string) (*policy.Claims, *condition.Context, error) {
	var claims *policy.Claims
	if c, ok := currentClaims(r.Context()); ok {
		claims = &c
	}
	d := a.gateway.Decide(policy.Request{Claims: claims, OrganizationID: orgID})
	if d.Outcome == policy.OutcomeError {
		return nil, nil, d.Err
	}

	var entity map[string]any
	if entityID := r.URL.Query().Get("entity"); entityID != "" {
		// Loading an entity into the evaluation context is an entity
		// read and passes the same role gate. A caller whose role may
		// not read entities sees the record as absent.
		ed := a.gateway.Decide(policy.Request{
			Claims:         claims,
			OrganizationID: orgID,
			Object:         authz.ObjectEntity,
			Action:         authz.ActionRead,
		})
		switch ed.Outcome {
		case policy.OutcomeError:
			return nil, nil, ed.Err
		case policy.OutcomeDenied:
			return nil, nil, httperr.NewNotFound("entity not found")
		}
		e, err := a.svc.GetEntity(r.Context(), orgID, entityID)
		if err != nil {
			return nil, nil, err
		}
		entity = map[string]any{
			"id":     e.ID,
			"type":   e.Type,
			"name":   e.Name,
			"code":   e.Code,
			"status": e.Status,
		}
		fields, err := a.svc.ListDynamicFields(r.Context(), orgID, e.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range fields {
			if _, taken := entity[f.Name]; !taken {
				entity[f.Name] = f.Value()
			}
		}
	}
	return claims, policy.ContextFromClaims(claims, entity, nil), nil
}

func (a *resourceAPI) decide(claims *policy.Claims, orgID string, conds []condition.Condition, evalCtx *condition.Context, object, act string) policy.Decision {
	return a.gateway.Decide(policy.Request{
		Claims:         claims,
		OrganizationID: orgID,
		Conditions:     conds,
		Object:         object,
		Action:         act,
		EvalCtx:        evalCtx,
	})
}

func writeDecision(w http.ResponseWriter, r *http.Request, d policy.Decision) {
	if d.Outcome == policy.OutcomeError {
		routing.WriteErr(w, r, d.Err)
		return
	}
	routing.WriteError(w, r, http.StatusForbidden, "denied", d.Reason)
}

type resourceView struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	EntityType string           `json:"entity_type,omitempty"`
	Stats      []statView       `json:"stats"`
	Actions    []actionView     `json:"actions"`
}

type statView struct {
	ID        string `json:"id"`
	Format    string `json:"format,omitempty"`
	IsPrivate bool   `json:"is_private"`
}

type actionView struct {
	ID                   string `json:"id"`
	Label                string `json:"label,omitempty"`
	Kind                 string `json:"kind"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
}

func (a *resourceAPI) handleGetResource(w http.ResponseWriter, r *http.Request) {
	res, orgID, ok := a.lookupResource(w, r)
	if !ok {
		return
	}
	claims, evalCtx, err := a.bindRequest(r, orgID)
	if err != nil {
		routing.WriteErr(w, r, err)
		return
	}
	d := a.decide(claims, orgID, res.Visibility, evalCtx, authz.ObjectResource, authz.ActionRead)
	if d.Outcome != policy.OutcomeGranted {
		writeDecision(w, r, d)
		return
	}

	privateOK := a.decide(claims, orgID, nil, evalCtx, authz.ObjectPrivateStats, authz.ActionRead).Outcome == policy.OutcomeGranted

	view := resourceView{
		ID:         res.ID,
		Title:      res.Title,
		EntityType: res.EntityType,
		Stats:      []statView{},
		Actions:    []actionView{},
	}
	for _, s := range res.Stats {
		if s.IsPrivate && !privateOK {
			continue
		}
		view.Stats = append(view.Stats, statView{ID: s.ID, Format: s.Format, IsPrivate: s.IsPrivate})
	}
	for _, act := range res.Actions {
		visible, err := condition.Evaluate(act.Visibility, evalCtx)
		if err != nil {
			routing.WriteErr(w, r, err)
			return
		}
		if !visible {
			continue
		}
		view.Actions = append(view.Actions, actionView{
			ID:                   act.ID,
			Label:                act.Label,
			Kind:                 act.Kind,
			RequiresConfirmation: act.RequiresConfirmation,
		})
	}
	routing.WriteJSON(w, http.StatusOK, view)
}

func (a *resourceAPI) handleGetStats(w http.ResponseWriter, r *http.Request) {
	res, orgID, ok := a.lookupResource(w, r)
	if !ok {
		return
	}
	claims, evalCtx, err := a.bindRequest(r, orgID)
	if err != nil {
		routing.WriteErr(w, r, err)
		return
	}
	d := a.decide(claims, orgID, res.Visibility, evalCtx, authz.ObjectResourceStats, authz.ActionRead)
	if d.Outcome != policy.OutcomeGranted {
		writeDecision(w, r, d)
		return
	}

	specs := res.Stats
	if a.decide(claims, orgID, nil, evalCtx, authz.ObjectPrivateStats, authz.ActionRead).Outcome != policy.OutcomeGranted {
		visible := make([]stats.Spec, 0, len(specs))
		for _, s := range specs {
			if !s.IsPrivate {
				visible = append(visible, s)
			}
		}
		specs = visible
	}

	// Partial failure stays a 200; each failed stat carries its own
	// error marker.
	results := a.resolver.ComputeAll(r.Context(), orgID, specs, evalCtx)
	routing.WriteJSON(w, http.StatusOK, map[string]any{"stats": results})
}

func (a *resourceAPI) handleExplain(w http.ResponseWriter, r *http.Request) {
	res, orgID, ok := a.lookupResource(w, r)
	if !ok {
		return
	}
	claims, evalCtx, err := a.bindRequest(r, orgID)
	if err != nil {
		routing.WriteErr(w, r, err)
		return
	}
	d := a.decide(claims, orgID, nil, evalCtx, authz.ObjectExplain, authz.ActionAdmin)
	if d.Outcome != policy.OutcomeGranted {
		writeDecision(w, r, d)
		return
	}

	trace, err := condition.Explain(res.Visibility, evalCtx)
	if err != nil {
		routing.WriteErr(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, trace)
}

type actionRequest struct {
	Phase             string `json:"phase"`
	ConfirmationToken string `json:"confirmation_token"`
	EntityID          string `json:"entity_id"`
}

func (a *resourceAPI) handleAction(w http.ResponseWriter, r *http.Request) {
	res, orgID, ok := a.lookupResource(w, r)
	if !ok {
		return
	}
	act, ok := res.Action(routing.Params(r)["actionId"])
	if !ok {
		routing.WriteErr(w, r, httperr.NewNotFound("action not found"))
		return
	}

	var body actionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		routing.WriteErr(w, r, httperr.NewValidation("invalid request body"))
		return
	}
	if body.Phase == "" {
		body.Phase = string(action.PhaseInitial)
	}

	claims, evalCtx, err := a.bindRequest(r, orgID)
	if err != nil {
		routing.WriteErr(w, r, err)
		return
	}
	// The action's own visibility conditions gate execution, on both
	// phases.
	conds := append(append([]condition.Condition{}, res.Visibility...), act.Visibility...)
	d := a.decide(claims, orgID, conds, evalCtx, authz.ObjectAction, authz.ActionExecute)
	if d.Outcome != policy.OutcomeGranted {
		writeDecision(w, r, d)
		return
	}

	out, err := a.executor.Execute(r.Context(), action.Input{
		OrgID:    orgID,
		UserID:   claims.UserID,
		EntityID: body.EntityID,
		Action:   act,
		Phase:    action.Phase(body.Phase),
		Token:    body.ConfirmationToken,
		EvalCtx:  evalCtx,
	})
	if err != nil {
		routing.WriteErr(w, r, err)
		return
	}
	status := http.StatusOK
	if out.Status == action.StatusPendingConfirmation {
		status = http.StatusAccepted
	}
	routing.WriteJSON(w, status, out)
}
