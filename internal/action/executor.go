// Package action executes configured resource actions against the
// entity store. Destructive actions run in two phases: the initial call
// opens a confirmation window and returns a single-use token, the
// confirm call spends it.
package action

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hexacore/hexacore/internal/condition"
	"github.com/hexacore/hexacore/internal/resource"
	"github.com/hexacore/hexacore/modules/entity/domain/types"
	"github.com/hexacore/hexacore/modules/entity/services"
	"github.com/hexacore/hexacore/pkg/httperr"
	"github.com/hexacore/hexacore/pkg/telemetry"
)

type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseConfirm Phase = "confirm"
)

const (
	StatusCompleted           = "completed"
	StatusPendingConfirmation = "pending_confirmation"
)

// Input is one execution request. The gateway has already granted the
// action's visibility conditions before this is built.
type Input struct {
	OrgID    string
	UserID   string
	EntityID string
	Action   resource.Action
	Phase    Phase
	Token    string
	EvalCtx  *condition.Context
}

type Outcome struct {
	Status            string              `json:"status"`
	ConfirmationToken string              `json:"confirmation_token,omitempty"`
	Report            *types.DeleteReport `json:"report,omitempty"`
}

type Executor struct {
	svc           *services.Service
	confirmations *ConfirmationStore
	log           *zap.Logger
}

func NewExecutor(svc *services.Service, confirmations *ConfirmationStore, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{svc: svc, confirmations: confirmations, log: log}
}

func (e *Executor) Execute(ctx context.Context, in Input) (Outcome, error) {
	switch in.Phase {
	case PhaseInitial, PhaseConfirm:
	default:
		return Outcome{}, httperr.NewValidation("unknown phase %q", string(in.Phase))
	}

	if in.Action.RequiresConfirmation {
		b := binding{
			OrgID:    in.OrgID,
			UserID:   in.UserID,
			EntityID: in.EntityID,
			ActionID: in.Action.ID,
		}
		switch in.Phase {
		case PhaseInitial:
			token, err := e.confirmations.Issue(b)
			if err != nil {
				return Outcome{}, httperr.NewStore("confirmation issue", err)
			}
			return Outcome{Status: StatusPendingConfirmation, ConfirmationToken: token}, nil
		case PhaseConfirm:
			if !e.confirmations.Consume(in.Token, b) {
				return Outcome{}, httperr.NewPendingConfirmation("confirmation token missing, expired or already used")
			}
		}
	} else if in.Phase == PhaseConfirm {
		return Outcome{}, httperr.NewValidation("action does not take a confirm phase")
	}

	out, err := e.run(ctx, in)
	if err != nil {
		e.log.Warn("action failed",
			append(telemetry.Identity(in.UserID, "", in.OrgID),
				zap.String("action_id", in.Action.ID),
				telemetry.SafeError(err))...)
		return Outcome{}, err
	}
	e.log.Info("action completed",
		append(telemetry.Identity(in.UserID, "", in.OrgID),
			zap.String("action_id", in.Action.ID),
			zap.String("kind", in.Action.Kind))...)
	return out, nil
}

func (e *Executor) run(ctx context.Context, in Input) (Outcome, error) {
	switch in.Action.Kind {
	case resource.ActionSetField:
		return e.runSetField(ctx, in)
	case resource.ActionDeleteEntity:
		report, err := e.svc.DeleteEntity(ctx, in.OrgID, in.EntityID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Status: StatusCompleted, Report: &report}, nil
	default:
		return Outcome{}, httperr.NewValidation("unknown action kind %q", in.Action.Kind)
	}
}

// runSetField resolves the templated value param against the request
// context and writes it as a dynamic field.
func (e *Executor) runSetField(ctx context.Context, in Input) (Outcome, error) {
	field := in.Action.Params["field"]
	raw := in.Action.Params["value"]
	smartCode := in.Action.Params["smartCode"]

	resolved, err := condition.ResolveTemplate(raw, in.EvalCtx)
	if err != nil {
		return Outcome{}, err
	}
	fv, err := fieldValue(resolved)
	if err != nil {
		return Outcome{}, err
	}
	if err := e.svc.SetDynamicField(ctx, in.OrgID, in.EntityID, field, fv, smartCode); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: StatusCompleted}, nil
}

func fieldValue(v any) (types.FieldValue, error) {
	switch t := v.(type) {
	case string:
		return types.Text(strings.TrimSpace(t)), nil
	case bool:
		return types.Boolean(t), nil
	case int:
		return types.Number(float64(t)), nil
	case int64:
		return types.Number(float64(t)), nil
	case float64:
		return types.Number(t), nil
	default:
		return types.FieldValue{}, httperr.NewValidation("unsupported value type for set_field")
	}
}
