// Package services wires validation in front of the entity store: smart
// code grammar, typed-value consistency and tenant scoping are all
// checked here before a write reaches persistence.
package services

import (
	"context"
	"strings"

	"github.com/hexacore/hexacore/modules/entity/domain/ports"
	"github.com/hexacore/hexacore/modules/entity/domain/types"
	"github.com/hexacore/hexacore/pkg/httperr"
	"github.com/hexacore/hexacore/pkg/smartcode"
	"github.com/hexacore/hexacore/pkg/uuidv7"
)

type Service struct {
	store ports.Store
}

func NewService(store ports.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Store() ports.Store { return s.store }

// EntitySpec is the caller-facing creation request. SmartCode arrives raw
// and is parsed exactly once here.
type EntitySpec struct {
	Type      string
	Name      string
	Code      string
	SmartCode string
	Status    string
	Fields    []FieldSpec
}

type FieldSpec struct {
	Name      string
	Value     types.FieldValue
	SmartCode string
}

func (s *Service) CreateEntity(ctx context.Context, orgID string, spec EntitySpec) (types.Entity, error) {
	if strings.TrimSpace(orgID) == "" {
		return types.Entity{}, httperr.NewValidation("organization id required")
	}
	if strings.TrimSpace(spec.Type) == "" {
		return types.Entity{}, httperr.NewValidation("entity type required")
	}
	if strings.TrimSpace(spec.Name) == "" {
		return types.Entity{}, httperr.NewValidation("entity name required")
	}
	code, err := smartcode.Parse(spec.SmartCode)
	if err != nil {
		return types.Entity{}, httperr.NewValidation("invalid smart code: %v", err)
	}

	id, err := uuidv7.NewString()
	if err != nil {
		return types.Entity{}, err
	}
	status := spec.Status
	if status == "" {
		status = "active"
	}
	e := types.Entity{
		ID:             id,
		OrganizationID: orgID,
		Type:           spec.Type,
		Name:           spec.Name,
		Code:           spec.Code,
		SmartCode:      code,
		Status:         status,
	}

	fields := make([]types.DynamicField, 0, len(spec.Fields))
	for _, fs := range spec.Fields {
		f, err := buildField(orgID, id, fs)
		if err != nil {
			return types.Entity{}, err
		}
		fields = append(fields, f)
	}

	return s.store.CreateEntity(ctx, e, fields)
}

func buildField(orgID string, entityID string, fs FieldSpec) (types.DynamicField, error) {
	if strings.TrimSpace(fs.Name) == "" {
		return types.DynamicField{}, httperr.NewValidation("field name required")
	}
	if fs.Value.IsZero() {
		return types.DynamicField{}, httperr.NewValidation("field %q has no typed value", fs.Name)
	}
	code, err := smartcode.Parse(fs.SmartCode)
	if err != nil {
		return types.DynamicField{}, httperr.NewValidation("invalid smart code for field %q: %v", fs.Name, err)
	}
	f := types.DynamicField{
		EntityID:       entityID,
		OrganizationID: orgID,
		Name:           fs.Name,
		SmartCode:      code,
	}
	fs.Value.Apply(&f)
	return f, nil
}

func (s *Service) GetEntity(ctx context.Context, orgID string, id string) (types.Entity, error) {
	return s.store.GetEntity(ctx, orgID, id)
}

// GetEntities is a restartable, finite listing. The store ANDs the
// organization predicate regardless of the filter content.
func (s *Service) GetEntities(ctx context.Context, orgID string, entityType string, f types.ListFilter) ([]types.Entity, error) {
	f.OrganizationID = orgID
	return s.store.ListEntities(ctx, orgID, entityType, f)
}

// SetDynamicField upserts one typed attribute. A value whose type
// conflicts with the type previously declared for the (entity, name)
// pair is rejected; the first write declares the type.
func (s *Service) SetDynamicField(ctx context.Context, orgID string, entityID string, name string, value types.FieldValue, smartCode string) error {
	f, err := buildField(orgID, entityID, FieldSpec{Name: name, Value: value, SmartCode: smartCode})
	if err != nil {
		return err
	}

	existing, found, err := s.store.GetDynamicField(ctx, orgID, entityID, name)
	if err != nil {
		return err
	}
	if found && existing.ValueType != value.Type() {
		return httperr.NewTypeMismatch(name, string(existing.ValueType), string(value.Type()))
	}

	return s.store.UpsertDynamicField(ctx, f)
}

func (s *Service) ListDynamicFields(ctx context.Context, orgID string, entityID string) ([]types.DynamicField, error) {
	return s.store.ListDynamicFields(ctx, orgID, entityID)
}

type RelationshipSpec struct {
	FromEntityID string
	ToEntityID   string
	Type         string
	SmartCode    string
}

func (s *Service) CreateRelationship(ctx context.Context, orgID string, spec RelationshipSpec) (types.Relationship, error) {
	if spec.FromEntityID == "" || spec.ToEntityID == "" {
		return types.Relationship{}, httperr.NewValidation("relationship endpoints required")
	}
	if strings.TrimSpace(spec.Type) == "" {
		return types.Relationship{}, httperr.NewValidation("relationship type required")
	}
	code, err := smartcode.Parse(spec.SmartCode)
	if err != nil {
		return types.Relationship{}, httperr.NewValidation("invalid smart code: %v", err)
	}
	id, err := uuidv7.NewString()
	if err != nil {
		return types.Relationship{}, err
	}
	return s.store.CreateRelationship(ctx, types.Relationship{
		ID:             id,
		OrganizationID: orgID,
		FromEntityID:   spec.FromEntityID,
		ToEntityID:     spec.ToEntityID,
		Type:           spec.Type,
		SmartCode:      code,
	})
}

type TransactionSpec struct {
	Type      string
	Code      string
	SmartCode string
	Total     float64
	Lines     []TransactionLineSpec
}

// TransactionLineSpec deliberately has no organization field: lines
// always inherit the transaction's organization.
type TransactionLineSpec struct {
	EntityID  string
	Quantity  float64
	Amount    float64
	SmartCode string
}

func (s *Service) CreateTransaction(ctx context.Context, orgID string, spec TransactionSpec) (types.Transaction, error) {
	if strings.TrimSpace(spec.Type) == "" {
		return types.Transaction{}, httperr.NewValidation("transaction type required")
	}
	code, err := smartcode.Parse(spec.SmartCode)
	if err != nil {
		return types.Transaction{}, httperr.NewValidation("invalid smart code: %v", err)
	}
	id, err := uuidv7.NewString()
	if err != nil {
		return types.Transaction{}, err
	}

	t := types.Transaction{
		ID:             id,
		OrganizationID: orgID,
		Type:           spec.Type,
		Code:           spec.Code,
		SmartCode:      code,
		Total:          spec.Total,
	}
	for i, ls := range spec.Lines {
		lineCode, err := smartcode.Parse(ls.SmartCode)
		if err != nil {
			return types.Transaction{}, httperr.NewValidation("invalid smart code for line %d: %v", i+1, err)
		}
		t.Lines = append(t.Lines, types.TransactionLine{
			TransactionID: id,
			LineNumber:    i + 1,
			EntityID:      ls.EntityID,
			Quantity:      ls.Quantity,
			Amount:        ls.Amount,
			SmartCode:     lineCode,
		})
	}

	return s.store.CreateTransaction(ctx, t)
}

// DeleteEntity cascades only to the entity's own dynamic fields and
// reports what it touched; referencing relationships and transactions
// stay behind as dangling references for the caller to handle.
func (s *Service) DeleteEntity(ctx context.Context, orgID string, id string) (types.DeleteReport, error) {
	return s.store.DeleteEntity(ctx, orgID, id)
}
