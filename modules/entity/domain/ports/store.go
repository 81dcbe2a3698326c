// Package ports defines the persistence boundary of the entity module.
// Implementations must silently AND the organization predicate into every
// read and refuse writes that would span organizations.
package ports

import (
	"context"

	"github.com/hexacore/hexacore/modules/entity/domain/types"
)

// Relation names a queryable logical relation for aggregate specs.
type Relation string

const (
	RelationEntities      Relation = "entities"
	RelationRelationships Relation = "relationships"
	RelationTransactions  Relation = "transactions"
)

// AggOp is the closed aggregate operation set.
type AggOp string

const (
	AggCount AggOp = "count"
	AggSum   AggOp = "sum"
	AggAvg   AggOp = "avg"
)

// FilterOp is the subset of condition operators a store can push down.
type FilterOp string

const (
	FilterEquals    FilterOp = "equals"
	FilterNotEquals FilterOp = "not_equals"
	FilterContains  FilterOp = "contains"
	FilterGT        FilterOp = "gt"
	FilterLT        FilterOp = "lt"
	FilterGTE       FilterOp = "gte"
	FilterLTE       FilterOp = "lte"
	FilterIn        FilterOp = "in"
)

// FieldFilter is one pushed-down predicate. Field must name a column of
// the relation's allow-list; values are always bound as parameters.
type FieldFilter struct {
	Field string
	Op    FilterOp
	Value any
}

type Store interface {
	CreateOrganization(ctx context.Context, org types.Organization) (types.Organization, error)

	// CreateEntity persists the entity row and its initial dynamic fields
	// in one transaction; partial results are never observable.
	CreateEntity(ctx context.Context, e types.Entity, fields []types.DynamicField) (types.Entity, error)
	GetEntity(ctx context.Context, orgID string, id string) (types.Entity, error)
	ListEntities(ctx context.Context, orgID string, entityType string, f types.ListFilter) ([]types.Entity, error)
	DeleteEntity(ctx context.Context, orgID string, id string) (types.DeleteReport, error)

	GetDynamicField(ctx context.Context, orgID string, entityID string, name string) (types.DynamicField, bool, error)
	UpsertDynamicField(ctx context.Context, f types.DynamicField) error
	ListDynamicFields(ctx context.Context, orgID string, entityID string) ([]types.DynamicField, error)

	CreateRelationship(ctx context.Context, r types.Relationship) (types.Relationship, error)

	// CreateTransaction persists the transaction and all lines atomically.
	CreateTransaction(ctx context.Context, t types.Transaction) (types.Transaction, error)

	// Aggregate computes op over the relation restricted to orgID. The
	// org restriction comes from the parameter, never from the filters:
	// a filter naming organization_id is dropped and replaced.
	Aggregate(ctx context.Context, orgID string, rel Relation, op AggOp, field string, filters []FieldFilter) (float64, error)
}
