package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/hexacore/hexacore/modules/entity/domain/ports"
	"github.com/hexacore/hexacore/pkg/httperr"
)

// Column allow-lists per relation. Aggregate specs and their filters may
// only name these; everything else is rejected before SQL is built, so a
// filter field can never splice identifiers into a statement.
var aggregateColumns = map[ports.Relation]map[string]string{
	ports.RelationEntities: {
		"entity_type": "e.entity_type",
		"type":        "e.entity_type",
		"name":        "e.name",
		"code":        "e.code",
		"status":      "e.status",
		"smart_code":  "e.smart_code",
	},
	ports.RelationRelationships: {
		"type":           "r.relationship_type",
		"smart_code":     "r.smart_code",
		"from_entity_id": "r.from_entity_id",
		"to_entity_id":   "r.to_entity_id",
	},
	ports.RelationTransactions: {
		"type":       "t.transaction_type",
		"code":       "t.code",
		"smart_code": "t.smart_code",
		"total":      "t.total",
	},
}

func (s *PGStore) Aggregate(ctx context.Context, orgID string, rel ports.Relation, op ports.AggOp, field string, filters []ports.FieldFilter) (float64, error) {
	query, args, err := buildAggregateQuery(orgID, rel, op, field, filters)
	if err != nil {
		return 0, err
	}

	tx, err := s.begin(ctx, orgID)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var out *float64
	if err := tx.QueryRow(ctx, query, args...).Scan(&out); err != nil {
		return 0, httperr.NewStore("aggregate", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, httperr.NewStore("aggregate", err)
	}
	if out == nil {
		return 0, nil
	}
	return *out, nil
}

func buildAggregateQuery(orgID string, rel ports.Relation, op ports.AggOp, field string, filters []ports.FieldFilter) (string, []any, error) {
	columns, ok := aggregateColumns[rel]
	if !ok {
		return "", nil, httperr.NewValidation("unknown relation %q", string(rel))
	}

	var from, alias string
	switch rel {
	case ports.RelationEntities:
		from, alias = "core.entities e", "e"
	case ports.RelationRelationships:
		from, alias = "core.relationships r", "r"
	case ports.RelationTransactions:
		from, alias = "core.transactions t", "t"
	}

	var selectExpr string
	args := []any{orgID}
	join := ""
	switch op {
	case ports.AggCount:
		selectExpr = "count(*)::float8"
	case ports.AggSum, ports.AggAvg:
		target, err := aggregateTarget(rel, columns, field, &join, &args)
		if err != nil {
			return "", nil, err
		}
		if op == ports.AggSum {
			selectExpr = fmt.Sprintf("COALESCE(sum(%s), 0)::float8", target)
		} else {
			selectExpr = fmt.Sprintf("avg(%s)::float8", target)
		}
	default:
		return "", nil, httperr.NewValidation("unknown aggregate %q", string(op))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s\nFROM %s\n%sWHERE %s.organization_id = $1\n", selectExpr, from, join, alias)

	for _, f := range filters {
		// The org predicate is bound above from the caller's context;
		// a filter naming it is dropped, never merged.
		if f.Field == "organization_id" {
			continue
		}
		col, ok := columns[f.Field]
		if !ok {
			return "", nil, httperr.NewValidation("unknown filter field %q", f.Field)
		}
		clause, err := filterClause(col, f, &args)
		if err != nil {
			return "", nil, err
		}
		b.WriteString("  AND " + clause + "\n")
	}

	return b.String(), args, nil
}

// aggregateTarget resolves the numeric source for sum/avg. For entities
// the value lives in a dynamic field row, so the field name joins against
// core.dynamic_fields as a bound parameter rather than an identifier.
func aggregateTarget(rel ports.Relation, columns map[string]string, field string, join *string, args *[]any) (string, error) {
	if field == "" {
		return "", httperr.NewValidation("aggregate field required")
	}
	if rel == ports.RelationEntities {
		*args = append(*args, field)
		*join = fmt.Sprintf("JOIN core.dynamic_fields df ON df.entity_id = e.id AND df.field_name = $%d\n", len(*args))
		return "df.number_value", nil
	}
	col, ok := columns[field]
	if !ok {
		return "", httperr.NewValidation("unknown aggregate field %q", field)
	}
	return col, nil
}

func filterClause(col string, f ports.FieldFilter, args *[]any) (string, error) {
	switch f.Op {
	case ports.FilterEquals:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s = $%d", col, len(*args)), nil
	case ports.FilterNotEquals:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s <> $%d", col, len(*args)), nil
	case ports.FilterContains:
		*args = append(*args, f.Value)
		return fmt.Sprintf("strpos(%s::text, $%d::text) > 0", col, len(*args)), nil
	case ports.FilterGT:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s > $%d", col, len(*args)), nil
	case ports.FilterLT:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s < $%d", col, len(*args)), nil
	case ports.FilterGTE:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s >= $%d", col, len(*args)), nil
	case ports.FilterLTE:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s <= $%d", col, len(*args)), nil
	case ports.FilterIn:
		items, ok := f.Value.([]any)
		if !ok {
			return "", httperr.NewValidation("in filter requires a list")
		}
		*args = append(*args, items)
		return fmt.Sprintf("%s = ANY($%d)", col, len(*args)), nil
	default:
		return "", httperr.NewValidation("unknown filter operator %q", string(f.Op))
	}
}
