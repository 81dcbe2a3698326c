// Package stats resolves declarative stat specs into aggregate queries
// against the entity store. Specs come from resource configuration, never
// from request bodies; every query is restricted to the request
// organization before it reaches the store.
package stats

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/hexacore/hexacore/internal/condition"
	"github.com/hexacore/hexacore/modules/entity/domain/ports"
	"github.com/hexacore/hexacore/pkg/httperr"
)

// Spec is one configured stat. Relation and Op are closed sets; a spec
// naming anything outside them is rejected, not passed through.
type Spec struct {
	ID         string                `yaml:"id" json:"id"`
	Relation   ports.Relation        `yaml:"relation" json:"relation"`
	Op         ports.AggOp           `yaml:"op" json:"op"`
	Field      string                `yaml:"field,omitempty" json:"field,omitempty"`
	Conditions []condition.Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Format     string                `yaml:"format,omitempty" json:"format,omitempty"`
	IsPrivate  bool                  `yaml:"isPrivate,omitempty" json:"is_private"`
}

const (
	FormatNumber     = "number"
	FormatCurrency   = "currency"
	FormatPercentage = "percentage"
)

// Result carries one stat outcome. A failed stat keeps its slot with
// Status "error" so siblings stay unaffected.
type Result struct {
	ID        string  `json:"stat_id"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	Format    string  `json:"format,omitempty"`
	IsPrivate bool    `json:"is_private"`
	Status    string  `json:"status"`
	Err       string  `json:"error,omitempty"`
}

var relations = map[ports.Relation]bool{
	ports.RelationEntities:      true,
	ports.RelationRelationships: true,
	ports.RelationTransactions:  true,
}

var aggOps = map[ports.AggOp]bool{
	ports.AggCount: true,
	ports.AggSum:   true,
	ports.AggAvg:   true,
}

type Resolver struct {
	store       ports.Store
	concurrency int
}

func NewResolver(store ports.Store) *Resolver {
	return &Resolver{store: store, concurrency: 4}
}

// Compute resolves one spec and runs it. Template placeholders in
// condition values are resolved against evalCtx before the query is
// built; the organization restriction always comes from orgID, and any
// authored organization_id condition is discarded.
func (r *Resolver) Compute(ctx context.Context, orgID string, spec Spec, evalCtx *condition.Context) (float64, error) {
	if orgID == "" {
		return 0, httperr.NewValidation("organization id required")
	}
	if !relations[spec.Relation] {
		return 0, httperr.NewValidation("unknown relation %q", string(spec.Relation))
	}
	if !aggOps[spec.Op] {
		return 0, httperr.NewValidation("unknown aggregate %q", string(spec.Op))
	}
	if spec.Op != ports.AggCount && spec.Field == "" {
		return 0, httperr.NewValidation("aggregate %q requires a field", string(spec.Op))
	}

	filters, err := lowerConditions(spec.Conditions, evalCtx)
	if err != nil {
		return 0, err
	}
	return r.store.Aggregate(ctx, orgID, spec.Relation, spec.Op, spec.Field, filters)
}

// ComputeAll runs every spec concurrently. One stat failing does not
// abort the batch: its slot reports Status "error" with a sanitized
// message and the other slots fill in normally.
func (r *Resolver) ComputeAll(ctx context.Context, orgID string, specs []Spec, evalCtx *condition.Context) []Result {
	results := make([]Result, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			results[i] = r.computeOne(gctx, orgID, spec, evalCtx)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors
	return results
}

func (r *Resolver) computeOne(ctx context.Context, orgID string, spec Spec, evalCtx *condition.Context) Result {
	res := Result{ID: spec.ID, Format: spec.Format, IsPrivate: spec.IsPrivate}
	v, err := r.Compute(ctx, orgID, spec, evalCtx)
	if err != nil {
		res.Status = "error"
		res.Err = httperr.SafeDetail(err)
		return res
	}
	res.Value = v
	res.Formatted = FormatValue(spec.Format, v)
	res.Status = "ok"
	return res
}

// lowerConditions turns evaluator conditions into store filters. Paths
// are validated with the same allow-list the evaluator uses, templated
// values are resolved, and organization_id predicates are dropped so the
// store's positional restriction is the only source of tenancy.
func lowerConditions(conds []condition.Condition, evalCtx *condition.Context) ([]ports.FieldFilter, error) {
	var filters []ports.FieldFilter
	for _, c := range conds {
		if err := condition.ValidatePath(c.Field); err != nil {
			return nil, err
		}
		if c.Field == "organization_id" {
			continue
		}
		op, ok := filterOp(c.Operator)
		if !ok {
			return nil, httperr.NewValidation("unknown operator %q", string(c.Operator))
		}
		value := c.Value
		if s, isStr := value.(string); isStr {
			resolved, err := condition.ResolveTemplate(s, evalCtx)
			if err != nil {
				return nil, err
			}
			value = resolved
		}
		filters = append(filters, ports.FieldFilter{Field: c.Field, Op: op, Value: value})
	}
	return filters, nil
}

func filterOp(op condition.Operator) (ports.FilterOp, bool) {
	switch op {
	case condition.OpEquals:
		return ports.FilterEquals, true
	case condition.OpNotEquals:
		return ports.FilterNotEquals, true
	case condition.OpContains:
		return ports.FilterContains, true
	case condition.OpGT:
		return ports.FilterGT, true
	case condition.OpLT:
		return ports.FilterLT, true
	case condition.OpGTE:
		return ports.FilterGTE, true
	case condition.OpLTE:
		return ports.FilterLTE, true
	case condition.OpIn:
		return ports.FilterIn, true
	default:
		return "", false
	}
}

// FormatValue renders a computed value for display. Unknown formats fall
// back to the plain number rendering.
func FormatValue(format string, v float64) string {
	switch format {
	case FormatCurrency:
		return fmt.Sprintf("%.2f", v)
	case FormatPercentage:
		return fmt.Sprintf("%.1f%%", v)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
