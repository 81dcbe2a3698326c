package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hexacore/hexacore/modules/entity/domain/ports"
	"github.com/hexacore/hexacore/modules/entity/domain/types"
	"github.com/hexacore/hexacore/pkg/httperr"
)

// MemoryStore is the mutex-guarded in-memory implementation used by tests
// and by single-node deployments without a database. It enforces the same
// isolation contract as the PG store: the organization predicate is part
// of every lookup, not a caller responsibility.
type MemoryStore struct {
	mu       sync.Mutex
	orgs     map[string]types.Organization
	entities map[string]types.Entity
	fields   map[string]map[string]types.DynamicField
	rels     map[string]types.Relationship
	txns     map[string]types.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:     map[string]types.Organization{},
		entities: map[string]types.Entity{},
		fields:   map[string]map[string]types.DynamicField{},
		rels:     map[string]types.Relationship{},
		txns:     map[string]types.Transaction{},
	}
}

var _ ports.Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateOrganization(_ context.Context, org types.Organization) (types.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		return types.Organization{}, httperr.NewValidation("organization id required")
	}
	if org.Status == "" {
		org.Status = "active"
	}
	s.orgs[org.ID] = org
	return org, nil
}

func (s *MemoryStore) CreateEntity(_ context.Context, e types.Entity, fields []types.DynamicField) (types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[e.ID]; exists {
		return types.Entity{}, httperr.NewValidation("entity id already exists")
	}
	byName := make(map[string]types.DynamicField, len(fields))
	for _, f := range fields {
		f.EntityID = e.ID
		f.OrganizationID = e.OrganizationID
		byName[f.Name] = f
	}
	// Entity and initial fields land together or not at all.
	s.entities[e.ID] = e
	if len(byName) > 0 {
		s.fields[e.ID] = byName
	}
	return e, nil
}

func (s *MemoryStore) GetEntity(_ context.Context, orgID string, id string) (types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getEntityLocked(orgID, id)
}

func (s *MemoryStore) getEntityLocked(orgID string, id string) (types.Entity, error) {
	e, ok := s.entities[id]
	if !ok || e.OrganizationID != orgID {
		// Same answer whether the record is absent or foreign, so a
		// probe cannot learn that another tenant holds the id.
		return types.Entity{}, httperr.NewNotFound("entity not found")
	}
	return e, nil
}

func (s *MemoryStore) ListEntities(_ context.Context, orgID string, entityType string, f types.ListFilter) ([]types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Entity
	for _, e := range s.entities {
		if e.OrganizationID != orgID {
			continue
		}
		if entityType != "" && e.Type != entityType {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Code != "" && e.Code != f.Code {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteEntity(_ context.Context, orgID string, id string) (types.DeleteReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getEntityLocked(orgID, id); err != nil {
		return types.DeleteReport{}, err
	}

	report := types.DeleteReport{Entity: 1}
	report.DynamicFields = len(s.fields[id])
	delete(s.fields, id)
	delete(s.entities, id)

	// Relationships stay behind as dangling references; only counted.
	for _, r := range s.rels {
		if r.OrganizationID == orgID && (r.FromEntityID == id || r.ToEntityID == id) {
			report.Relationships++
		}
	}
	return report, nil
}

func (s *MemoryStore) GetDynamicField(_ context.Context, orgID string, entityID string, name string) (types.DynamicField, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getEntityLocked(orgID, entityID); err != nil {
		return types.DynamicField{}, false, err
	}
	f, ok := s.fields[entityID][name]
	return f, ok, nil
}

func (s *MemoryStore) UpsertDynamicField(_ context.Context, f types.DynamicField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.getEntityLocked(f.OrganizationID, f.EntityID)
	if err != nil {
		return err
	}
	f.OrganizationID = e.OrganizationID
	if s.fields[f.EntityID] == nil {
		s.fields[f.EntityID] = map[string]types.DynamicField{}
	}
	s.fields[f.EntityID][f.Name] = f
	return nil
}

func (s *MemoryStore) ListDynamicFields(_ context.Context, orgID string, entityID string) ([]types.DynamicField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getEntityLocked(orgID, entityID); err != nil {
		return nil, err
	}
	var out []types.DynamicField
	for _, f := range s.fields[entityID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CreateRelationship(_ context.Context, r types.Relationship) (types.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, endpoint := range []string{r.FromEntityID, r.ToEntityID} {
		if err := s.checkEndpointLocked(r.OrganizationID, endpoint); err != nil {
			return types.Relationship{}, err
		}
	}
	s.rels[r.ID] = r
	return r, nil
}

func (s *MemoryStore) checkEndpointLocked(orgID string, entityID string) error {
	e, ok := s.entities[entityID]
	if !ok {
		return httperr.NewNotFound("entity not found")
	}
	if e.OrganizationID != orgID {
		return httperr.NewCrossTenant()
	}
	return nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, t types.Transaction) (types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range t.Lines {
		t.Lines[i].TransactionID = t.ID
		if t.Lines[i].EntityID == "" {
			continue
		}
		if err := s.checkEndpointLocked(t.OrganizationID, t.Lines[i].EntityID); err != nil {
			return types.Transaction{}, err
		}
	}
	s.txns[t.ID] = t
	return t, nil
}

func (s *MemoryStore) Aggregate(_ context.Context, orgID string, rel ports.Relation, op ports.AggOp, field string, filters []ports.FieldFilter) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same acceptance set as the SQL builder: specs that error against
	// postgres error here too.
	columns, ok := aggregateColumns[rel]
	if !ok {
		return 0, httperr.NewValidation("unknown relation %q", string(rel))
	}
	for _, f := range filters {
		if f.Field == "organization_id" {
			continue
		}
		if _, ok := columns[f.Field]; !ok {
			return 0, httperr.NewValidation("unknown filter field %q", f.Field)
		}
	}
	if op == ports.AggSum || op == ports.AggAvg {
		if field == "" {
			return 0, httperr.NewValidation("aggregate field required")
		}
		if rel != ports.RelationEntities {
			if _, ok := columns[field]; !ok {
				return 0, httperr.NewValidation("unknown aggregate field %q", field)
			}
		}
	}

	var rows []map[string]any
	switch rel {
	case ports.RelationEntities:
		for _, e := range s.entities {
			if e.OrganizationID != orgID {
				continue
			}
			rows = append(rows, s.entityRowLocked(e))
		}
	case ports.RelationRelationships:
		for _, r := range s.rels {
			if r.OrganizationID != orgID {
				continue
			}
			rows = append(rows, map[string]any{
				"type": r.Type, "smart_code": r.SmartCode.String(),
				"from_entity_id": r.FromEntityID, "to_entity_id": r.ToEntityID,
			})
		}
	case ports.RelationTransactions:
		for _, t := range s.txns {
			if t.OrganizationID != orgID {
				continue
			}
			rows = append(rows, map[string]any{
				"type": t.Type, "code": t.Code,
				"smart_code": t.SmartCode.String(), "total": t.Total,
			})
		}
	}

	var count, nvals int
	var sum float64
	for _, row := range rows {
		if !rowMatches(row, filters) {
			continue
		}
		count++
		if op != ports.AggCount {
			if n, ok := numericValue(row[field]); ok {
				sum += n
				nvals++
			}
		}
	}

	switch op {
	case ports.AggCount:
		return float64(count), nil
	case ports.AggSum:
		return sum, nil
	case ports.AggAvg:
		// Rows without a numeric value for the field join neither the
		// sum nor the divisor, matching avg() over the field rows.
		if nvals == 0 {
			return 0, nil
		}
		return sum / float64(nvals), nil
	default:
		return 0, httperr.NewValidation("unknown aggregate %q", string(op))
	}
}

// entityRowLocked projects an entity plus its numeric dynamic fields into
// a flat row so aggregate specs can reach attribute values.
func (s *MemoryStore) entityRowLocked(e types.Entity) map[string]any {
	row := map[string]any{
		"type": e.Type, "entity_type": e.Type, "name": e.Name,
		"code": e.Code, "status": e.Status, "smart_code": e.SmartCode.String(),
	}
	for name, f := range s.fields[e.ID] {
		if _, taken := row[name]; taken {
			continue
		}
		row[name] = f.Value()
	}
	return row
}

func rowMatches(row map[string]any, filters []ports.FieldFilter) bool {
	for _, f := range filters {
		// The org predicate is positional, never filter-borne.
		if f.Field == "organization_id" {
			continue
		}
		if !filterHolds(row[f.Field], f) {
			return false
		}
	}
	return true
}

func filterHolds(got any, f ports.FieldFilter) bool {
	switch f.Op {
	case ports.FilterEquals:
		return looselyEqual(got, f.Value)
	case ports.FilterNotEquals:
		return !looselyEqual(got, f.Value)
	case ports.FilterContains:
		gs, ok1 := got.(string)
		ws, ok2 := f.Value.(string)
		return ok1 && ok2 && strings.Contains(gs, ws)
	case ports.FilterGT, ports.FilterLT, ports.FilterGTE, ports.FilterLTE:
		gn, ok1 := numericValue(got)
		wn, ok2 := numericValue(f.Value)
		if !ok1 || !ok2 {
			return false
		}
		switch f.Op {
		case ports.FilterGT:
			return gn > wn
		case ports.FilterLT:
			return gn < wn
		case ports.FilterGTE:
			return gn >= wn
		default:
			return gn <= wn
		}
	case ports.FilterIn:
		items, ok := f.Value.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if looselyEqual(got, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func looselyEqual(a, b any) bool {
	if an, ok := numericValue(a); ok {
		bn, ok := numericValue(b)
		return ok && an == bn
	}
	return a == b
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
