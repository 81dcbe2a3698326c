package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hexacore/hexacore/modules/entity/domain/ports"
	"github.com/hexacore/hexacore/modules/entity/domain/types"
	"github.com/hexacore/hexacore/pkg/httperr"
	"github.com/hexacore/hexacore/pkg/smartcode"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore persists the six relations in the core schema. Every statement
// carries the organization id as a bound parameter, and each transaction
// additionally sets app.current_tenant so row-level security in the
// database can double-check the same boundary.
type PGStore struct {
	pool pgBeginner
}

func NewPGStore(pool pgBeginner) *PGStore {
	return &PGStore{pool: pool}
}

var _ ports.Store = (*PGStore)(nil)

func (s *PGStore) begin(ctx context.Context, orgID string) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, httperr.NewStore("begin", err)
	}
	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, orgID); err != nil {
		_ = tx.Rollback(context.Background())
		return nil, httperr.NewStore("tenant bind", err)
	}
	return tx, nil
}

func (s *PGStore) CreateOrganization(ctx context.Context, org types.Organization) (types.Organization, error) {
	tx, err := s.begin(ctx, org.ID)
	if err != nil {
		return types.Organization{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if org.Status == "" {
		org.Status = "active"
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO core.organizations (id, name, status)
VALUES ($1, $2, $3)
`, org.ID, org.Name, org.Status); err != nil {
		return types.Organization{}, httperr.NewStore("organization insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return types.Organization{}, httperr.NewStore("organization insert", err)
	}
	return org, nil
}

func (s *PGStore) CreateEntity(ctx context.Context, e types.Entity, fields []types.DynamicField) (types.Entity, error) {
	tx, err := s.begin(ctx, e.OrganizationID)
	if err != nil {
		return types.Entity{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO core.entities (id, organization_id, entity_type, name, code, smart_code, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, e.ID, e.OrganizationID, e.Type, e.Name, e.Code, e.SmartCode.String(), e.Status); err != nil {
		return types.Entity{}, httperr.NewStore("entity insert", err)
	}

	for _, f := range fields {
		f.EntityID = e.ID
		f.OrganizationID = e.OrganizationID
		if err := upsertFieldTx(ctx, tx, f); err != nil {
			return types.Entity{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Entity{}, httperr.NewStore("entity insert", err)
	}
	return e, nil
}

func (s *PGStore) GetEntity(ctx context.Context, orgID string, id string) (types.Entity, error) {
	tx, err := s.begin(ctx, orgID)
	if err != nil {
		return types.Entity{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	e, err := getEntityTx(ctx, tx, orgID, id)
	if err != nil {
		return types.Entity{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return types.Entity{}, httperr.NewStore("entity read", err)
	}
	return e, nil
}

func getEntityTx(ctx context.Context, tx pgx.Tx, orgID string, id string) (types.Entity, error) {
	var e types.Entity
	var rawCode string
	err := tx.QueryRow(ctx, `
SELECT id, organization_id, entity_type, name, code, smart_code, status
FROM core.entities
WHERE id = $1 AND organization_id = $2
`, id, orgID).Scan(&e.ID, &e.OrganizationID, &e.Type, &e.Name, &e.Code, &rawCode, &e.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Entity{}, httperr.NewNotFound("entity not found")
		}
		return types.Entity{}, httperr.NewStore("entity read", err)
	}
	code, err := smartcode.Parse(rawCode)
	if err != nil {
		return types.Entity{}, httperr.NewStore("entity read", err)
	}
	e.SmartCode = code
	return e, nil
}

func (s *PGStore) ListEntities(ctx context.Context, orgID string, entityType string, f types.ListFilter) ([]types.Entity, error) {
	tx, err := s.begin(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	// The org predicate always binds positionally; any organization id a
	// caller put on the filter is discarded here, not merged.
	query := strings.Builder{}
	query.WriteString(`
SELECT id, organization_id, entity_type, name, code, smart_code, status
FROM core.entities
WHERE organization_id = $1
`)
	args := []any{orgID}
	if entityType != "" {
		args = append(args, entityType)
		fmt.Fprintf(&query, "  AND entity_type = $%d\n", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		fmt.Fprintf(&query, "  AND status = $%d\n", len(args))
	}
	if f.Code != "" {
		args = append(args, f.Code)
		fmt.Fprintf(&query, "  AND code = $%d\n", len(args))
	}
	query.WriteString("ORDER BY id\n")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&query, "LIMIT $%d\n", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&query, "OFFSET $%d\n", len(args))
	}

	rows, err := tx.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, httperr.NewStore("entity list", err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		var e types.Entity
		var rawCode string
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.Type, &e.Name, &e.Code, &rawCode, &e.Status); err != nil {
			return nil, httperr.NewStore("entity list", err)
		}
		code, err := smartcode.Parse(rawCode)
		if err != nil {
			return nil, httperr.NewStore("entity list", err)
		}
		e.SmartCode = code
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, httperr.NewStore("entity list", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, httperr.NewStore("entity list", err)
	}
	return out, nil
}

func (s *PGStore) DeleteEntity(ctx context.Context, orgID string, id string) (types.DeleteReport, error) {
	tx, err := s.begin(ctx, orgID)
	if err != nil {
		return types.DeleteReport{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := getEntityTx(ctx, tx, orgID, id); err != nil {
		return types.DeleteReport{}, err
	}

	report := types.DeleteReport{Entity: 1}

	tag, err := tx.Exec(ctx, `
DELETE FROM core.dynamic_fields
WHERE entity_id = $1 AND organization_id = $2
`, id, orgID)
	if err != nil {
		return types.DeleteReport{}, httperr.NewStore("entity delete", err)
	}
	report.DynamicFields = int(tag.RowsAffected())

	// Relationships are counted, never cascaded; they become dangling
	// references the caller is expected to repair or report.
	if err := tx.QueryRow(ctx, `
SELECT count(*)
FROM core.relationships
WHERE organization_id = $2 AND (from_entity_id = $1 OR to_entity_id = $1)
`, id, orgID).Scan(&report.Relationships); err != nil {
		return types.DeleteReport{}, httperr.NewStore("entity delete", err)
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM core.entities
WHERE id = $1 AND organization_id = $2
`, id, orgID); err != nil {
		return types.DeleteReport{}, httperr.NewStore("entity delete", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return types.DeleteReport{}, httperr.NewStore("entity delete", err)
	}
	return report, nil
}

func (s *PGStore) GetDynamicField(ctx context.Context, orgID string, entityID string, name string) (types.DynamicField, bool, error) {
	tx, err := s.begin(ctx, orgID)
	if err != nil {
		return types.DynamicField{}, false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := getEntityTx(ctx, tx, orgID, entityID); err != nil {
		return types.DynamicField{}, false, err
	}

	f, ok, err := getFieldTx(ctx, tx, orgID, entityID, name)
	if err != nil {
		return types.DynamicField{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return types.DynamicField{}, false, httperr.NewStore("field read", err)
	}
	return f, ok, nil
}

func getFieldTx(ctx context.Context, tx pgx.Tx, orgID string, entityID string, name string) (types.DynamicField, bool, error) {
	var f types.DynamicField
	var rawCode string
	var valueType string
	err := tx.QueryRow(ctx, `
SELECT entity_id, organization_id, field_name, value_type,
       text_value, number_value, boolean_value, json_value, smart_code
FROM core.dynamic_fields
WHERE entity_id = $1 AND organization_id = $2 AND field_name = $3
`, entityID, orgID, name).Scan(
		&f.EntityID, &f.OrganizationID, &f.Name, &valueType,
		&f.TextValue, &f.NumberValue, &f.BooleanValue, &f.JSONValue, &rawCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.DynamicField{}, false, nil
		}
		return types.DynamicField{}, false, httperr.NewStore("field read", err)
	}
	f.ValueType = types.ValueType(valueType)
	code, err := smartcode.Parse(rawCode)
	if err != nil {
		return types.DynamicField{}, false, httperr.NewStore("field read", err)
	}
	f.SmartCode = code
	return f, true, nil
}

func (s *PGStore) UpsertDynamicField(ctx context.Context, f types.DynamicField) error {
	tx, err := s.begin(ctx, f.OrganizationID)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := getEntityTx(ctx, tx, f.OrganizationID, f.EntityID); err != nil {
		return err
	}
	if err := upsertFieldTx(ctx, tx, f); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return httperr.NewStore("field upsert", err)
	}
	return nil
}

func upsertFieldTx(ctx context.Context, tx pgx.Tx, f types.DynamicField) error {
	if _, err := tx.Exec(ctx, `
INSERT INTO core.dynamic_fields
  (entity_id, organization_id, field_name, value_type,
   text_value, number_value, boolean_value, json_value, smart_code)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (entity_id, field_name) DO UPDATE SET
  value_type    = EXCLUDED.value_type,
  text_value    = EXCLUDED.text_value,
  number_value  = EXCLUDED.number_value,
  boolean_value = EXCLUDED.boolean_value,
  json_value    = EXCLUDED.json_value,
  smart_code    = EXCLUDED.smart_code
`, f.EntityID, f.OrganizationID, f.Name, string(f.ValueType),
		f.TextValue, f.NumberValue, f.BooleanValue, f.JSONValue, f.SmartCode.String()); err != nil {
		return httperr.NewStore("field upsert", err)
	}
	return nil
}

func (s *PGStore) ListDynamicFields(ctx context.Context, orgID string, entityID string) ([]types.DynamicField, error) {
	tx, err := s.begin(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := getEntityTx(ctx, tx, orgID, entityID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT entity_id, organization_id, field_name, value_type,
       text_value, number_value, boolean_value, json_value, smart_code
FROM core.dynamic_fields
WHERE entity_id = $1 AND organization_id = $2
ORDER BY field_name
`, entityID, orgID)
	if err != nil {
		return nil, httperr.NewStore("field list", err)
	}
	defer rows.Close()

	var out []types.DynamicField
	for rows.Next() {
		var f types.DynamicField
		var rawCode string
		var valueType string
		if err := rows.Scan(
			&f.EntityID, &f.OrganizationID, &f.Name, &valueType,
			&f.TextValue, &f.NumberValue, &f.BooleanValue, &f.JSONValue, &rawCode,
		); err != nil {
			return nil, httperr.NewStore("field list", err)
		}
		f.ValueType = types.ValueType(valueType)
		code, err := smartcode.Parse(rawCode)
		if err != nil {
			return nil, httperr.NewStore("field list", err)
		}
		f.SmartCode = code
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, httperr.NewStore("field list", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, httperr.NewStore("field list", err)
	}
	return out, nil
}

func (s *PGStore) CreateRelationship(ctx context.Context, r types.Relationship) (types.Relationship, error) {
	tx, err := s.begin(ctx, r.OrganizationID)
	if err != nil {
		return types.Relationship{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	for _, endpoint := range []string{r.FromEntityID, r.ToEntityID} {
		if err := checkEndpointTx(ctx, tx, r.OrganizationID, endpoint); err != nil {
			return types.Relationship{}, err
		}
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO core.relationships (id, organization_id, from_entity_id, to_entity_id, relationship_type, smart_code)
VALUES ($1, $2, $3, $4, $5, $6)
`, r.ID, r.OrganizationID, r.FromEntityID, r.ToEntityID, r.Type, r.SmartCode.String()); err != nil {
		return types.Relationship{}, httperr.NewStore("relationship insert", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Relationship{}, httperr.NewStore("relationship insert", err)
	}
	return r, nil
}

// checkEndpointTx distinguishes an absent entity from a foreign one so
// the write fails with the right class, without ever reading foreign row
// content.
func checkEndpointTx(ctx context.Context, tx pgx.Tx, orgID string, entityID string) error {
	var entityOrg string
	err := tx.QueryRow(ctx, `
SELECT organization_id FROM core.entities WHERE id = $1
`, entityID).Scan(&entityOrg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return httperr.NewNotFound("entity not found")
		}
		return httperr.NewStore("endpoint check", err)
	}
	if entityOrg != orgID {
		return httperr.NewCrossTenant()
	}
	return nil
}

func (s *PGStore) CreateTransaction(ctx context.Context, t types.Transaction) (types.Transaction, error) {
	tx, err := s.begin(ctx, t.OrganizationID)
	if err != nil {
		return types.Transaction{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO core.transactions (id, organization_id, transaction_type, code, smart_code, total)
VALUES ($1, $2, $3, $4, $5, $6)
`, t.ID, t.OrganizationID, t.Type, t.Code, t.SmartCode.String(), t.Total); err != nil {
		return types.Transaction{}, httperr.NewStore("transaction insert", err)
	}

	for i := range t.Lines {
		line := &t.Lines[i]
		line.TransactionID = t.ID
		if line.EntityID != "" {
			if err := checkEndpointTx(ctx, tx, t.OrganizationID, line.EntityID); err != nil {
				return types.Transaction{}, err
			}
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO core.transaction_lines (transaction_id, line_number, entity_id, quantity, amount, smart_code)
VALUES ($1, $2, $3, $4, $5, $6)
`, line.TransactionID, line.LineNumber, nullable(line.EntityID), line.Quantity, line.Amount, line.SmartCode.String()); err != nil {
			return types.Transaction{}, httperr.NewStore("transaction insert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Transaction{}, httperr.NewStore("transaction insert", err)
	}
	return t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
