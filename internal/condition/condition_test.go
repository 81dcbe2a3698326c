package condition

import (
	"testing"

	"github.com/hexacore/hexacore/pkg/httperr"
	"github.com/stretchr/testify/require"
)

func testCtx() *Context {
	return &Context{
		User: User{
			ID:             "u-1",
			Role:           "owner",
			Permissions:    []string{"tiles.read", "tiles.write"},
			OrganizationID: "org-a",
			Email:          "owner@example.invalid",
		},
		Organization: Organization{ID: "org-a"},
		Entity: map[string]any{
			"type":   "customer",
			"status": "active",
			"count":  7,
			"price":  12.5,
		},
		Variables: map[string]any{"period": "month"},
	}
}

func TestEvaluate_EmptyListIsTrue(t *testing.T) {
	ok, err := Evaluate(nil, testCtx())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Evaluate([]Condition{}, &Context{})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluate_AndOnly(t *testing.T) {
	conds := []Condition{
		{Field: "user.organization_id", Operator: OpEquals, Value: "org-a"},
		{Field: "user.permissions", Operator: OpContains, Value: "tiles.read"},
	}
	ok, err := Evaluate(conds, testCtx())
	require.NoError(t, err)
	require.True(t, ok)

	conds = append(conds, Condition{Field: "entity.status", Operator: OpEquals, Value: "archived"})
	ok, err = Evaluate(conds, testCtx())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEvaluate_Deterministic(t *testing.T) {
	conds := []Condition{
		{Field: "entity.count", Operator: OpGTE, Value: 7},
		{Field: "entity.price", Operator: OpLT, Value: 20},
		{Field: "user.role", Operator: OpIn, Value: []any{"owner", "admin"}},
	}
	ctx := testCtx()
	first, err := Evaluate(conds, ctx)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		got, err := Evaluate(conds, ctx)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}

func TestEvaluate_UndefinedPathNeverThrows(t *testing.T) {
	ctx := testCtx()

	ok, err := Evaluate([]Condition{{Field: "entity.missing.deep", Operator: OpEquals, Value: "x"}}, ctx)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = Evaluate([]Condition{{Field: "variables.nope", Operator: OpContains, Value: "x"}}, ctx)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = Evaluate([]Condition{{Field: "variables.nope", Operator: OpNotEquals, Value: "x"}}, ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluate_Operators(t *testing.T) {
	ctx := testCtx()
	cases := []struct {
		cond Condition
		want bool
	}{
		{Condition{Field: "entity.count", Operator: OpGT, Value: 6}, true},
		{Condition{Field: "entity.count", Operator: OpGT, Value: 7}, false},
		{Condition{Field: "entity.count", Operator: OpGTE, Value: 7}, true},
		{Condition{Field: "entity.count", Operator: OpLT, Value: 8}, true},
		{Condition{Field: "entity.count", Operator: OpLTE, Value: 6}, false},
		{Condition{Field: "entity.price", Operator: OpEquals, Value: 12.5}, true},
		{Condition{Field: "entity.status", Operator: OpNotEquals, Value: "archived"}, true},
		{Condition{Field: "entity.status", Operator: OpContains, Value: "act"}, true},
		{Condition{Field: "user.role", Operator: OpIn, Value: []any{"viewer"}}, false},
		{Condition{Field: "entity.count", Operator: OpIn, Value: []any{7, 9}}, true},
	}
	for _, tc := range cases {
		got, err := Evaluate([]Condition{tc.cond}, ctx)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "cond=%+v", tc.cond)
	}
}

func TestEvaluate_UnknownOperatorRejected(t *testing.T) {
	_, err := Evaluate([]Condition{{Field: "user.role", Operator: "regex", Value: ".*"}}, testCtx())
	require.Error(t, err)
	require.True(t, httperr.IsValidation(err))
}

func TestEvaluate_TemplatedValue(t *testing.T) {
	conds := []Condition{
		{Field: "organization.id", Operator: OpEquals, Value: "{{user.organization_id}}"},
	}
	ok, err := Evaluate(conds, testCtx())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidatePath_RejectsHostileStrings(t *testing.T) {
	hostile := []string{
		"",
		"user.id; DROP TABLE core_entities",
		"user.id--",
		"${user.id}",
		"../../etc/passwd",
		"user/../id",
		"drop.count",
		"a.DELETE.b",
		"select",
		"user.id\x00",
		"user.id\n",
		"1user.id",
		"user id",
		"user.'id'",
	}
	for _, p := range hostile {
		err := ValidatePath(p)
		require.Error(t, err, "path=%q", p)
		require.True(t, httperr.IsMalformedExpression(err), "path=%q err=%v", p, err)
	}
}

func TestValidatePath_AllowsPlainPaths(t *testing.T) {
	for _, p := range []string{"user.id", "organization.id", "entity.deleted_count", "variables.x_1", "_internal.flag"} {
		require.NoError(t, ValidatePath(p), "path=%q", p)
	}
}

func TestEvaluate_HostileFieldRejectedBeforeResolution(t *testing.T) {
	_, err := Evaluate([]Condition{{Field: "user.id;--", Operator: OpEquals, Value: "x"}}, testCtx())
	require.Error(t, err)
	require.True(t, httperr.IsMalformedExpression(err))
	require.NotContains(t, err.Error(), ";--")
}
