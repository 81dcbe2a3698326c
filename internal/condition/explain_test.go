package condition

import (
	"testing"

	"github.com/hexacore/hexacore/pkg/httperr"
	"github.com/stretchr/testify/require"
)

func TestExplain_MatchesEvaluate(t *testing.T) {
	ctx := testCtx()
	lists := [][]Condition{
		{
			{Field: "user.organization_id", Operator: OpEquals, Value: "org-a"},
			{Field: "user.permissions", Operator: OpContains, Value: "tiles.read"},
		},
		{
			{Field: "entity.count", Operator: OpGT, Value: 3},
			{Field: "entity.status", Operator: OpNotEquals, Value: "archived"},
			{Field: "user.role", Operator: OpIn, Value: []any{"owner", "admin"}},
		},
		{
			{Field: "entity.status", Operator: OpEquals, Value: "archived"},
		},
		{
			{Field: "variables.absent", Operator: OpEquals, Value: "x"},
		},
		{
			{Field: "variables.absent", Operator: OpNotEquals, Value: "x"},
		},
	}
	for _, conds := range lists {
		want, err := Evaluate(conds, ctx)
		require.NoError(t, err)
		trace, err := Explain(conds, ctx)
		require.NoError(t, err)
		require.Equal(t, want, trace.Satisfied, "conds=%+v", conds)
		require.Len(t, trace.Conditions, len(conds))
	}
}

func TestExplain_EmitsGeneratedExpressions(t *testing.T) {
	trace, err := Explain([]Condition{
		{Field: "user.role", Operator: OpEquals, Value: "owner"},
	}, testCtx())
	require.NoError(t, err)
	require.True(t, trace.Satisfied)
	require.Equal(t, "user.role", trace.Conditions[0].Field)
	require.Contains(t, trace.Conditions[0].Expr, `ctx["user.role"]`)
	require.True(t, trace.Conditions[0].Passed)
}

func TestExplain_RejectsHostileFieldBeforeCompile(t *testing.T) {
	_, err := Explain([]Condition{
		{Field: `x"] == "y" || true || ctx["z`, Operator: OpEquals, Value: "v"},
	}, testCtx())
	require.Error(t, err)
	require.True(t, httperr.IsMalformedExpression(err))
}

func TestExplain_TemplatedValue(t *testing.T) {
	trace, err := Explain([]Condition{
		{Field: "organization.id", Operator: OpEquals, Value: "{{user.organization_id}}"},
	}, testCtx())
	require.NoError(t, err)
	require.True(t, trace.Satisfied)
}

func TestExplain_ProgramCacheReused(t *testing.T) {
	conds := []Condition{{Field: "user.role", Operator: OpEquals, Value: "owner"}}
	for i := 0; i < 3; i++ {
		trace, err := Explain(conds, testCtx())
		require.NoError(t, err)
		require.True(t, trace.Satisfied)
	}
}
