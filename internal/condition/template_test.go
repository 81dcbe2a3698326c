package condition

import (
	"testing"

	"github.com/hexacore/hexacore/pkg/httperr"
	"github.com/stretchr/testify/require"
)

func TestResolveTemplate_WholePlaceholderKeepsType(t *testing.T) {
	ctx := testCtx()

	v, err := ResolveTemplate("{{user.organization_id}}", ctx)
	require.NoError(t, err)
	require.Equal(t, ctx.User.OrganizationID, v)

	v, err = ResolveTemplate("{{entity.count}}", ctx)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestResolveTemplate_Interpolation(t *testing.T) {
	v, err := ResolveTemplate("org={{organization.id}} period={{variables.period}}", testCtx())
	require.NoError(t, err)
	require.Equal(t, "org=org-a period=month", v)
}

func TestResolveTemplate_UnknownPathRendersEmpty(t *testing.T) {
	v, err := ResolveTemplate("{{variables.absent}}", testCtx())
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = ResolveTemplate("x={{variables.absent}}y", testCtx())
	require.NoError(t, err)
	require.Equal(t, "x=y", v)
}

func TestResolveTemplate_NoPlaceholderPassthrough(t *testing.T) {
	v, err := ResolveTemplate("plain text", testCtx())
	require.NoError(t, err)
	require.Equal(t, "plain text", v)
}

func TestResolveTemplate_RejectsHostilePlaceholders(t *testing.T) {
	for _, tpl := range []string{
		"{{user.id; DROP TABLE x}}",
		"{{${user.id}}}",
		"{{../../secret}}",
		"{{user.id",
	} {
		_, err := ResolveTemplate(tpl, testCtx())
		require.Error(t, err, "tpl=%q", tpl)
		require.True(t, httperr.IsMalformedExpression(err), "tpl=%q err=%v", tpl, err)
	}
}
