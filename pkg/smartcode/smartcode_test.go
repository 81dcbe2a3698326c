package smartcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	c, err := Parse("HERA.SALON.SERVICE.FIELD.PRICE.v1")
	require.NoError(t, err)
	require.Equal(t, "HERA.SALON.SERVICE.FIELD.PRICE.v1", c.String())
	require.Equal(t, 1, c.Version())
	require.Equal(t, "HERA.SALON.SERVICE.FIELD.PRICE", c.Family())
	require.False(t, c.IsZero())
}

func TestParse_VersionOnlySuffix(t *testing.T) {
	c, err := Parse("CRM.LEAD.v12")
	require.NoError(t, err)
	require.Equal(t, 12, c.Version())
	require.Len(t, c.Segments(), 3)
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{"", ErrEmpty},
		{"   ", ErrEmpty},
		{" HERA.X.v1", ErrGrammar},
		{"hera.salon.v1", ErrGrammar},
		{"HERA", ErrMissingVersion},
		{"HERA.SALON", ErrMissingVersion},
		{"HERA..SALON.v1", ErrEmptySegment},
		{"HERA.SALON.v", ErrMissingVersion},
		{"HERA.SALON.V1", ErrMissingVersion},
		{"HERA.SALON.v1.EXTRA", ErrMissingVersion},
		{"HERA.SAL ON.v1", ErrGrammar},
		{"HERA.SALON.v1;DROP", ErrMissingVersion},
	}
	for _, tc := range cases {
		_, err := Parse(tc.raw)
		require.Error(t, err, "raw=%q", tc.raw)
		require.True(t, errors.Is(err, tc.want), "raw=%q err=%v", tc.raw, err)
	}
}

func TestParse_DeterministicZeroValue(t *testing.T) {
	var c Code
	require.True(t, c.IsZero())
	require.Equal(t, "", c.Family())
	require.Nil(t, c.Segments())
}

func TestMustParse_PanicsOnInvalid(t *testing.T) {
	require.Panics(t, func() { MustParse("bad code") })
}
