package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrepare_StripsWhitespace(t *testing.T) {
	t.Parallel()

	p, err := prepare(" 1 +\t2\r\n", nil)
	require.NoError(t, err)
	require.Equal(t, "1+2", p.expr)
}

func TestPrepare_RejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, expression := range []string{"", "   ", "(1+2", "1+2)", "((1)"} {
		_, err := prepare(expression, nil)
		var synErr *SyntaxError
		require.ErrorAs(t, err, &synErr, "expression %q", expression)
	}
}

func TestPrepare_SubstitutesLongestFirst(t *testing.T) {
	t.Parallel()

	// AB must be replaced as a whole, never as A inside AB.
	p, err := prepare("AB+A", []string{"A", "AB"})
	require.NoError(t, err)
	require.NotContains(t, p.expr, "AB")
	require.Len(t, p.vars, 2)

	parts := strings.Split(p.expr, "+")
	require.Len(t, parts, 2)
	name, ok := p.variable(parts[0])
	require.True(t, ok)
	require.Equal(t, "AB", name)
	name, ok = p.variable(parts[1])
	require.True(t, ok)
	require.Equal(t, "A", name)
}

func TestPrepare_RestoreRoundTrips(t *testing.T) {
	t.Parallel()

	p, err := prepare("HEAD*2+BOT", []string{"HEAD", "BOT"})
	require.NoError(t, err)
	require.Equal(t, "HEAD*2+BOT", p.restore(p.expr))
}

func TestPrepare_UnusedNamesLeaveNoPlaceholders(t *testing.T) {
	t.Parallel()

	p, err := prepare("1+2", []string{"HEAD"})
	require.NoError(t, err)
	require.Equal(t, "1+2", p.expr)
	require.Empty(t, p.vars)
}
