package interp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/idfcalc/internal/expr"
	"github.com/vk/idfcalc/internal/grid"
)

func newTestInterpreter(t *testing.T, opts Options) *Interpreter {
	t.Helper()
	if opts.OutputPath == "" {
		opts.OutputPath = t.TempDir()
	}
	r := expr.NewRegistry()
	expr.RegisterBuiltins(r)
	return New(opts, r)
}

// writeSourceGrid persists a 4x4 grid with values row*10+col into dir and
// returns its path.
func writeSourceGrid(t *testing.T, dir, name string) string {
	t.Helper()
	g := grid.New(name, grid.NewExtent(0, 0, 4, 4), 1, grid.DefaultNoData)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			g.SetValue(row, col, float64(row*10+col))
		}
	}
	path := filepath.Join(dir, name+".idf")
	require.NoError(t, g.Write(context.Background(), path, nil))
	return path
}

func TestRunLines_ConstantScriptDoesNoGridIO(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	out := t.TempDir()
	in := newTestInterpreter(t, Options{OutputPath: out})

	err := in.RunLines(ctx, []string{
		"A = 1",
		"B = 2",
		"C = A + B * 3",
	})
	require.NoError(t, err)

	b, ok := in.Bindings().Get("C")
	require.True(t, ok)
	require.True(t, b.Grid.IsConstant())
	require.Equal(t, 7.0, b.Grid.ConstValue())
	require.Equal(t, expr.TypeConstant, b.Type)
	require.True(t, b.Persisted)

	// Nothing was written: constants have no file representation.
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunLines_ComputedResultIsPersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	base := t.TempDir()
	out := t.TempDir()
	writeSourceGrid(t, base, "head")

	in := newTestInterpreter(t, Options{BasePath: base, OutputPath: out})
	err := in.RunLines(ctx, []string{
		"H = head.idf",
		"D = H * 2",
	})
	require.NoError(t, err)

	// The loaded file counts as already persisted and is not rewritten.
	h, ok := in.Bindings().Get("H")
	require.True(t, ok)
	require.Equal(t, expr.TypeFile, h.Type)
	require.True(t, h.Persisted)
	require.NoFileExists(t, filepath.Join(out, "H.idf"))

	// The computed result lands in the output directory under its name.
	d, ok := in.Bindings().Get("D")
	require.True(t, ok)
	require.True(t, d.Persisted)
	require.FileExists(t, filepath.Join(out, "D.idf"))

	written, err := grid.Open(filepath.Join(out, "D.idf"))
	require.NoError(t, err)
	require.NoError(t, written.EnsureLoaded(ctx))
	require.Equal(t, 22.0, written.Value(1, 1))
}

func TestRunLines_ReleaseAndLazyReload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	base := t.TempDir()
	writeSourceGrid(t, base, "head")

	in := newTestInterpreter(t, Options{BasePath: base})
	err := in.RunLines(ctx, []string{
		"H = head.idf",
		"D = H + 0",
	})
	require.NoError(t, err)

	// Values were dropped after each line but reload on reference, and the
	// grid referenced after the release cycle still matches its source.
	d, ok := in.Bindings().Get("D")
	require.True(t, ok)
	require.False(t, d.Grid.Loaded())
	require.NoError(t, d.Grid.EnsureLoaded(ctx))
	require.Equal(t, 13.0, d.Grid.Value(1, 3))
}

func TestRunLines_RebindOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in := newTestInterpreter(t, Options{})
	err := in.RunLines(ctx, []string{
		"A = 1",
		"A = A + 1",
	})
	require.NoError(t, err)

	require.Equal(t, 1, in.Bindings().Len())
	a, _ := in.Bindings().Get("A")
	require.Equal(t, 2.0, a.Grid.ConstValue())
}

func TestRunLines_VariableCopyIsNotAliased(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	base := t.TempDir()
	writeSourceGrid(t, base, "head")

	in := newTestInterpreter(t, Options{BasePath: base})
	err := in.RunLines(ctx, []string{
		"H = head.idf",
		"D = H",
	})
	require.NoError(t, err)

	h, _ := in.Bindings().Get("H")
	d, _ := in.Bindings().Get("D")
	require.NotSame(t, h.Grid, d.Grid)
}

func TestRunLines_SubdirectoryTarget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	base := t.TempDir()
	out := t.TempDir()
	writeSourceGrid(t, base, "head")

	in := newTestInterpreter(t, Options{BasePath: base, OutputPath: out})
	err := in.RunLines(ctx, []string{"layer1\\D = head.idf * 2"})
	require.NoError(t, err)

	d, ok := in.Bindings().Get("D")
	require.True(t, ok)
	require.Equal(t, "layer1", d.Subdir)
	require.FileExists(t, filepath.Join(out, "layer1", "D.idf"))
}

func TestRunLines_CommentsAndBlanksSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in := newTestInterpreter(t, Options{})
	err := in.RunLines(ctx, []string{
		"",
		"REM a remark",
		"// a slash comment",
		"' a quote comment",
		"A = 1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, in.Bindings().Len())
}

func TestRunLines_ContinuationJoins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in := newTestInterpreter(t, Options{})
	err := in.RunLines(ctx, []string{
		"A = 1 + _",
		"    2 + _",
		"    3",
	})
	require.NoError(t, err)

	a, ok := in.Bindings().Get("A")
	require.True(t, ok)
	require.Equal(t, 6.0, a.Grid.ConstValue())
}

func TestRunLines_RoundingOption(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	base := t.TempDir()
	out := t.TempDir()
	writeSourceGrid(t, base, "head")
	decimals := 0

	in := newTestInterpreter(t, Options{BasePath: base, OutputPath: out, RoundDecimals: &decimals})
	err := in.RunLines(ctx, []string{"D = head.idf / 3"})
	require.NoError(t, err)

	d, _ := in.Bindings().Get("D")
	require.NoError(t, d.Grid.EnsureLoaded(ctx))
	// 11/3 rounds to 4 with zero decimals.
	require.Equal(t, 4.0, d.Grid.Value(1, 1))
}

func TestRunLines_LineErrorCarriesPosition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in := newTestInterpreter(t, Options{})
	err := in.RunLines(ctx, []string{
		"A = 1",
		"B = (1 + 2",
	})
	require.Error(t, err)

	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	require.Equal(t, 2, lineErr.Line)
	require.Contains(t, lineErr.Text, "(1 + 2")

	var synErr *expr.SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestRunLines_DoubleAssignmentRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in := newTestInterpreter(t, Options{})
	err := in.RunLines(ctx, []string{"A = B = 1"})
	require.Error(t, err)
}

func TestRunLines_ComparisonSurvivesAssignmentSplit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in := newTestInterpreter(t, Options{})
	err := in.RunLines(ctx, []string{"A = if(1>=1, 3, 4)"})
	require.NoError(t, err)

	a, _ := in.Bindings().Get("A")
	require.Equal(t, 3.0, a.Grid.ConstValue())
}

func TestRunLines_QuietStopIsCleanSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in := newTestInterpreter(t, Options{BasePath: t.TempDir(), Quiet: true})
	err := in.RunLines(ctx, []string{
		"A = absent.idf + 1",
		"B = 1",
	})
	require.NoError(t, err)

	// The run stopped before the second line.
	_, ok := in.Bindings().Get("B")
	require.False(t, ok)
}

func TestRunLines_MissingFileFailsLoudlyByDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in := newTestInterpreter(t, Options{BasePath: t.TempDir()})
	err := in.RunLines(ctx, []string{"A = absent.idf + 1"})

	var missErr *expr.MissingFileError
	require.ErrorAs(t, err, &missErr)
}

func TestRunLines_EnvExpansion(t *testing.T) {
	ctx := context.Background()
	t.Setenv("IDFCALC_TEST_FACTOR", "3")

	in := newTestInterpreter(t, Options{})
	err := in.RunLines(ctx, []string{"A = 2 * %IDFCALC_TEST_FACTOR%"})
	require.NoError(t, err)

	a, _ := in.Bindings().Get("A")
	require.Equal(t, 6.0, a.Grid.ConstValue())
}

func TestRunScript_RequiresIniExtension(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "calc.txt")
	require.NoError(t, os.WriteFile(path, []byte("A = 1\n"), 0o644))

	in := newTestInterpreter(t, Options{})
	err := in.RunScript(ctx, path)
	require.Error(t, err)
	require.Contains(t, err.Error(), ".ini")
}

func TestRunScript_ExecutesFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "calc.ini")
	require.NoError(t, os.WriteFile(path, []byte("A = 2+2\r\nB = A*A\r\n"), 0o644))

	in := newTestInterpreter(t, Options{})
	require.NoError(t, in.RunScript(ctx, path))

	b, _ := in.Bindings().Get("B")
	require.Equal(t, 16.0, b.Grid.ConstValue())
}

func TestSplitAssignment(t *testing.T) {
	t.Parallel()

	lhs, rhs, err := splitAssignment("A = if(B>=1,1,0)")
	require.NoError(t, err)
	require.Equal(t, "A", lhs)
	require.Equal(t, "if(B>=1,1,0)", rhs)

	_, _, err = splitAssignment("no assignment here")
	require.Error(t, err)
}

func TestSplitTargetName(t *testing.T) {
	t.Parallel()

	name, subdir := splitTargetName("A")
	require.Equal(t, "A", name)
	require.Empty(t, subdir)

	name, subdir = splitTargetName("sub\\dir\\A")
	require.Equal(t, "A", name)
	require.Equal(t, "sub/dir", subdir)
}

func TestIsBareGridFile(t *testing.T) {
	t.Parallel()

	require.True(t, isBareGridFile("head.idf"))
	require.True(t, isBareGridFile("  sub\\head.IDF "))
	require.False(t, isBareGridFile("head.idf+1"))
	require.False(t, isBareGridFile("min(head.idf,1)"))
	require.False(t, isBareGridFile("head"))
}
