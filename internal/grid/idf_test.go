package grid

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDF_WriteOpenRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// --- Arrange ---
	g := testGrid(t, "head")
	g.SetValue(3, 0, g.NoData)
	path := filepath.Join(t.TempDir(), "head.idf")

	// --- Act ---
	require.NoError(t, g.Write(ctx, path, nil))
	r, err := Open(path)
	require.NoError(t, err)

	// --- Assert ---
	require.Equal(t, "head", r.Name)
	require.False(t, r.Loaded())
	require.Equal(t, g.Extent, r.Extent)
	require.Equal(t, g.CSX, r.CSX)
	require.Equal(t, g.NoData, r.NoData)

	require.NoError(t, r.EnsureLoaded(ctx))
	require.True(t, r.Loaded())
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			require.Equal(t, g.Value(row, col), r.Value(row, col))
		}
	}
	require.True(t, r.IsNoData(3, 0))
}

func TestIDF_ReleaseAndLazyReload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "head")
	path := filepath.Join(t.TempDir(), "head.idf")
	require.NoError(t, g.Write(ctx, path, nil))

	g.ReleaseMemory()
	require.False(t, g.Loaded())

	// The matrix comes back transparently on the next access.
	require.NoError(t, g.EnsureLoaded(ctx))
	require.Equal(t, 12.0, g.Value(1, 2))
}

func TestIDF_ReleaseWithoutBackingFileIsNoOp(t *testing.T) {
	t.Parallel()

	g := testGrid(t, "mem")
	g.ReleaseMemory()
	require.True(t, g.Loaded())
	require.Equal(t, 0.0, g.Value(0, 0))
}

func TestIDF_OpenRejectsNonIDF(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bogus.idf")
	require.NoError(t, os.WriteFile(path, []byte("not an idf file at all, just text"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not an IDF file")
}

func TestIDF_WriteMetadataSidecar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "head")
	dir := t.TempDir()
	path := filepath.Join(dir, "head.idf")

	err := g.Write(ctx, path, &Metadata{Source: "a+b*3", CreatedBy: "idfcalc"})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "head.met"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "source=a+b*3")
	require.Contains(t, string(raw), "created_by=idfcalc")
}

func TestIDF_WriteConstantFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewConstant(7)
	err := c.Write(ctx, filepath.Join(t.TempDir(), "c.idf"), nil)
	require.Error(t, err)
}
