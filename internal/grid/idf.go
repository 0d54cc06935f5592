package grid

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/idfcalc/internal/ctxlog"
)

// idfMarker is the record marker at the start of every IDF file.
const idfMarker uint32 = 1271

// idfHeader mirrors the fixed-size on-disk header of an IDF file. All fields
// are little-endian; coordinates and values are single precision.
type idfHeader struct {
	Marker     uint32
	NCol, NRow int32
	XMin, XMax float32
	YMin, YMax float32
	DMin, DMax float32
	NoData     float32
	IEq, ITb   byte
	_          [2]byte
	DX, DY     float32
}

// Open reads the header of an IDF file and returns a grid whose cell matrix
// stays on disk until first use.
func Open(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var h idfHeader
	if err := binary.Read(bufio.NewReader(f), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading IDF header of %s: %w", path, err)
	}
	if h.Marker != idfMarker {
		return nil, fmt.Errorf("%s is not an IDF file (marker %d)", path, h.Marker)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Grid{
		Name:     name,
		Filename: path,
		Extent:   NewExtent(float64(h.XMin), float64(h.YMin), float64(h.XMax), float64(h.YMax)),
		CSX:      float64(h.DX),
		CSY:      float64(h.DY),
		NoData:   float64(h.NoData),
		state:    valuesUnloaded,
	}, nil
}

// loadValues reads the cell matrix from the backing file into memory.
func (g *Grid) loadValues() error {
	f, err := os.Open(g.Filename)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var h idfHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("reading IDF header of %s: %w", g.Filename, err)
	}
	data := make([]float32, int(h.NCol)*int(h.NRow))
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("reading IDF values of %s: %w", g.Filename, err)
	}
	g.data = data
	g.state = valuesLoaded
	return nil
}

// Write persists the grid as an IDF file at path, creating parent
// directories as needed. A non-nil meta additionally writes a .met sidecar
// next to the grid. The grid records path as its backing file, so its values
// can be released and reloaded later.
func (g *Grid) Write(ctx context.Context, path string, meta *Metadata) error {
	if g.constant {
		return fmt.Errorf("grid %q: cannot write a constant grid to file", g.Name)
	}
	if err := g.EnsureLoaded(ctx); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dmin, dmax := g.dataRange()
	h := idfHeader{
		Marker: idfMarker,
		NCol:   int32(g.NCols()),
		NRow:   int32(g.NRows()),
		XMin:   float32(g.Extent.XMin),
		XMax:   float32(g.Extent.XMax),
		YMin:   float32(g.Extent.YMin),
		YMax:   float32(g.Extent.YMax),
		DMin:   float32(dmin),
		DMax:   float32(dmax),
		NoData: float32(g.NoData),
		DX:     float32(g.CSX),
		DY:     float32(g.CSY),
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, g.data); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	g.Filename = path

	if meta != nil {
		if err := writeMetadata(path, meta); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Debug("Grid written.", "grid", g.Name, "file", path)
	return nil
}

// dataRange returns the smallest and largest data values, ignoring NoData.
func (g *Grid) dataRange() (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range g.data {
		fv := float64(v)
		if fv == g.NoData {
			continue
		}
		if fv < min {
			min = fv
		}
		if fv > max {
			max = fv
		}
	}
	if min > max {
		return g.NoData, g.NoData
	}
	return min, max
}

// writeMetadata writes the provenance sidecar for a grid file.
func writeMetadata(gridPath string, meta *Metadata) error {
	path := strings.TrimSuffix(gridPath, filepath.Ext(gridPath)) + ".met"
	var b strings.Builder
	fmt.Fprintf(&b, "source=%s\n", meta.Source)
	if meta.CreatedBy != "" {
		fmt.Fprintf(&b, "created_by=%s\n", meta.CreatedBy)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
