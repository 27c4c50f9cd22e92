// Package raster implements the Grid type shared by the digital elevation
// model input and the regionalizer's result grids: rows × cols of float64
// cells on a regular lattice, with row/col ↔ projected-coordinate mapping.
package raster

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/zalf-rpm/agroclimate/geo"
)

// Grid is a regular raster of float64 values: a *sparse.DenseArray
// wrapped with georeferencing metadata.
type Grid struct {
	Rows, Cols int
	CellSize   float64
	// XllCorner, YllCorner are the coordinates of the lower-left corner of
	// the lower-left cell.
	XllCorner, YllCorner float64
	NoData               float64
	CS                   geo.CoordSystem

	data *sparse.DenseArray
}

// New creates a zeroed rows×cols grid. cellSize must be > 0.
func New(rows, cols int, cellSize, xllCorner, yllCorner, noData float64, cs geo.CoordSystem) (*Grid, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("raster: cellSize must be > 0, got %g", cellSize)
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("raster: rows and cols must be > 0, got %d,%d", rows, cols)
	}
	g := &Grid{
		Rows: rows, Cols: cols, CellSize: cellSize,
		XllCorner: xllCorner, YllCorner: yllCorner, NoData: noData, CS: cs,
		data: sparse.ZerosDense(rows, cols),
	}
	return g, nil
}

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.data.Get(row, col) }

// Set sets the value at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.data.Set(v, row, col) }

// IsNoData reports whether the cell at (row, col) holds the grid's no-data
// value.
func (g *Grid) IsNoData(row, col int) bool { return g.At(row, col) == g.NoData }

// RowCol returns the (row, col) indices of the cell containing the
// projected coordinate p:
//
//	row = floor((yllCorner + rows*cellSize - h) / cellSize)
//	col = floor((r - xllCorner) / cellSize)
//
// Out-of-bounds results are clamped to the nearest valid row/col ("border
// values snap to the last valid row/col").
func (g *Grid) RowCol(p geo.RC) (row, col int) {
	row = int(math.Floor((g.YllCorner + float64(g.Rows)*g.CellSize - p.H) / g.CellSize))
	col = int(math.Floor((p.R - g.XllCorner) / g.CellSize))
	if row < 0 {
		row = 0
	}
	if row >= g.Rows {
		row = g.Rows - 1
	}
	if col < 0 {
		col = 0
	}
	if col >= g.Cols {
		col = g.Cols - 1
	}
	return row, col
}

// CellCenter returns the projected coordinate of the center of cell
// (row, col).
func (g *Grid) CellCenter(row, col int) geo.RC {
	r := g.XllCorner + g.CellSize*(float64(col)+0.5)
	h := g.YllCorner + float64(g.Rows)*g.CellSize - g.CellSize*(float64(row)+0.5)
	return geo.RC{R: r, H: h}
}

// Extent returns the grid's bounding rectangle in projected coordinates.
func (g *Grid) Extent() geo.RcRect {
	tl := geo.RC{R: g.XllCorner, H: g.YllCorner + float64(g.Rows)*g.CellSize}
	br := geo.RC{R: g.XllCorner + float64(g.Cols)*g.CellSize, H: g.YllCorner}
	return geo.NewRcRect(tl, br)
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	o := *g
	o.data = g.data.Copy()
	return &o
}

// CloneEmpty returns a grid with the same geometry as g but every cell set
// to g.NoData — the shape the regionalizer clones the DEM into before
// filling in interpolated values (output grids inherit
// their geometry and no-data from the DEM clone").
func (g *Grid) CloneEmpty() *Grid {
	o, _ := New(g.Rows, g.Cols, g.CellSize, g.XllCorner, g.YllCorner, g.NoData, g.CS)
	for i := 0; i < g.Rows; i++ {
		for j := 0; j < g.Cols; j++ {
			o.Set(i, j, g.NoData)
		}
	}
	return o
}

// SubGrid returns the portion of g covering rc, which must be a
// sub-rectangle of g's extent aligned to g's cell size, along with
// whether the extraction succeeded. Used by the regionalizer's in-memory
// cache to serve a smaller DEM request out of a larger cached result.
func (g *Grid) SubGrid(rc geo.RcRect) (*Grid, bool) {
	if !g.Extent().ContainsRect(rc) {
		return nil, false
	}
	cols := int(math.Round(rc.Width() / g.CellSize))
	rows := int(math.Round(rc.Height() / g.CellSize))
	if cols <= 0 || rows <= 0 {
		return nil, false
	}
	startRow, startCol := g.RowCol(geo.RC{R: rc.TL.R + g.CellSize/2, H: rc.TL.H - g.CellSize/2})
	o, err := New(rows, cols, g.CellSize, rc.TL.R, rc.BR.H, g.NoData, g.CS)
	if err != nil {
		return nil, false
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			o.Set(i, j, g.At(startRow+i, startCol+j))
		}
	}
	return o, true
}

// Rescale returns a new grid at a coarser or finer resolution, where
// factor > 1 downscales (aggregates factor×factor blocks by mean,
// ignoring no-data cells) and factor < -1 with |factor| upscales
// (replicates each cell into a |factor|×|factor| block); any other factor
// is an error. Rescale is only defined when the scale factor evenly
// divides the relevant side.
func (g *Grid) Rescale(factor int) (*Grid, error) {
	switch {
	case factor > 1:
		if g.Rows%factor != 0 || g.Cols%factor != 0 {
			return nil, fmt.Errorf("raster: downscale factor %d does not evenly divide grid %dx%d", factor, g.Rows, g.Cols)
		}
		newRows, newCols := g.Rows/factor, g.Cols/factor
		o, err := New(newRows, newCols, g.CellSize*float64(factor), g.XllCorner, g.YllCorner, g.NoData, g.CS)
		if err != nil {
			return nil, err
		}
		for i := 0; i < newRows; i++ {
			for j := 0; j < newCols; j++ {
				var sum float64
				var n int
				for bi := 0; bi < factor; bi++ {
					for bj := 0; bj < factor; bj++ {
						v := g.At(i*factor+bi, j*factor+bj)
						if v == g.NoData {
							continue
						}
						sum += v
						n++
					}
				}
				if n == 0 {
					o.Set(i, j, g.NoData)
				} else {
					o.Set(i, j, sum/float64(n))
				}
			}
		}
		return o, nil
	case factor < -1:
		f := -factor
		newRows, newCols := g.Rows*f, g.Cols*f
		o, err := New(newRows, newCols, g.CellSize/float64(f), g.XllCorner, g.YllCorner, g.NoData, g.CS)
		if err != nil {
			return nil, err
		}
		for i := 0; i < newRows; i++ {
			for j := 0; j < newCols; j++ {
				o.Set(i, j, g.At(i/f, j/f))
			}
		}
		return o, nil
	default:
		return nil, fmt.Errorf("raster: invalid rescale factor %d", factor)
	}
}
