package regionalize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/zalf-rpm/agroclimate/raster"
)

// diskPath builds the on-disk cache file holding every year's grid for one
// (extent, simulation, scenario, realization, ACD set, reducer, result id)
// combination: <root>/<ext>/<simId>/<scenId>/<realId>/<acdSet>/<reducerId>/<resultId>.hdf,
// one directory per key component. Directories are keyed by id, not
// display name, so renaming a simulation/scenario/realization never
// invalidates its on-disk cache entries.
func diskPath(root string, key resultKey) string {
	return filepath.Join(root,
		extentDir(key),
		strconv.Itoa(key.simID),
		strconv.Itoa(key.scenarioID),
		strconv.Itoa(key.realizationID),
		sanitize(key.acdLabel),
		sanitize(key.reducerID),
		sanitize(string(key.resultID))+".hdf")
}

func extentDir(key resultKey) string {
	e := key.extent
	return fmt.Sprintf("%.0f_%.0f_%.0f_%.0f_%.2f", e.TL.R, e.TL.H, e.BR.R, e.BR.H, key.cellSize)
}

func sanitize(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// datasetName is the per-year variable name within one result-id's file:
// the year as a decimal string.
func datasetName(year int) string { return strconv.Itoa(year) }

// regionName is the on-disk cache's human-readable region-name attribute.
// It falls back to the id triple when no display label was given, so a
// cache file written before a region label was wired through still gets a
// meaningful value on rewrite.
func regionName(key resultKey) string {
	if key.regionLabel != "" {
		return key.regionLabel
	}
	return fmt.Sprintf("%d/%d/%d", key.simID, key.scenarioID, key.realizationID)
}

// yearData is one year's grid values plus the per-dataset attributes
// {ncols, nrows, xllcorner, yllcorner, cell-size, nodata, coordinate-system,
// region-name, time}, carried through a read-modify-write cycle so an
// older year's write timestamp survives a later year being added to the
// same file.
type yearData struct {
	values     []float32
	rows, cols int
	xll, yll   float64
	cellSize   float64
	nodata     float64
	cs         string
	region     string
	unixTime   int32
}

// readResultGrid reads key's year out of path, if the file and that
// year's dataset both exist. A missing file or missing dataset is
// reported as (nil, false, nil), not an error: both mean "not cached yet".
func readResultGrid(path string, key resultKey) (*raster.Grid, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	nf, err := cdf.Open(f)
	if err != nil {
		return nil, false, fmt.Errorf("regionalize: opening cache file %s: %w", path, err)
	}

	v := datasetName(key.year)
	hasVar := false
	for _, name := range nf.Header.Variables() {
		if name == v {
			hasVar = true
			break
		}
	}
	if !hasVar {
		return nil, false, nil
	}

	rows := int(nf.Header.GetAttribute(v, "nrows").([]int32)[0])
	cols := int(nf.Header.GetAttribute(v, "ncols").([]int32)[0])
	xll := nf.Header.GetAttribute(v, "xllcorner").([]float64)[0]
	yll := nf.Header.GetAttribute(v, "yllcorner").([]float64)[0]
	cellSize := nf.Header.GetAttribute(v, "cell-size").([]float64)[0]
	nodata := nf.Header.GetAttribute(v, "nodata").([]float64)[0]

	g, err := raster.New(rows, cols, cellSize, xll, yll, nodata, key.cs)
	if err != nil {
		return nil, false, err
	}

	end := nf.Header.Lengths(v)
	start := make([]int, len(end))
	r := nf.Reader(v, start, end)
	data := make([]float32, rows*cols)
	if _, err := r.Read(data); err != nil {
		return nil, false, fmt.Errorf("regionalize: reading cache dataset %s from %s: %w", v, path, err)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g.Set(i, j, float64(data[i*cols+j]))
		}
	}
	return g, true, nil
}

// writeResultGrid persists g as key's year in path, preserving every other
// year already stored there. cdf files are immutable once Define'd, so an
// existing file's other years are read back into memory and rewritten
// alongside the new one.
func writeResultGrid(path string, key resultKey, g *raster.Grid) error {
	years := map[int]yearData{
		key.year: {
			values: gridToFloat32(g),
			rows:   g.Rows, cols: g.Cols,
			xll: g.XllCorner, yll: g.YllCorner,
			cellSize: g.CellSize, nodata: g.NoData,
			cs:       g.CS.String(),
			region:   regionName(key),
			unixTime: int32(time.Now().Unix()),
		},
	}

	if existing, err := os.Open(path); err == nil {
		if nf, err := cdf.Open(existing); err == nil {
			for _, name := range nf.Header.Variables() {
				year, err := strconv.Atoi(name)
				if err != nil || year == key.year {
					continue
				}
				end := nf.Header.Lengths(name)
				start := make([]int, len(end))
				r := nf.Reader(name, start, end)
				data := make([]float32, g.Rows*g.Cols)
				if _, err := r.Read(data); err != nil {
					continue
				}
				yd := yearData{values: data, rows: g.Rows, cols: g.Cols, cs: g.CS.String(), region: regionName(key)}
				if v := nf.Header.GetAttribute(name, "xllcorner"); v != nil {
					yd.xll = v.([]float64)[0]
				}
				if v := nf.Header.GetAttribute(name, "yllcorner"); v != nil {
					yd.yll = v.([]float64)[0]
				}
				if v := nf.Header.GetAttribute(name, "cell-size"); v != nil {
					yd.cellSize = v.([]float64)[0]
				}
				if v := nf.Header.GetAttribute(name, "nodata"); v != nil {
					yd.nodata = v.([]float64)[0]
				}
				if v := nf.Header.GetAttribute(name, "time"); v != nil {
					yd.unixTime = v.([]int32)[0]
				} else {
					yd.unixTime = int32(time.Now().Unix())
				}
				years[year] = yd
			}
		}
		existing.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("regionalize: creating cache directory for %s: %w", path, err)
	}

	varNames := make([]int, 0, len(years))
	for year := range years {
		varNames = append(varNames, year)
	}
	sort.Ints(varNames)

	h := cdf.NewHeader([]string{"row", "col"}, []int{g.Rows, g.Cols})
	for _, year := range varNames {
		name := datasetName(year)
		yd := years[year]
		h.AddVariable(name, []string{"row", "col"}, []float32{0})
		h.AddAttribute(name, "ncols", []int32{int32(yd.cols)})
		h.AddAttribute(name, "nrows", []int32{int32(yd.rows)})
		h.AddAttribute(name, "xllcorner", []float64{yd.xll})
		h.AddAttribute(name, "yllcorner", []float64{yd.yll})
		h.AddAttribute(name, "cell-size", []float64{yd.cellSize})
		h.AddAttribute(name, "nodata", []float64{yd.nodata})
		h.AddAttribute(name, "coordinate-system", yd.cs)
		h.AddAttribute(name, "region-name", yd.region)
		h.AddAttribute(name, "time", []int32{yd.unixTime})
	}
	h.Define()

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("regionalize: creating cache file %s: %w", path, err)
	}
	defer w.Close()

	nf, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("regionalize: writing cache header to %s: %w", path, err)
	}
	for _, year := range varNames {
		name := datasetName(year)
		end := h.Lengths(name)
		start := make([]int, len(end))
		writer := nf.Writer(name, start, end)
		if _, err := writer.Write(years[year].values); err != nil {
			return fmt.Errorf("regionalize: writing cache dataset %s to %s: %w", name, path, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func gridToFloat32(g *raster.Grid) []float32 {
	out := make([]float32, g.Rows*g.Cols)
	for i := 0; i < g.Rows; i++ {
		for j := 0; j < g.Cols; j++ {
			out[i*g.Cols+j] = float32(g.At(i, j))
		}
	}
	return out
}
