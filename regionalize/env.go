// Package regionalize interpolates point climate-station data onto a
// raster grid: an elevation-based linear regression predicts each cell's
// value from the digital elevation model, and an inverse-distance-weighted
// correction folds in each station's residual from that regression.
package regionalize

import (
	"github.com/zalf-rpm/agroclimate/acd"
	"github.com/zalf-rpm/agroclimate/climate"
	"github.com/zalf-rpm/agroclimate/raster"
)

// ResultId names one scalar a Reducer produces per station per year, e.g.
// "tmin-mean" or "precip-sum". The regionalizer produces one Grid per
// ResultId per year per realization.
type ResultId string

// Reducer collapses a time-sliced DataAccessor into one or more named
// scalars for a single station in a single year.
type Reducer func(da climate.DataAccessor) map[ResultId]float64

// CacheInfo configures the regionalizer's on-disk result cache.
type CacheInfo struct {
	// Persist enables the on-disk cache; if false, only the in-memory
	// cache is consulted.
	Persist bool
	// RootPath is the on-disk cache's root directory.
	RootPath string
	// ResultIds lists every ResultId the reducer may produce. The
	// regionalizer does not read it: the on-disk cache's per-result-id
	// files are laid out from each result id as its grids are written.
	ResultIds []ResultId
}

// Env is the full set of inputs to one regionalization run.
type Env struct {
	DEM          *raster.Grid
	ACDs         acd.Set
	FromYear     int
	ToYear       int
	YearSlice    int // number of years per reducer invocation; 1 = annual
	BorderKM     float64
	Simulation   *climate.Simulation
	Realizations []*climate.Realization
	// ReducerID names Reducer for the cache key's reducer component, since
	// two Envs with structurally identical inputs but different reducer
	// logic must never share a cache entry.
	ReducerID string
	Reducer   Reducer
	CacheInfo CacheInfo
}

// Result is what one Regionalize call returns: one Grid per realization
// per year per ResultId.
type Result map[ResultId]map[int][]*raster.Grid

// FuncResult is what a single station's single-year reduction contributes
// to the regionalizer: the reducer's output, keyed by result id.
type FuncResult struct {
	Values map[ResultId]float64
}
