package regionalize

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ctessum/geom/proj"
	"github.com/zalf-rpm/agroclimate/climate"
	"github.com/zalf-rpm/agroclimate/raster"
	"github.com/zalf-rpm/agroclimate/station"
)

// DefaultBorderKM is the station-selection border expansion used when an
// Env leaves BorderKM unset. It is a package variable rather than a
// constant so a process can tune it once at startup.
var DefaultBorderKM = 100.0

var (
	sharedCacheOnce sync.Once
	sharedCache     *resultCache
)

func cacheFor() *resultCache {
	sharedCacheOnce.Do(func() { sharedCache = newResultCache(512) })
	return sharedCache
}

func borderKM(env Env) float64 {
	if env.BorderKM > 0 {
		return env.BorderKM
	}
	return DefaultBorderKM
}

// Regionalize interpolates env.Reducer's per-station, per-year output onto
// env.DEM for every configured realization, returning one Grid per result
// id per year per realization (in realization/configuration order).
func Regionalize(ctx context.Context, env Env) (Result, error) {
	result := make(Result)
	if env.DEM == nil || env.Simulation == nil || env.Reducer == nil {
		return result, nil
	}

	stations := selectStations(env.Simulation, env.DEM, borderKM(env))
	if len(stations) == 0 {
		return result, nil
	}

	sr, err := env.DEM.CS.SR()
	if err != nil {
		return nil, fmt.Errorf("regionalize: resolving DEM coordinate system: %w", err)
	}

	yearSlice := env.YearSlice
	if yearSlice <= 0 {
		yearSlice = 1
	}

	cache := cacheFor()

	for _, r := range env.Realizations {
		if r == nil || r.Scenario() == nil {
			continue
		}
		for year := env.FromYear; year <= env.ToYear; year += yearSlice {
			yearEnd := year + yearSlice - 1
			if yearEnd > env.ToYear {
				yearEnd = env.ToYear
			}
			sd := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			ed := time.Date(yearEnd, time.December, 31, 0, 0, 0, 0, time.UTC)

			byResult := sampleStations(ctx, r, stations, sr, env, sd, ed)

			for id, samples := range byResult {
				key := resultKey{
					extent:        env.DEM.Extent(),
					cellSize:      env.DEM.CellSize,
					cs:            env.DEM.CS,
					simID:         env.Simulation.ID,
					scenarioID:    r.Scenario().ID,
					realizationID: r.ID,
					acdLabel:      env.ACDs.Label(),
					reducerID:     env.ReducerID,
					resultID:      id,
					year:          year,
					regionLabel:   env.Simulation.Name + "/" + r.Scenario().Name + "/" + r.Name,
				}
				log := env.Simulation.Log
				g, err := cache.get(ctx, key, env.CacheInfo.RootPath, env.CacheInfo.Persist, func() (*raster.Grid, error) {
					return interpolateGrid(env.DEM, samples, log), nil
				})
				if err != nil {
					return nil, fmt.Errorf("regionalize: interpolating %s for %d: %w", id, year, err)
				}
				if result[id] == nil {
					result[id] = make(map[int][]*raster.Grid)
				}
				result[id][year] = append(result[id][year], g)
			}
		}
	}
	return result, nil
}

// sampleStations collects one stationSample per result id produced by
// env.Reducer, across every station that has non-empty data for [sd, ed].
func sampleStations(ctx context.Context, r *climate.Realization, stations []*station.Station, sr *proj.SR, env Env, sd, ed time.Time) map[ResultId][]stationSample {
	byResult := make(map[ResultId][]stationSample)
	for _, st := range stations {
		rc, err := projectLatLng(st.LatLng, sr)
		if err != nil {
			continue
		}
		da := r.DataAccessorFor(ctx, st.LatLng, env.ACDs, sd, ed)
		if da.IsEmpty() {
			continue
		}
		values := env.Reducer(da)
		for id, v := range values {
			byResult[id] = append(byResult[id], stationSample{RC: rc, Elevation: st.Elevation, Value: v})
		}
	}
	return byResult
}

// RegionalizeAndAvgRealizations regionalizes env exactly like Regionalize,
// then collapses each result id's per-year grids to their element-wise
// mean across realizations. A cell that is no-data in any contributing
// realization's grid is no-data in the averaged grid, since a regression
// residual at a no-data cell has no meaning to average.
func RegionalizeAndAvgRealizations(ctx context.Context, env Env) (Result, error) {
	full, err := Regionalize(ctx, env)
	if err != nil {
		return nil, err
	}
	avg := make(Result)
	for id, byYear := range full {
		avg[id] = make(map[int][]*raster.Grid)
		for year, grids := range byYear {
			g, err := averageGrids(grids)
			if err != nil {
				return nil, fmt.Errorf("regionalize: averaging realizations for %s/%d: %w", id, year, err)
			}
			avg[id][year] = []*raster.Grid{g}
		}
	}
	return avg, nil
}

func averageGrids(grids []*raster.Grid) (*raster.Grid, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("no grids to average")
	}
	out := grids[0].CloneEmpty()
	for row := 0; row < out.Rows; row++ {
		for col := 0; col < out.Cols; col++ {
			var sum float64
			noData := false
			for _, g := range grids {
				if g.IsNoData(row, col) {
					noData = true
					break
				}
				sum += g.At(row, col)
			}
			if noData {
				continue
			}
			out.Set(row, col, sum/float64(len(grids)))
		}
	}
	return out, nil
}

// RegionalizeSR regionalizes env and returns only its sole configured
// result id's per-year grids, for callers whose Reducer always produces
// exactly one ResultId.
func RegionalizeSR(ctx context.Context, env Env) (map[int][]*raster.Grid, error) {
	full, err := Regionalize(ctx, env)
	if err != nil {
		return nil, err
	}
	return soleResult(full)
}

// RegionalizeAndAvgRealizationsSR is RegionalizeAndAvgRealizations's
// single-result-id counterpart to RegionalizeSR.
func RegionalizeAndAvgRealizationsSR(ctx context.Context, env Env) (map[int][]*raster.Grid, error) {
	full, err := RegionalizeAndAvgRealizations(ctx, env)
	if err != nil {
		return nil, err
	}
	return soleResult(full)
}

func soleResult(full Result) (map[int][]*raster.Grid, error) {
	switch len(full) {
	case 0:
		return map[int][]*raster.Grid{}, nil
	case 1:
		for _, byYear := range full {
			return byYear, nil
		}
	}
	return nil, fmt.Errorf("regionalize: expected exactly one result id, got %d", len(full))
}
