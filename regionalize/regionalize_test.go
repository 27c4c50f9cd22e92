package regionalize

import (
	"context"
	"testing"
	"time"

	"github.com/zalf-rpm/agroclimate/acd"
	"github.com/zalf-rpm/agroclimate/climate"
	"github.com/zalf-rpm/agroclimate/geo"
	"github.com/zalf-rpm/agroclimate/raster"
	"github.com/zalf-rpm/agroclimate/station"
	"github.com/zalf-rpm/agroclimate/store"
)

// meanReducer reduces a DataAccessor to the mean of its tmin values under
// a single result id, for tests that don't care about the reducer's own
// logic.
func meanReducer(da climate.DataAccessor) map[ResultId]float64 {
	vals := da.Values(acd.Tmin)
	if len(vals) == 0 {
		return map[ResultId]float64{}
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return map[ResultId]float64{"tmin-mean": sum / float64(len(vals))}
}

// constStationSource returns v for every station regardless of date,
// letting tests control each station's contribution precisely. Like a real
// store, it returns one value per day with Feb-29 left out.
func constStationSource(byStation map[string]float64) store.RowSource {
	return store.RowSourceFunc(func(ctx context.Context, q store.Query) (store.Columns, error) {
		v := byStation[q.Station]
		n := 0
		for d := q.Start; !d.After(q.End); d = d.AddDate(0, 0, 1) {
			if d.Month() != time.February || d.Day() != 29 {
				n++
			}
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = v
		}
		cols := make(store.Columns)
		for _, a := range q.ACDs {
			cols[a] = vals
		}
		return cols, nil
	})
}

func testDEM(t *testing.T) *raster.Grid {
	t.Helper()
	g, err := raster.New(2, 2, 1, 13, 52, -9999, geo.LatLngWGS84)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	return g
}

func buildSimulation(name string, stations []*station.Station, source store.RowSource) *climate.Simulation {
	sim := climate.NewSimulation(1, name, source, func() ([]*station.Station, error) {
		return stations, nil
	})
	sc := climate.NewScenario(1, "A1B")
	sim.AddScenario(sc)
	r := climate.NewRealization(1, "r1")
	sc.AddRealization(r)
	return sim
}

func threeStations() []*station.Station {
	return []*station.Station{
		{ID: 1, Name: "a", DBKey: "a", LatLng: geo.LatLng{Lat: 52.2, Lng: 13.2}, Elevation: 10},
		{ID: 2, Name: "b", DBKey: "b", LatLng: geo.LatLng{Lat: 52.8, Lng: 13.2}, Elevation: 100},
		{ID: 3, Name: "c", DBKey: "c", LatLng: geo.LatLng{Lat: 52.5, Lng: 13.8}, Elevation: 50},
	}
}

func TestRegionalizeProducesOneGridPerYearAndRealization(t *testing.T) {
	stations := threeStations()
	source := constStationSource(map[string]float64{"a": 1, "b": 2, "c": 3})
	sim := buildSimulation("clm20", stations, source)

	env := Env{
		DEM:          testDEM(t),
		ACDs:         acd.NewSet(acd.Tmin),
		FromYear:     2000,
		ToYear:       2001,
		YearSlice:    1,
		Simulation:   sim,
		Realizations: sim.Scenarios()[0].Realizations(),
		Reducer:      meanReducer,
		ReducerID:    "tmin-mean",
	}

	result, err := Regionalize(context.Background(), env)
	if err != nil {
		t.Fatalf("Regionalize: %v", err)
	}
	byYear, ok := result["tmin-mean"]
	if !ok {
		t.Fatal("expected a tmin-mean result")
	}
	if len(byYear) != 2 {
		t.Fatalf("len(byYear) = %d, want 2 (2000 and 2001)", len(byYear))
	}
	for _, year := range []int{2000, 2001} {
		grids := byYear[year]
		if len(grids) != 1 {
			t.Fatalf("year %d: len(grids) = %d, want 1 realization", year, len(grids))
		}
		g := grids[0]
		foundData := false
		for row := 0; row < g.Rows; row++ {
			for col := 0; col < g.Cols; col++ {
				if !g.IsNoData(row, col) {
					foundData = true
				}
			}
		}
		if !foundData {
			t.Fatalf("year %d: grid is entirely no-data", year)
		}
	}
}

func TestRegionalizeNoStationsReturnsEmptyResult(t *testing.T) {
	sim := buildSimulation("empty", nil, constStationSource(nil))
	env := Env{
		DEM:          testDEM(t),
		ACDs:         acd.NewSet(acd.Tmin),
		FromYear:     2000,
		ToYear:       2000,
		YearSlice:    1,
		Simulation:   sim,
		Realizations: sim.Scenarios()[0].Realizations(),
		Reducer:      meanReducer,
		ReducerID:    "tmin-mean-empty",
	}
	result, err := Regionalize(context.Background(), env)
	if err != nil {
		t.Fatalf("Regionalize: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("len(result) = %d, want 0", len(result))
	}
}

func TestRegionalizeSRReturnsSoleResultId(t *testing.T) {
	stations := threeStations()
	sim := buildSimulation("clm20-sr", stations, constStationSource(map[string]float64{"a": 1, "b": 2, "c": 3}))
	env := Env{
		DEM:          testDEM(t),
		ACDs:         acd.NewSet(acd.Tmin),
		FromYear:     2000,
		ToYear:       2000,
		YearSlice:    1,
		Simulation:   sim,
		Realizations: sim.Scenarios()[0].Realizations(),
		Reducer:      meanReducer,
		ReducerID:    "tmin-mean-sr",
	}
	byYear, err := RegionalizeSR(context.Background(), env)
	if err != nil {
		t.Fatalf("RegionalizeSR: %v", err)
	}
	if len(byYear[2000]) != 1 {
		t.Fatalf("len(byYear[2000]) = %d, want 1", len(byYear[2000]))
	}
}

func TestRegionalizeAndAvgRealizationsPropagatesNoData(t *testing.T) {
	stations := threeStations()

	// Two realizations of the same simulation, with different per-station
	// values, share one DEM cell carved out as no-data.
	dem := testDEM(t)
	dem.Set(0, 0, dem.NoData)

	sim := climate.NewSimulation(1, "avg", store.RowSourceFunc(nil), func() ([]*station.Station, error) {
		return stations, nil
	})
	sc := climate.NewScenario(1, "A1B")
	sim.AddScenario(sc)

	byStationR1 := map[string]float64{"a": 1, "b": 2, "c": 3}
	byStationR2 := map[string]float64{"a": 4, "b": 5, "c": 6}
	sim.Source = store.RowSourceFunc(func(ctx context.Context, q store.Query) (store.Columns, error) {
		byStation := byStationR1
		if q.Realization == "r2" {
			byStation = byStationR2
		}
		v := byStation[q.Station]
		n := 0
		for d := q.Start; !d.After(q.End); d = d.AddDate(0, 0, 1) {
			if d.Month() != time.February || d.Day() != 29 {
				n++
			}
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = v
		}
		cols := make(store.Columns)
		for _, a := range q.ACDs {
			cols[a] = vals
		}
		return cols, nil
	})

	r1 := climate.NewRealization(1, "r1")
	r2 := climate.NewRealization(2, "r2")
	sc.AddRealization(r1)
	sc.AddRealization(r2)

	env := Env{
		DEM:          dem,
		ACDs:         acd.NewSet(acd.Tmin),
		FromYear:     2000,
		ToYear:       2000,
		YearSlice:    1,
		Simulation:   sim,
		Realizations: []*climate.Realization{r1, r2},
		Reducer:      meanReducer,
		ReducerID:    "tmin-mean-avg-nodata",
	}

	result, err := RegionalizeAndAvgRealizations(context.Background(), env)
	if err != nil {
		t.Fatalf("RegionalizeAndAvgRealizations: %v", err)
	}
	grids := result["tmin-mean"][2000]
	if len(grids) != 1 {
		t.Fatalf("len(grids) = %d, want 1 (averaged)", len(grids))
	}
	g := grids[0]
	if !g.IsNoData(0, 0) {
		t.Fatalf("cell (0,0) = %g, want no-data since the DEM carves it out", g.At(0, 0))
	}
	if g.IsNoData(1, 1) {
		t.Fatal("cell (1,1) should have been interpolated in both realizations and averaged")
	}
}
