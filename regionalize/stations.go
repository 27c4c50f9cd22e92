package regionalize

import (
	"sync"

	"github.com/ctessum/geom/proj"
	"github.com/zalf-rpm/agroclimate/climate"
	"github.com/zalf-rpm/agroclimate/geo"
	"github.com/zalf-rpm/agroclimate/raster"
	"github.com/zalf-rpm/agroclimate/station"
)

// demKey identifies a DEM's georeferencing for memoization purposes: two
// grids with the same extent, cell size, and coordinate system select the
// same station set regardless of their cell values.
type demKey struct {
	extent   geo.RcRect
	cellSize float64
	cs       geo.CoordSystem
}

func keyFor(dem *raster.Grid) demKey {
	return demKey{extent: dem.Extent(), cellSize: dem.CellSize, cs: dem.CS}
}

// stationSelector memoizes the border-expanded station selection per
// (simulation, DEM extent/cellSize/CS), since the same DEM is regionalized
// against repeatedly across years and realizations of the same simulation.
type stationSelector struct {
	mu    sync.Mutex
	cache map[*climate.Simulation]map[demKey][]*station.Station
}

var selector = &stationSelector{cache: make(map[*climate.Simulation]map[demKey][]*station.Station)}

// selectStations returns every station of sim within dem's extent expanded
// by borderKM kilometers, memoized per (sim, dem metadata).
func selectStations(sim *climate.Simulation, dem *raster.Grid, borderKM float64) []*station.Station {
	key := keyFor(dem)

	selector.mu.Lock()
	if bySim, ok := selector.cache[sim]; ok {
		if stations, ok := bySim[key]; ok {
			selector.mu.Unlock()
			return stations
		}
	} else {
		selector.cache[sim] = make(map[demKey][]*station.Station)
	}
	selector.mu.Unlock()

	extent := dem.Extent().ExpandedByKM(borderKM)
	selected := selectStationsProjected(sim, extent, dem.CS)

	selector.mu.Lock()
	selector.cache[sim][key] = selected
	selector.mu.Unlock()
	return selected
}

// selectStationsProjected returns every station of sim whose LatLng
// projects into extent under coordinate system cs.
func selectStationsProjected(sim *climate.Simulation, extent geo.RcRect, cs geo.CoordSystem) []*station.Station {
	sr, err := cs.SR()
	if err != nil {
		return nil
	}
	var selected []*station.Station
	for _, st := range sim.Stations().All() {
		rc, perr := projectLatLng(st.LatLng, sr)
		if perr != nil {
			continue
		}
		if extent.Contains(rc, false) {
			selected = append(selected, st)
		}
	}
	return selected
}

// projectLatLng projects a geographic coordinate into dest using
// github.com/ctessum/geom/proj.
func projectLatLng(ll geo.LatLng, dest *proj.SR) (geo.RC, error) {
	src, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		return geo.RC{}, err
	}
	ct, err := src.NewTransform(dest)
	if err != nil {
		return geo.RC{}, err
	}
	x, y, err := ct(ll.Lng, ll.Lat)
	if err != nil {
		return geo.RC{}, err
	}
	return geo.RC{R: x, H: y}, nil
}
