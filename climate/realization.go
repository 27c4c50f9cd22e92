package climate

import (
	"context"
	"time"

	"github.com/zalf-rpm/agroclimate/acd"
	"github.com/zalf-rpm/agroclimate/geo"
	"github.com/zalf-rpm/agroclimate/store"
)

// Realization is one ensemble member of a Scenario (e.g. one run of a
// stochastic weather generator, or a deterministic model's single run). It
// holds only a non-owning back-reference to its Scenario.
type Realization struct {
	ID   int
	Name string

	scenario *Scenario
}

// NewRealization returns a Realization not yet attached to a Scenario; use
// Scenario.AddRealization to attach it.
func NewRealization(id int, name string) *Realization {
	return &Realization{ID: id, Name: name}
}

// Scenario returns the realization's owning scenario.
func (r *Realization) Scenario() *Scenario { return r.scenario }

// Simulation returns the realization's owning simulation, via its scenario.
func (r *Realization) Simulation() *Simulation {
	if r.scenario == nil {
		return nil
	}
	return r.scenario.sim
}

// DataAccessorFor returns the daily values of acds at the station nearest
// coord, over the inclusive window [sd, ed], fetching and caching any days
// not already held. The nearest station is used however far away it is.
// It returns an empty DataAccessor if the realization is not attached to a
// simulation, [sd, ed] lies outside the simulation's available year range,
// the simulation has no stations, or the backing store could not satisfy
// the request — a lookup here never returns an error.
func (r *Realization) DataAccessorFor(ctx context.Context, coord geo.LatLng, acds acd.Set, sd, ed time.Time) DataAccessor {
	sim := r.Simulation()
	if sim == nil {
		return DataAccessor{}
	}
	if !sim.AvailableYearRange().Contains(sd, ed) {
		return DataAccessor{}
	}
	st := sim.Stations().Closest(coord)
	if st == nil {
		return DataAccessor{}
	}

	cache := sim.Cache()
	sc := r.scenario
	funcs := store.DeriveFuncsFor(sim.Name, st.LocationClass, st.LatLng.Lat, sim.SaxonyPrecipCorrection)
	query := func(ctx context.Context, group acd.Set, start, end time.Time) store.Columns {
		cols, err := sim.Source.Execute(ctx, store.Query{
			Station:     st.DBKey,
			Scenario:    sc.Name,
			Realization: r.Name,
			ACDs:        funcs.RequiredInputs(group),
			Start:       start,
			End:         end,
		})
		if err != nil {
			if sim.Log != nil {
				sim.Log.WithError(err).WithField("station", st.DBKey).Warn("climate: backing-store query failed")
			}
			return store.Columns{}
		}
		cols = funcs.Apply(cols, st.Elevation)
		out := make(store.Columns, len(group))
		for _, a := range group {
			if v, ok := cols[a]; ok {
				out[a] = v
			}
		}
		return out
	}
	cache.FillCacheFor(ctx, st.LatLng, acds, sd, ed, query)
	return cache.Accessor(st.LatLng, acds, sd, ed)
}
