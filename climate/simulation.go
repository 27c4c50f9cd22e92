package climate

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zalf-rpm/agroclimate/station"
	"github.com/zalf-rpm/agroclimate/store"
)

// StationLoader loads a simulation's station network on first use. It is
// called at most once per Simulation, guarded by a sync.Once so concurrent
// first-access callers block on a single load rather than racing.
type StationLoader func() ([]*station.Station, error)

// YearRange is the inclusive span of calendar years a simulation's
// backing store actually holds data for.
type YearRange struct {
	From, To int
}

// Contains reports whether [sd, ed] falls entirely within yr. A zero-value
// YearRange (no loader configured) is treated as unconstrained.
func (yr YearRange) Contains(sd, ed time.Time) bool {
	if yr.From == 0 && yr.To == 0 {
		return true
	}
	from := time.Date(yr.From, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(yr.To, time.December, 31, 0, 0, 0, 0, time.UTC)
	return !sd.Before(from) && !ed.After(to)
}

// YearRangeLoader computes a simulation's available year range, typically
// by querying the min/max year at the first realization's first station
// and snapping to whole years. Called at most once per Simulation.
type YearRangeLoader func() YearRange

// Simulation is the root of one climate product's data tree: it owns a
// station network, a backing-store adapter, and the scenarios beneath it.
// Scenarios and Realizations hold only a non-owning back-reference to
// their Simulation; Simulation is the single point of ownership for
// everything reachable from it, arena-style.
type Simulation struct {
	ID   int
	Name string

	// Source is the backing-store adapter this simulation's realizations
	// query through.
	Source store.RowSource
	Log    logrus.FieldLogger

	loadStations StationLoader
	stationsOnce sync.Once
	stations     *station.Registry

	cacheOnce sync.Once
	cache     *Cache

	// YearRangeLoader computes the available year range on first access,
	// guarded by yearRangeOnce, mirroring the station-loading pattern.
	YearRangeLoader YearRangeLoader
	yearRangeOnce   sync.Once
	yearRange       YearRange

	// DefaultScenarioName names the scenario DefaultScenario() falls back
	// to for products without a single obviously-preferred one.
	DefaultScenarioName string

	// SaxonyPrecipCorrection selects the Saxony precipitation-correction
	// threshold variant in this simulation's derived-ACD table.
	SaxonyPrecipCorrection bool

	mu        sync.Mutex
	scenarios []*Scenario
}

// NewSimulation returns a Simulation with no scenarios yet. loadStations
// may be nil, in which case Stations returns an empty registry.
func NewSimulation(id int, name string, source store.RowSource, loadStations StationLoader) *Simulation {
	return &Simulation{ID: id, Name: name, Source: source, loadStations: loadStations}
}

// AvailableYearRange returns the simulation's available year range,
// computing it once via YearRangeLoader if set. A Simulation with no
// loader is treated as unconstrained.
func (s *Simulation) AvailableYearRange() YearRange {
	s.yearRangeOnce.Do(func() {
		if s.YearRangeLoader != nil {
			s.yearRange = s.YearRangeLoader()
		}
	})
	return s.yearRange
}

// Stations returns the simulation's station network, loading it on first
// access.
func (s *Simulation) Stations() *station.Registry {
	s.stationsOnce.Do(func() {
		var stations []*station.Station
		if s.loadStations != nil {
			loaded, err := s.loadStations()
			if err != nil {
				if s.Log != nil {
					s.Log.WithError(err).WithField("simulation", s.Name).Warn("climate: station network failed to load")
				}
			} else {
				stations = loaded
			}
		}
		s.stations = station.NewRegistry(stations)
	})
	return s.stations
}

// Cache returns the simulation's per-realization data cache, creating it
// on first access.
func (s *Simulation) Cache() *Cache {
	s.cacheOnce.Do(func() {
		s.cache = NewCache()
		s.cache.Log = s.Log
	})
	return s.cache
}

// AddScenario attaches sc to this simulation.
func (s *Simulation) AddScenario(sc *Scenario) {
	sc.sim = s
	s.mu.Lock()
	s.scenarios = append(s.scenarios, sc)
	s.mu.Unlock()
}

// Scenarios returns every scenario owned by this simulation.
func (s *Simulation) Scenarios() []*Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Scenario, len(s.scenarios))
	copy(out, s.scenarios)
	return out
}

// ScenarioByName returns the scenario with the given name, or nil.
func (s *Simulation) ScenarioByName(name string) *Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.scenarios {
		if sc.Name == name {
			return sc
		}
	}
	return nil
}

// DefaultScenario returns the scenario named by DefaultScenarioName, if
// set and present; otherwise the last scenario in attachment order.
func (s *Simulation) DefaultScenario() *Scenario {
	if s.DefaultScenarioName != "" {
		if sc := s.ScenarioByName(s.DefaultScenarioName); sc != nil {
			return sc
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenarios) == 0 {
		return nil
	}
	return s.scenarios[len(s.scenarios)-1]
}
