package climate

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zalf-rpm/agroclimate/station"
	"github.com/zalf-rpm/agroclimate/store"
)

// wettReg2006CorruptStationIDs are station ids the WettReg-2006 product's
// source error table flags as unreliable; they are excluded from that
// product's station network regardless of what the config's own
// exclusion list says.
var wettReg2006CorruptStationIDs = []int{283, 385, 1120, 1623, 1861}

// ProductConfig describes one climate product (clm20, star, star2,
// wettreg2006, wettreg2010, remo, ...) available to the registry.
type ProductConfig struct {
	ID      int
	Name    string
	Enabled bool

	// Source is the backing-store adapter this product's realizations
	// query through.
	Source store.RowSource

	// StationShapefile, if non-empty, loads the station network from a
	// point shapefile instead of the backing store.
	StationShapefile string
	ShapefileColumns station.ShapefileColumns

	// ExcludedStationIDs removes specific stations regardless of what the
	// loader returns, e.g. ids the product's error table flags.
	ExcludedStationIDs []int

	DefaultScenario  string
	UsedRealizations []string

	// SaxonyPrecipCorrection selects the Saxony precipitation-correction
	// threshold variant for this product's derived-ACD table.
	SaxonyPrecipCorrection bool

	// YearRangeLoader computes this product's available year range on
	// first access; nil means unconstrained.
	YearRangeLoader YearRangeLoader

	Scenarios []ScenarioConfig
}

// ScenarioConfig describes one scenario and its realizations within a
// ProductConfig.
type ScenarioConfig struct {
	ID            int
	Name          string
	Realizations  []RealizationConfig
}

// RealizationConfig describes one realization within a ScenarioConfig.
type RealizationConfig struct {
	ID   int
	Name string
}

// Registry is the simulation registry: the set of configured, enabled
// climate products, built lazily on first access so that a process which
// never queries climate data never pays the station-loading cost.
type Registry struct {
	Log logrus.FieldLogger

	configs []ProductConfig

	once        sync.Once
	simulations []*Simulation
	byID        map[int]*Simulation
	byName      map[string]*Simulation
}

// NewRegistry returns a Registry over configs. Construction does no I/O;
// simulations are built (and their station networks loaded) lazily.
func NewRegistry(configs []ProductConfig, log logrus.FieldLogger) *Registry {
	return &Registry{configs: configs, Log: log}
}

func (reg *Registry) init() {
	reg.once.Do(func() {
		reg.byID = make(map[int]*Simulation)
		reg.byName = make(map[string]*Simulation)
		for _, cfg := range reg.configs {
			if !cfg.Enabled {
				continue
			}
			sim := NewSimulation(cfg.ID, cfg.Name, cfg.Source, reg.stationLoaderFor(cfg))
			sim.Log = reg.Log
			sim.DefaultScenarioName = cfg.DefaultScenario
			sim.YearRangeLoader = cfg.YearRangeLoader
			sim.SaxonyPrecipCorrection = cfg.SaxonyPrecipCorrection
			for _, scCfg := range cfg.Scenarios {
				sc := NewScenario(scCfg.ID, scCfg.Name)
				for _, rCfg := range scCfg.Realizations {
					sc.AddRealization(NewRealization(rCfg.ID, rCfg.Name))
				}
				sim.AddScenario(sc)
			}
			reg.simulations = append(reg.simulations, sim)
			reg.byID[cfg.ID] = sim
			reg.byName[cfg.Name] = sim
		}
	})
}

// stationLoaderFor builds the StationLoader for one product: load from its
// shapefile (if configured), then drop any station the product's own
// exclusion list names, plus — for wettreg2006 specifically — the five
// stations its source error table has always flagged as corrupt.
func (reg *Registry) stationLoaderFor(cfg ProductConfig) StationLoader {
	return func() ([]*station.Station, error) {
		if cfg.StationShapefile == "" {
			return nil, nil
		}
		stations, err := station.LoadShapefile(cfg.StationShapefile, cfg.ShapefileColumns)
		if err != nil {
			return nil, err
		}
		excluded := make(map[int]bool, len(cfg.ExcludedStationIDs))
		for _, id := range cfg.ExcludedStationIDs {
			excluded[id] = true
		}
		if cfg.Name == "wettreg2006" {
			for _, id := range wettReg2006CorruptStationIDs {
				excluded[id] = true
			}
		}
		filtered := stations[:0]
		for _, st := range stations {
			if excluded[st.ID] {
				continue
			}
			filtered = append(filtered, st)
		}
		return filtered, nil
	}
}

// All returns every enabled simulation.
func (reg *Registry) All() []*Simulation {
	reg.init()
	out := make([]*Simulation, len(reg.simulations))
	copy(out, reg.simulations)
	return out
}

// ByID returns the simulation with the given id, or nil.
func (reg *Registry) ByID(id int) *Simulation {
	reg.init()
	return reg.byID[id]
}

// ByName returns the simulation with the given name, or nil.
func (reg *Registry) ByName(name string) *Simulation {
	reg.init()
	return reg.byName[name]
}

// Default returns the first enabled simulation in config order, or nil if
// none are enabled.
func (reg *Registry) Default() *Simulation {
	reg.init()
	if len(reg.simulations) == 0 {
		return nil
	}
	return reg.simulations[0]
}
