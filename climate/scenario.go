package climate

import "sync"

// Scenario is one emissions/forcing pathway within a Simulation (e.g. a
// climate-model RCP or a historical run), owning the Realizations beneath
// it. It holds only a non-owning back-reference to its Simulation.
type Scenario struct {
	ID   int
	Name string

	sim *Simulation

	mu           sync.Mutex
	realizations []*Realization
}

// NewScenario returns a Scenario not yet attached to a Simulation; use
// Simulation.AddScenario to attach it.
func NewScenario(id int, name string) *Scenario {
	return &Scenario{ID: id, Name: name}
}

// Simulation returns the scenario's owning simulation.
func (sc *Scenario) Simulation() *Simulation { return sc.sim }

// AddRealization attaches r to this scenario.
func (sc *Scenario) AddRealization(r *Realization) {
	r.scenario = sc
	sc.mu.Lock()
	sc.realizations = append(sc.realizations, r)
	sc.mu.Unlock()
}

// Realizations returns every realization owned by this scenario.
func (sc *Scenario) Realizations() []*Realization {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]*Realization, len(sc.realizations))
	copy(out, sc.realizations)
	return out
}

// RealizationByName returns the realization with the given name, or nil.
func (sc *Scenario) RealizationByName(name string) *Realization {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, r := range sc.realizations {
		if r.Name == name {
			return r
		}
	}
	return nil
}
