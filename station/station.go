// Package station implements the immutable station registry shared by
// every Simulation.
package station

import (
	"sort"
	"strings"

	"github.com/zalf-rpm/agroclimate/geo"
)

// LocationClass classifies the terrain around a station: flat, light
// hills, medium hills, or strong hills. Used to select
// precipitation-correction coefficients.
type LocationClass int

const (
	Flat LocationClass = iota
	LightHills
	MediumHills
	StrongHills
)

func (c LocationClass) String() string {
	switch c {
	case Flat:
		return "flat"
	case LightHills:
		return "lightHills"
	case MediumHills:
		return "mediumHills"
	case StrongHills:
		return "strongHills"
	default:
		return "unknown"
	}
}

// Station is a point climate observation site.
type Station struct {
	ID            int
	Name          string
	DBKey         string // backend row-key used to join backing-store rows to this station
	LatLng        geo.LatLng
	Elevation     float64
	LocationClass LocationClass

	// ReferenceStation, when set, is the full-climate station this
	// (precipitation-only) station borrows its other variables from.
	ReferenceStation *Station
	IsPrecipOnly     bool
}

// DisplayName returns the station's human-facing name, appending the
// reference station's name in parentheses for precipitation-only
// stations.
func (s *Station) DisplayName() string {
	if s.IsPrecipOnly && s.ReferenceStation != nil {
		return s.Name + " (" + s.ReferenceStation.Name + ")"
	}
	return s.Name
}

// Registry is an immutable, ordered list of stations belonging to one
// simulation, unique by id and ordered by display name.
type Registry struct {
	byID    map[int]*Station
	ordered []*Station
}

// NewRegistry builds a Registry from stations, de-duplicating by id (last
// write wins) and sorting by display name.
func NewRegistry(stations []*Station) *Registry {
	r := &Registry{byID: make(map[int]*Station, len(stations))}
	for _, s := range stations {
		r.byID[s.ID] = s
	}
	r.ordered = make([]*Station, 0, len(r.byID))
	for _, s := range r.byID {
		r.ordered = append(r.ordered, s)
	}
	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].DisplayName() < r.ordered[j].DisplayName()
	})
	return r
}

// All returns every station, ordered by display name.
func (r *Registry) All() []*Station {
	out := make([]*Station, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ByID looks up a station by id, returning nil if not found.
func (r *Registry) ByID(id int) *Station {
	return r.byID[id]
}

// ByNameSubstring returns the first station (in display-name order) whose
// display name contains substr, case-insensitively, or nil if none match.
func (r *Registry) ByNameSubstring(substr string) *Station {
	substr = strings.ToLower(substr)
	for _, s := range r.ordered {
		if strings.Contains(strings.ToLower(s.DisplayName()), substr) {
			return s
		}
	}
	return nil
}

// ByCoord returns the station at exactly coord, or nil if none matches.
func (r *Registry) ByCoord(coord geo.LatLng) *Station {
	for _, s := range r.ordered {
		if s.LatLng.Equals(coord) {
			return s
		}
	}
	return nil
}

// Closest returns the station whose LatLng is nearest coord by Euclidean
// distance in the lat-lng plane, or nil if the registry is empty.
func (r *Registry) Closest(coord geo.LatLng) *Station {
	var best *Station
	bestDist := -1.0
	for _, s := range r.ordered {
		d := s.LatLng.DistanceTo(coord)
		if best == nil || d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

// GeoCoords returns the LatLng of every station, in display-name order.
func (r *Registry) GeoCoords() []geo.LatLng {
	out := make([]geo.LatLng, len(r.ordered))
	for i, s := range r.ordered {
		out[i] = s.LatLng
	}
	return out
}
