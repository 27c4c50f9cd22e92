package station

import (
	"testing"

	"github.com/zalf-rpm/agroclimate/geo"
)

func newTestRegistry() *Registry {
	return NewRegistry([]*Station{
		{ID: 1, Name: "Müncheberg", LatLng: geo.LatLng{Lat: 52.5, Lng: 14.1}, Elevation: 62},
		{ID: 2, Name: "Berlin", LatLng: geo.LatLng{Lat: 52.52, Lng: 13.4}, Elevation: 34},
		{ID: 3, Name: "Dresden", LatLng: geo.LatLng{Lat: 51.05, Lng: 13.74}, Elevation: 113},
	})
}

func TestByNameSubstringCaseInsensitive(t *testing.T) {
	r := newTestRegistry()
	s := r.ByNameSubstring("münch")
	if s == nil || s.Name != "Müncheberg" {
		t.Fatalf("expected Müncheberg, got %v", s)
	}
}

func TestClosest(t *testing.T) {
	r := newTestRegistry()
	s := r.Closest(geo.LatLng{Lat: 52.53, Lng: 13.39})
	if s == nil || s.Name != "Berlin" {
		t.Fatalf("expected Berlin, got %v", s)
	}
}

func TestDisplayNameReferenceSuffix(t *testing.T) {
	full := &Station{Name: "Dresden"}
	precip := &Station{Name: "Dresden-Precip", IsPrecipOnly: true, ReferenceStation: full}
	if got, want := precip.DisplayName(), "Dresden-Precip (Dresden)"; got != want {
		t.Errorf("DisplayName() = %q, want %q", got, want)
	}
}

func TestRegistryUniqueByID(t *testing.T) {
	r := NewRegistry([]*Station{
		{ID: 1, Name: "A"},
		{ID: 1, Name: "A-duplicate"},
	})
	if len(r.All()) != 1 {
		t.Fatalf("expected dedup by id, got %d stations", len(r.All()))
	}
}
