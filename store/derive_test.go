package store

import (
	"math"
	"testing"

	"github.com/zalf-rpm/agroclimate/station"
)

func TestClassifyPrecipitation(t *testing.T) {
	cases := []struct {
		tavg   float64
		month  int
		saxony bool
		want   precipitationType
	}{
		{4.0, 7, false, rainSummer},
		{4.0, 1, false, rainWinter},
		{0, 6, false, mixed},
		{-1, 6, false, snow},
		{-0.5, 6, false, mixed},  // default threshold -0.7: still mixed
		{-0.5, 6, true, snow},    // Saxony threshold -0.4: snow
	}
	for _, c := range cases {
		got := ClassifyPrecipitation(c.tavg, c.month, c.saxony)
		if got != c.want {
			t.Errorf("ClassifyPrecipitation(%g, %d, %v) = %v, want %v", c.tavg, c.month, c.saxony, got, c.want)
		}
	}
}

func TestCorrectPrecipitationZeroStaysZero(t *testing.T) {
	if got := CorrectPrecipitation(0, 10, 7, station.Flat, false); got != 0 {
		t.Errorf("CorrectPrecipitation(0, ...) = %g, want 0", got)
	}
}

func TestCorrectPrecipitationIncreasesValue(t *testing.T) {
	got := CorrectPrecipitation(10, 10, 7, station.Flat, false)
	if got <= 10 {
		t.Errorf("CorrectPrecipitation(10, ...) = %g, want > 10", got)
	}
}

func TestStarGlobalRadiation(t *testing.T) {
	if got, want := StarGlobalRadiation(500), 5.0; got != want {
		t.Errorf("StarGlobalRadiation(500) = %g, want %g", got, want)
	}
}

func TestSunshineToGlobalRadiationNonNegative(t *testing.T) {
	g := SunshineToGlobalRadiation(180, 8, 52.5)
	if g <= 0 || math.IsNaN(g) {
		t.Errorf("SunshineToGlobalRadiation = %g, want positive finite value", g)
	}
}

func TestWindSpeedConversion(t *testing.T) {
	got := WindSpeedMetersPerSecond(36)
	if math.Abs(got-10) > 1e-9 {
		t.Errorf("WindSpeedMetersPerSecond(36) = %g, want 10", got)
	}
}
