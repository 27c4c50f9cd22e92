package store

import (
	"math"

	"github.com/ctessum/unit"
	"github.com/zalf-rpm/agroclimate/acd"
	"github.com/zalf-rpm/agroclimate/station"
)

// RowFunc derives one ACD's value for a single day from the other raw
// values already read for that day: one column parsed or reconstructed
// from whichever other columns a given product actually carries.
type RowFunc func(raw map[string]float64) float64

// precipitationType classifies a day's precipitation as rain (summer or
// winter), mixed, or snow.
type precipitationType int

const (
	rainSummer precipitationType = iota
	rainWinter
	mixed
	snow
)

// ClassifyPrecipitation returns the precipitation type for a day with mean
// temperature tavg (°C) in month (1-12). saxony selects the Saxony
// classification variant, whose mixed/snow threshold is -0.4°C instead of
// the default -0.7°C.
func ClassifyPrecipitation(tavg float64, month int, saxony bool) precipitationType {
	mixedThreshold := -0.7
	if saxony {
		mixedThreshold = -0.4
	}
	switch {
	case tavg > 3.0:
		if month >= 4 && month <= 9 {
			return rainSummer
		}
		return rainWinter
	case tavg >= mixedThreshold:
		return mixed
	default:
		return snow
	}
}

// bCoeff and epsilonCoeff are the precipitation-correction coefficients
// for P' = P + b*P^epsilon, keyed by location class and precipitation
// type.
var bCoeff = map[station.LocationClass]map[precipitationType]float64{
	station.Flat: {
		rainSummer: 0.345, rainWinter: 0.34, mixed: 0.535, snow: 0.72,
	},
	station.LightHills: {
		rainSummer: 0.31, rainWinter: 0.28, mixed: 0.39, snow: 0.51,
	},
	station.MediumHills: {
		rainSummer: 0.28, rainWinter: 0.24, mixed: 0.305, snow: 0.33,
	},
	station.StrongHills: {
		rainSummer: 0.245, rainWinter: 0.19, mixed: 0.185, snow: 0.21,
	},
}

var epsilonCoeff = map[precipitationType]float64{
	rainSummer: 0.38,
	rainWinter: 0.46,
	mixed:      0.55,
	snow:       0.82,
}

// CorrectPrecipitation applies the location-class precipitation
// correction P' = P + b*P^epsilon to a single day's observed
// precipitation p [mm].
func CorrectPrecipitation(p, tavg float64, month int, class station.LocationClass, saxony bool) float64 {
	if p <= 0 {
		return p
	}
	pt := ClassifyPrecipitation(tavg, month, saxony)
	b := bCoeff[class][pt]
	e := epsilonCoeff[pt]
	return p + b*math.Pow(p, e)
}

// SunshineToGlobalRadiation reconstructs daily global radiation
// [MJ/m²/d] from sunshine duration using the Angstrom-Prescott relation.
// dayOfYear is 1-366, sunHours is the day's measured sunshine duration in
// hours, latDeg is the station latitude in degrees.
func SunshineToGlobalRadiation(dayOfYear int, sunHours, latDeg float64) float64 {
	lat := latDeg * math.Pi / 180
	decl := 0.4093 * math.Sin(2*math.Pi*float64(dayOfYear)/365-1.39)
	ws := math.Acos(clamp(-math.Tan(lat)*math.Tan(decl), -1, 1))
	// extraterrestrial daily radiation [MJ/m²/d], solar constant 37.6 MJ/m²/d.
	dr := 1 + 0.033*math.Cos(2*math.Pi*float64(dayOfYear)/365)
	ra := (24 * 60 / math.Pi) * 0.0820 * dr *
		(ws*math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Sin(ws))
	daylightHours := 24 / math.Pi * ws
	if daylightHours <= 0 {
		return 0
	}
	// Angstrom-Prescott coefficients a=0.25, b=0.5.
	return ra * (0.25 + 0.5*clamp(sunHours/daylightHours, 0, 1))
}

// CloudAmountToGlobalRadiation reconstructs daily global radiation
// [MJ/m²/d] from cloud amount, for products (REMO) that only carry cloud
// cover rather than sunshine duration. cloudEighths is cloud cover in
// eighths (okta, 0-8); elevation is station elevation in meters, used for
// the clear-sky atmospheric transmissivity correction.
func CloudAmountToGlobalRadiation(dayOfYear int, cloudEighths, latDeg, elevation float64) float64 {
	lat := latDeg * math.Pi / 180
	decl := 0.4093 * math.Sin(2*math.Pi*float64(dayOfYear)/365-1.39)
	ws := math.Acos(clamp(-math.Tan(lat)*math.Tan(decl), -1, 1))
	dr := 1 + 0.033*math.Cos(2*math.Pi*float64(dayOfYear)/365)
	ra := (24 * 60 / math.Pi) * 0.0820 * dr *
		(ws*math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Sin(ws))
	clearSky := (0.75 + 2e-5*elevation) * ra
	cloudFraction := clamp(cloudEighths/8, 0, 1)
	return clearSky * (1 - 0.75*math.Pow(cloudFraction, 3))
}

// StarGlobalRadiation converts the STAR product's native global-radiation
// column, stored as J/cm², to MJ/m²/d.
func StarGlobalRadiation(jPerCm2 float64) float64 {
	return jPerCm2 / 100.0
}

// WindSpeedMetersPerSecond converts a wind speed observation from
// kilometers per hour to meters per second. The conversion itself runs
// through github.com/ctessum/unit: a kilometer and an hour are each built
// as SI-valued Units, divided to get one km/h as a speed Unit, then
// multiplied by the dimensionless reading to get a properly dimensioned
// speed, which is unwrapped back to a plain float64 for the accessor
// arrays downstream.
func WindSpeedMetersPerSecond(kmh float64) float64 {
	km := unit.New(1000, unit.Meter)
	hour := unit.New(3600, unit.Second)
	kmPerHour := unit.Div(km, hour)
	reading := unit.New(kmh, unit.Dimless)
	return unit.Mul(reading, kmPerHour).Value()
}

// DerivedACD pairs a RowFunc with the raw ACDs it reads from that same
// day's other columns, so a caller building a backing-store query can
// fetch enough raw columns to compute the derived one even when only the
// derived ACD itself was asked for.
type DerivedACD struct {
	Inputs acd.Set
	Fn     RowFunc
}

// ACDFuncs is the per-product table of ACD -> derivation this module's
// realization adapters wire up between a backing-store query and the
// per-location cache: the set of ACDs a product's store doesn't report
// directly but this package reconstructs from whichever raw columns that
// product does carry.
type ACDFuncs map[acd.ACD]DerivedACD

// DeriveFuncsFor returns the derivation table for one climate product
// queried at a station with the given locationClass and latitude.
// saxony selects the Saxony precipitation-correction threshold variant.
// Global radiation is reconstructed differently per product: star/star2
// carry it already in J/cm² and only need unit conversion, remo carries
// cloud amount instead of sunshine duration, wettreg2006/wettreg2010
// carry sunshine duration, and products not named here (the CLM family)
// already report global radiation directly and get no Globrad entry.
func DeriveFuncsFor(product string, locationClass station.LocationClass, latDeg float64, saxony bool) ACDFuncs {
	funcs := ACDFuncs{
		acd.Precip: {
			Inputs: acd.NewSet(acd.PrecipOrig, acd.Tavg, acd.Month),
			Fn: func(raw map[string]float64) float64 {
				return CorrectPrecipitation(raw[acd.PrecipOrig.String()], raw[acd.Tavg.String()], int(raw[acd.Month.String()]), locationClass, saxony)
			},
		},
		acd.Wind: {
			Inputs: acd.NewSet(acd.Wind),
			Fn: func(raw map[string]float64) float64 {
				return WindSpeedMetersPerSecond(raw[acd.Wind.String()])
			},
		},
	}
	switch product {
	case "star", "star2":
		funcs[acd.Globrad] = DerivedACD{
			Inputs: acd.NewSet(acd.Globrad),
			Fn: func(raw map[string]float64) float64 {
				return StarGlobalRadiation(raw[acd.Globrad.String()])
			},
		}
	case "remo":
		funcs[acd.Globrad] = DerivedACD{
			Inputs: acd.NewSet(acd.Day, acd.CloudAmount),
			Fn: func(raw map[string]float64) float64 {
				return CloudAmountToGlobalRadiation(int(raw[acd.Day.String()]), raw[acd.CloudAmount.String()], latDeg, raw["elevation"])
			},
		}
	case "wettreg2006", "wettreg2010":
		funcs[acd.Globrad] = DerivedACD{
			Inputs: acd.NewSet(acd.Day, acd.Sunhours),
			Fn: func(raw map[string]float64) float64 {
				return SunshineToGlobalRadiation(int(raw[acd.Day.String()]), raw[acd.Sunhours.String()], latDeg)
			},
		}
	}
	return funcs
}

// RequiredInputs returns the union of acds and every raw ACD funcs needs
// to derive whichever of acds it covers, so a backing-store query can be
// expanded to fetch those raw columns alongside the ones actually
// requested.
func (funcs ACDFuncs) RequiredInputs(acds acd.Set) acd.Set {
	all := append(acd.Set{}, acds...)
	for _, a := range acds {
		if d, ok := funcs[a]; ok {
			all = append(all, d.Inputs...)
		}
	}
	return acd.NewSet(all...)
}

// Apply derives every ACD funcs covers from cols, folding elevation into
// each day's raw lookup under the "elevation" key. An ACD funcs has no
// entry for passes through unchanged; a covered ACD whose Inputs aren't
// all present in cols is left untouched rather than computed from a
// partial row.
func (funcs ACDFuncs) Apply(cols Columns, elevation float64) Columns {
	if len(funcs) == 0 || len(cols) == 0 {
		return cols
	}
	n := 0
	for _, v := range cols {
		n = len(v)
		break
	}
	out := make(Columns, len(cols))
	for a, v := range cols {
		out[a] = v
	}
	for a, d := range funcs {
		ready := true
		for _, in := range d.Inputs {
			if _, ok := cols[in]; !ok {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		derived := make([]float64, n)
		for i := 0; i < n; i++ {
			raw := make(map[string]float64, len(d.Inputs)+1)
			for _, in := range d.Inputs {
				raw[in.String()] = cols[in][i]
			}
			raw["elevation"] = elevation
			derived[i] = d.Fn(raw)
		}
		out[a] = derived
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
