package regionalize

import (
	"github.com/sirupsen/logrus"
	"github.com/zalf-rpm/agroclimate/geo"
	"github.com/zalf-rpm/agroclimate/raster"
)

// stationSample is one station's contribution to a single cell
// interpolation: its projected location, elevation, and the scalar value
// being interpolated.
type stationSample struct {
	RC        geo.RC
	Elevation float64
	Value     float64
}

// interpolateGrid builds one output Grid the shape of dem, filling every
// non-no-data cell by interpolating samples onto it, following the
// original regionalization's per-cell branch on station count:
//   - 0 stations: the cell stays no-data.
//   - 1 station: the station's raw value is assigned directly, ignoring
//     elevation.
//   - 2 stations: an inverse-distance blend of the two stations' raw
//     values (no elevation regression).
//   - 3+ stations: an elevation regression predicts the cell's baseline
//     value, corrected by an inverse-distance-weighted blend of the
//     stations' regression residuals.
func interpolateGrid(dem *raster.Grid, samples []stationSample, log logrus.FieldLogger) *raster.Grid {
	out := dem.CloneEmpty()
	if len(samples) == 0 {
		return out
	}

	var fit elevationFit
	haveFit := len(samples) >= 3
	if haveFit {
		elevations := make([]float64, len(samples))
		values := make([]float64, len(samples))
		for i, s := range samples {
			elevations[i] = s.Elevation
			values[i] = s.Value
		}
		fit = fitElevation(elevations, values)
		if log != nil {
			log.WithField("r2", fit.R2).Debug("regionalize: elevation regression fit")
		}
	}

	for row := 0; row < dem.Rows; row++ {
		for col := 0; col < dem.Cols; col++ {
			if dem.IsNoData(row, col) {
				continue
			}
			cellElev := dem.At(row, col)
			cellRC := dem.CellCenter(row, col)
			v := interpolateCell(cellRC, cellElev, samples, fit, haveFit)
			out.Set(row, col, v)
		}
	}
	return out
}

// interpolateCell interpolates a single cell's value from samples,
// branching on how many stations contributed: one station assigns its
// value directly, two blend by distance, three or more use the elevation
// regression plus an inverse-distance-weighted residual correction.
func interpolateCell(cellRC geo.RC, cellElev float64, samples []stationSample, fit elevationFit, haveFit bool) float64 {
	switch {
	case len(samples) == 1:
		return samples[0].Value
	case len(samples) == 2:
		return twoStationBlend(cellRC, samples[0], samples[1])
	default:
		return fit.predict(cellElev) + idwResidual(cellRC, samples, fit)
	}
}

// twoStationBlend blends two stations' raw values by inverse distance: the
// nearer station's value gets the larger weight, expressed (as the
// original does) by multiplying each station's value by the OTHER
// station's distance fraction.
func twoStationBlend(cellRC geo.RC, a, b stationSample) float64 {
	da := cellRC.DistanceTo(a.RC)
	db := cellRC.DistanceTo(b.RC)
	if da+db == 0 {
		return (a.Value + b.Value) / 2
	}
	return (db/(da+db))*a.Value + (da/(da+db))*b.Value
}

// idwCoincidentDistance is the distance (in the DEM's projected units,
// which for every coordinate system this module supports are meters)
// below which a station is treated as coincident with the cell and
// excluded from the inverse-distance weighting, since the inverse-square
// weight would otherwise blow up.
const idwCoincidentDistance = 1.0

// idwResidual returns the inverse-distance-weighted blend of samples'
// regression residuals at cellRC, over every station farther than
// idwCoincidentDistance from the cell. A station within that distance is
// excluded from the sum rather than special-cased, so farther stations
// are still blended in; the residual is zero only when every station is
// that close (weightSum stays zero), leaving the cell at its
// regression-only prediction.
func idwResidual(cellRC geo.RC, samples []stationSample, fit elevationFit) float64 {
	var weightSum, valueSum float64
	for _, s := range samples {
		d := cellRC.DistanceTo(s.RC)
		if d <= idwCoincidentDistance {
			continue
		}
		w := 1.0 / (d * d)
		valueSum += w * (s.Value - fit.predict(s.Elevation))
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return valueSum / weightSum
}
