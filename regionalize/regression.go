package regionalize

import "gonum.org/v1/gonum/stat"

// elevationFit is a station-elevation linear regression value = m*elev + n,
// together with its residuals per input station and its R².
type elevationFit struct {
	M, N      float64
	R2        float64
	residuals []float64
}

// fitElevation regresses values on elevations (value = m*elevation + n)
// using ordinary least squares, returning the fit and each station's
// residual (observed - predicted). R² is diagnostic only: interpolateGrid
// logs it but no grid value depends on it.
func fitElevation(elevations, values []float64) elevationFit {
	n, m := stat.LinearRegression(elevations, values, nil, false)
	r2 := stat.RSquared(elevations, values, nil, n, m)
	residuals := make([]float64, len(values))
	for i, elev := range elevations {
		predicted := m*elev + n
		residuals[i] = values[i] - predicted
	}
	return elevationFit{M: m, N: n, R2: r2, residuals: residuals}
}

// predict returns the regression's fitted value at elevation.
func (f elevationFit) predict(elevation float64) float64 {
	return f.M*elevation + f.N
}
