package regionalize

import (
	"context"
	"testing"

	"github.com/zalf-rpm/agroclimate/geo"
	"github.com/zalf-rpm/agroclimate/raster"
)

func buildTestGrid(t *testing.T) *raster.Grid {
	t.Helper()
	g, err := raster.New(4, 4, 1, 0, 0, -9999, geo.UTM32N)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			g.Set(row, col, float64(row*4+col))
		}
	}
	return g
}

func baseKey(extent geo.RcRect) resultKey {
	return resultKey{
		extent: extent, cellSize: 1, cs: geo.UTM32N,
		simID: 1, scenarioID: 1, realizationID: 1,
		acdLabel: "tmin", reducerID: "mean", resultID: "tmin-mean", year: 2000,
	}
}

// TestResultCacheServesSubRectangleWithoutRecompute verifies that a
// request whose extent is a strict sub-rectangle of an already-cached
// extent (same cell size and coordinate system) is served by
// sub-grid-cloning the cached grid instead of invoking compute again.
func TestResultCacheServesSubRectangleWithoutRecompute(t *testing.T) {
	c := newResultCache(8)
	ctx := context.Background()

	big := buildTestGrid(t)
	bigKey := baseKey(big.Extent())

	computeCalls := 0
	g1, err := c.get(ctx, bigKey, "", false, func() (*raster.Grid, error) {
		computeCalls++
		return big, nil
	})
	if err != nil {
		t.Fatalf("get (full extent): %v", err)
	}
	if computeCalls != 1 {
		t.Fatalf("computeCalls = %d, want 1", computeCalls)
	}
	if g1 != big {
		t.Fatal("expected the first get to return the computed grid")
	}

	// Top-left 2x2 quadrant: R in [0,2], H in [2,4].
	subExtent := geo.NewRcRect(geo.RC{R: 0, H: 4}, geo.RC{R: 2, H: 2})
	subKey := baseKey(subExtent)

	g2, err := c.get(ctx, subKey, "", false, func() (*raster.Grid, error) {
		computeCalls++
		t.Fatal("compute should not run for a cached sub-rectangle")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("get (sub extent): %v", err)
	}
	if computeCalls != 1 {
		t.Fatalf("computeCalls = %d after sub-rectangle request, want 1 (no recompute)", computeCalls)
	}
	if g2.Rows != 2 || g2.Cols != 2 {
		t.Fatalf("sub grid shape = %dx%d, want 2x2", g2.Rows, g2.Cols)
	}
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			want := big.At(row, col)
			got := g2.At(row, col)
			if got != want {
				t.Fatalf("sub grid (%d,%d) = %g, want %g", row, col, got, want)
			}
		}
	}
}

// TestResultCacheRecomputesForDisjointExtent verifies that an extent not
// contained in any cached extent for the same series still computes.
func TestResultCacheRecomputesForDisjointExtent(t *testing.T) {
	c := newResultCache(8)
	ctx := context.Background()

	g1, err := raster.New(2, 2, 1, 0, 0, -9999, geo.UTM32N)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	key1 := baseKey(g1.Extent())
	computeCalls := 0
	if _, err := c.get(ctx, key1, "", false, func() (*raster.Grid, error) {
		computeCalls++
		return g1, nil
	}); err != nil {
		t.Fatalf("get (first extent): %v", err)
	}

	g2, err := raster.New(2, 2, 1, 10, 10, -9999, geo.UTM32N)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	key2 := baseKey(g2.Extent())
	if _, err := c.get(ctx, key2, "", false, func() (*raster.Grid, error) {
		computeCalls++
		return g2, nil
	}); err != nil {
		t.Fatalf("get (disjoint extent): %v", err)
	}
	if computeCalls != 2 {
		t.Fatalf("computeCalls = %d, want 2 (disjoint extents must not be reused)", computeCalls)
	}
}
