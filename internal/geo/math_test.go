package geo

import (
	"math"
	"testing"
)

func TestLonLatToUnit_Center(t *testing.T) {
	x, y := LonLatToUnit(0, 0)
	if math.Abs(x-0.5) > 1e-9 || math.Abs(y-0.5) > 1e-9 {
		t.Errorf("expected (0.5, 0.5), got (%f, %f)", x, y)
	}
}

func TestLonLatToUnit_Edges(t *testing.T) {
	x, _ := LonLatToUnit(-180, 0)
	if math.Abs(x) > 1e-9 {
		t.Errorf("expected x=0 at lon -180, got %f", x)
	}

	x, _ = LonLatToUnit(180, 0)
	if math.Abs(x-1) > 1e-9 {
		t.Errorf("expected x=1 at lon 180, got %f", x)
	}
}

func TestLonLatToUnit_YGrowsDownward(t *testing.T) {
	_, north := LonLatToUnit(0, 60)
	_, south := LonLatToUnit(0, -60)
	if north >= south {
		t.Errorf("north (%f) should map above south (%f)", north, south)
	}
}

func TestLonLatToUnit_Clamp(t *testing.T) {
	_, y := LonLatToUnit(0, 90)
	if math.IsInf(y, 0) || math.IsNaN(y) {
		t.Fatalf("pole must clamp, got %f", y)
	}

	_, clamped := LonLatToUnit(0, MaxLat)
	if math.Abs(y-clamped) > 1e-9 {
		t.Errorf("lat 90 should clamp to MaxLat projection: %f vs %f", y, clamped)
	}
}
