package geo

import (
	"math"
	"testing"

	"github.com/tourloop/planner/internal/model"
)

func TestHaversineM_SamePoint(t *testing.T) {
	loc := model.Location{Lat: 28.7041, Lon: 77.1025}
	got := HaversineM(loc, loc)
	if got != 0 {
		t.Errorf("HaversineM(same point) = %v, want 0", got)
	}
}

func TestHaversineM_Symmetric(t *testing.T) {
	a := model.Location{Lat: 10.80, Lon: 106.77}
	b := model.Location{Lat: 10.81, Lon: 106.78}
	if HaversineM(a, b) != HaversineM(b, a) {
		t.Errorf("HaversineM is not symmetric")
	}
}

func TestHaversineM_KnownDistance(t *testing.T) {
	connaught := model.Location{Lat: 28.6315, Lon: 77.2167}
	igi := model.Location{Lat: 28.5562, Lon: 77.0889}
	got := HaversineM(connaught, igi) / 1000.0
	wantMin, wantMax := 14.0, 20.0
	if got < wantMin || got > wantMax {
		t.Errorf("HaversineM(Connaught→IGI) = %.2f km, want between %.1f and %.1f", got, wantMin, wantMax)
	}
}

func TestBearing_Cardinal(t *testing.T) {
	origin := model.Location{Lat: 10.80, Lon: 106.77}
	north := model.Location{Lat: 10.81, Lon: 106.77}
	east := model.Location{Lat: 10.80, Lon: 106.78}

	if b := Bearing(origin, north); math.Abs(b-0) > 1 {
		t.Errorf("bearing to due north = %.2f, want ~0", b)
	}
	if b := Bearing(origin, east); math.Abs(b-90) > 2 {
		t.Errorf("bearing to due east = %.2f, want ~90", b)
	}
}

func TestBearing_Range(t *testing.T) {
	a := model.Location{Lat: 1, Lon: 1}
	b := model.Location{Lat: -1, Lon: -1}
	got := Bearing(a, b)
	if got < 0 || got >= 360 {
		t.Errorf("Bearing = %v, want in [0, 360)", got)
	}
}

func TestBearingDiff_Range(t *testing.T) {
	cases := [][2]float64{{10, 350}, {0, 180}, {200, 10}, {90, 95}}
	for _, c := range cases {
		d := BearingDiff(c[0], c[1])
		if d < 0 || d > 180 {
			t.Errorf("BearingDiff(%v, %v) = %v, want in [0,180]", c[0], c[1], d)
		}
	}
	if got := BearingDiff(10, 350); math.Abs(got-20) > 1e-9 {
		t.Errorf("BearingDiff(10, 350) = %v, want 20", got)
	}
}

func TestZigzagScore_PeakAtZero(t *testing.T) {
	if got := ZigzagScore(45, 45); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("ZigzagScore(same bearing) = %v, want 1", got)
	}
	if got := ZigzagScore(0, 180); math.Abs(got-0.0) > 1e-9 {
		t.Errorf("ZigzagScore(opposite bearing) = %v, want 0", got)
	}
}

func TestCircularScore_PeakAtNinety(t *testing.T) {
	if got := CircularScore(0, 90); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CircularScore(90 deg turn) = %v, want 1", got)
	}
	if got := CircularScore(0, 0); math.Abs(got-0.0) > 1e-9 {
		t.Errorf("CircularScore(0 deg turn) = %v, want 0", got)
	}
	if got := CircularScore(0, 180); math.Abs(got-0.0) > 1e-9 {
		t.Errorf("CircularScore(180 deg turn) = %v, want 0", got)
	}
}

func TestTravelTimeMinutes(t *testing.T) {
	got := TravelTimeMinutes(16_000, 30.0)
	if got < 25 || got > 40 {
		t.Errorf("TravelTimeMinutes = %.1f, expected ~30-35 min", got)
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-1) != 0 {
		t.Errorf("Clamp01(-1) != 0")
	}
	if Clamp01(2) != 1 {
		t.Errorf("Clamp01(2) != 1")
	}
	if Clamp01(0.5) != 0.5 {
		t.Errorf("Clamp01(0.5) != 0.5")
	}
}
