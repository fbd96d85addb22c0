package main

import (
	"math"
	"testing"
)

func TestGaussianBlur2D_PreservesConstantField(t *testing.T) {
	field := make([]float64, 10*10)
	for i := range field {
		field[i] = 3.5
	}
	out := gaussianBlur2D(field, 10, 10, 2.0)
	for i, v := range out {
		if math.Abs(v-3.5) > 1e-9 {
			t.Fatalf("pixel %d: blurred constant field = %v, want 3.5", i, v)
		}
	}
}

func TestGaussianBlur2D_ZeroSigmaIsIdentity(t *testing.T) {
	field := []float64{1, 2, 3, 4}
	out := gaussianBlur2D(field, 2, 2, 0)
	for i := range field {
		if out[i] != field[i] {
			t.Fatalf("index %d: got %v, want %v", i, out[i], field[i])
		}
	}
}

func TestGaussianBlur2D_SkipsNaNNeighbors(t *testing.T) {
	field := []float64{1, math.NaN(), 1, 1, 1, 1, 1, 1, 1}
	out := gaussianBlur2D(field, 3, 3, 1.0)
	for i, v := range out {
		if math.IsNaN(v) {
			t.Fatalf("index %d: expected finite result blending around the NaN neighbor, got NaN", i)
		}
	}
}

func TestSmoothCircularDeg_HandlesWraparound(t *testing.T) {
	// Values straddling the +/-180 boundary should average toward
	// the wraparound point, not toward 0, once converted to unit vectors.
	field := []float64{179, -179, 179, -179}
	out := smoothCircularDeg(field, 2, 2, 1.0)
	for i, v := range out {
		if math.Abs(math.Abs(v)-180) > 5 && math.Abs(v) < 170 {
			t.Errorf("index %d: wraparound average = %v, want near +/-180", i, v)
		}
	}
}
