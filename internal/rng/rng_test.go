package rng

import "testing"

func TestDeterministicReplay(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 50; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d diverged: %v != %v", i, x, y)
		}
	}
}

func TestBernoulliBounds(t *testing.T) {
	s := New(1)
	if s.Bernoulli(0) {
		t.Fatalf("Bernoulli(0) returned true, want always false")
	}
	if !s.Bernoulli(1) {
		t.Fatalf("Bernoulli(1) returned false, want always true")
	}
}

func TestUniformRange(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		v := s.Uniform(-0.03, 0.03)
		if v < -0.03 || v >= 0.03 {
			t.Fatalf("Uniform(-0.03, 0.03) produced %v out of range", v)
		}
	}
}

func TestJitterStaysWithinPercent(t *testing.T) {
	s := New(3)
	for i := 0; i < 200; i++ {
		v := s.Jitter(100, 0.2)
		if v < 80 || v > 120 {
			t.Fatalf("Jitter(100, 0.2) produced %v, want [80, 120]", v)
		}
	}
}
