package centrality

import "testing"

func TestDegreeHubIsMostCentral(t *testing.T) {
	// Star topology: node 1 lends to 2, 3, 4; node 1 is the hub.
	out := Degree([]int{1, 2, 3, 4}, []Edge{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 1, To: 4},
	})
	if out[1] <= out[2] || out[1] <= out[3] || out[1] <= out[4] {
		t.Fatalf("hub centrality=%v not greater than leaves: %+v", out[1], out)
	}
	if out[2] != out[3] || out[3] != out[4] {
		t.Fatalf("leaf nodes should have equal centrality: %+v", out)
	}
}

func TestDegreeSingleNodeIsZero(t *testing.T) {
	out := Degree([]int{1}, nil)
	if out[1] != 0 {
		t.Fatalf("single-node centrality=%v, want 0", out[1])
	}
}

func TestDegreeNormalizedToUnitInterval(t *testing.T) {
	out := Degree([]int{1, 2}, []Edge{{From: 1, To: 2}, {From: 2, To: 1}})
	for id, v := range out {
		if v < 0 || v > 1 {
			t.Fatalf("node %d centrality=%v out of [0,1]", id, v)
		}
	}
}
