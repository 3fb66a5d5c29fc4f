package game

import (
	"math/rand"
	"testing"
)

func onEdge(c Coord, size int) bool {
	return c.X == 0 || c.Y == 0 || c.X == size-1 || c.Y == size-1
}

func TestStartingTileNoCollisions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const size = 8

	taken := make(map[Coord]bool)
	for i := range 8 {
		c := StartingTile(size, taken, rng)
		if taken[c] {
			t.Fatalf("player %d placed on taken cell %v", i, c)
		}
		if !onEdge(c, size) {
			t.Errorf("player %d placed off the edge at %v", i, c)
		}
		taken[c] = true
	}
}

func TestStartingTileCenterFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const size = 4

	// Fill every edge cell; only the fallback remains.
	taken := make(map[Coord]bool)
	for x := range size {
		for y := range size {
			if onEdge(Coord{x, y}, size) {
				taken[Coord{x, y}] = true
			}
		}
	}

	c := StartingTile(size, taken, rng)
	if (c != Coord{2, 2}) {
		t.Errorf("fallback = %v, want board center {2 2}", c)
	}
}

func TestPlayerColorCycles(t *testing.T) {
	if PlayerColor(0) != PlayerColor(len(playerColors)) {
		t.Error("palette should wrap around")
	}
	if PlayerColor(0) == PlayerColor(1) {
		t.Error("consecutive players should get distinct colors")
	}
}
