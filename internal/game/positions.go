package game

import "math/rand"

// playerColors is cycled through in join order.
var playerColors = []string{
	"#3B82F6", // blue
	"#EF4444", // red
	"#10B981", // green
	"#F59E0B", // yellow
	"#8B5CF6", // violet
	"#EC4899", // pink
	"#06B6D4", // cyan
	"#F97316", // orange
}

func PlayerColor(joinIndex int) string {
	return playerColors[joinIndex%len(playerColors)]
}

const maxPlacementAttempts = 50

// StartingTile picks an edge cell for a joining player's first tile. It
// tries random cells on random edges, rejecting any cell in taken, and
// falls back to the board center once the attempt budget is spent. The
// caller records the result in taken before placing the next player.
func StartingTile(size int, taken map[Coord]bool, rng *rand.Rand) Coord {
	for range maxPlacementAttempts {
		var c Coord
		switch rng.Intn(4) {
		case 0: // top
			c = Coord{rng.Intn(size), 0}
		case 1: // right
			c = Coord{size - 1, rng.Intn(size)}
		case 2: // bottom
			c = Coord{rng.Intn(size), size - 1}
		case 3: // left
			c = Coord{0, rng.Intn(size)}
		}
		if !taken[c] {
			return c
		}
	}
	return Coord{size / 2, size / 2}
}
