// Package game holds the pure rules of the grid-conquest quiz game:
// board adjacency, starting-tile placement, join codes, and question
// selection. Nothing here touches the network or the database.
package game

// Coord addresses a tile on the board. Valid coordinates are in [0, Size).
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Board is a snapshot of tile ownership for one game. Only claimed tiles
// appear in Owners; absence means the tile is unowned.
type Board struct {
	Size   int
	Owners map[Coord]string
}

func NewBoard(size int) Board {
	return Board{Size: size, Owners: make(map[Coord]string)}
}

// orthogonal neighbor offsets; diagonals never count.
var neighbors = [4]Coord{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

func (b Board) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < b.Size && c.Y >= 0 && c.Y < b.Size
}

// OwnerOf returns the owning player id, or "" for an unowned tile.
func (b Board) OwnerOf(c Coord) string {
	return b.Owners[c]
}

// Claimable reports whether playerID may claim c: the tile must be in
// bounds and unowned, and at least one orthogonal neighbor must already
// belong to playerID. Off-board neighbor coordinates are skipped, not
// wrapped.
func (b Board) Claimable(c Coord, playerID string) bool {
	if !b.InBounds(c) || b.Owners[c] != "" {
		return false
	}
	for _, d := range neighbors {
		n := Coord{c.X + d.X, c.Y + d.Y}
		if b.InBounds(n) && b.Owners[n] == playerID {
			return true
		}
	}
	return false
}
