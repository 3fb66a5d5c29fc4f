package game

import "math/rand"

// NextQuestion draws a question id uniformly from the pool, excluding ids
// the player has already been served this session. When the pool is
// exhausted the draw restarts from the full pool (reset=true tells the
// caller to clear the served set) so the game never stalls, at the cost of
// eventual repeats. Returns "" only for an empty pool.
func NextQuestion(pool []string, served map[string]bool, rng *rand.Rand) (id string, reset bool) {
	if len(pool) == 0 {
		return "", false
	}

	fresh := make([]string, 0, len(pool))
	for _, q := range pool {
		if !served[q] {
			fresh = append(fresh, q)
		}
	}

	if len(fresh) == 0 {
		return pool[rng.Intn(len(pool))], true
	}
	return fresh[rng.Intn(len(fresh))], false
}
