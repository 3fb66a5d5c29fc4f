package game

import "math/rand"

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeLength = 6

// JoinCode returns a random 6-character game code. Uniqueness among
// waiting games is the database's job; callers retry on collision.
func JoinCode(rng *rand.Rand) string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
	}
	return string(code)
}
