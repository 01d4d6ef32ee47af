package naming_service

import "golang.org/x/exp/rand"

// Selector returns an index in [0, n). n is always positive.
type Selector func(n int) int

// RandomSelector picks uniformly at random.
func RandomSelector(n int) int {
	return rand.Intn(n)
}

// FirstSelector always picks the first candidate.
func FirstSelector(int) int {
	return 0
}
