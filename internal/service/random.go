package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// randomIndex returns a uniformly distributed integer in [0, n).
func randomIndex(r io.Reader, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("random index: empty range")
	}
	v, err := rand.Int(r, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random index: %w", err)
	}
	return int(v.Int64()), nil
}

// quickPick draws count distinct numbers from [min, max] with a partial
// Fisher-Yates shuffle.  The pool is virtual: only swapped slots are stored,
// so memory grows with count rather than with the range.
func quickPick(r io.Reader, count, min, max int) ([]int, error) {
	size := max - min + 1
	if size <= 0 || count > size {
		return nil, fmt.Errorf("quick pick: %d numbers requested from a pool of %d", count, size)
	}
	swapped := make(map[int]int, 2*count)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return min + i
	}
	out := make([]int, count)
	for i := 0; i < count; i++ {
		j, err := randomIndex(r, size-i)
		if err != nil {
			return nil, err
		}
		out[i] = at(i + j)
		swapped[i+j] = at(i)
	}
	return out, nil
}
