package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics otherwise.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// seededSource is a deterministic PCG-backed Source guarded by a mutex.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source. Two sources built from the
// same seed produce the same sequence.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// FixedSource replays a scripted sequence of percentile rolls. It is meant for
// tests that must force a branch: each queued value is a percentile in [0, 100)
// and is converted to the matching Intn result for whatever n is requested.
//
// When the queue is exhausted the last value repeats.
type FixedSource struct {
	mu     sync.Mutex
	values []float64
	next   int
	draws  int
}

// NewFixedSource returns a FixedSource that yields the given percentiles in order.
//
// Precondition: at least one value; every value in [0, 100).
func NewFixedSource(percentiles ...float64) *FixedSource {
	if len(percentiles) == 0 {
		panic("dice: NewFixedSource requires at least one value")
	}
	return &FixedSource{values: percentiles}
}

// Intn maps the next scripted percentile p onto [0, n) as floor(p/100*n).
func (f *FixedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.values[f.next]
	if f.next < len(f.values)-1 {
		f.next++
	}
	f.draws++
	v := int(p * float64(n) / 100)
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Draws reports how many rolls have been drawn from f.
func (f *FixedSource) Draws() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draws
}
