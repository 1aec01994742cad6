package state

import (
	"strconv"
	"sync"
	"time"
)

// idGenerator issues message ids as decimal Unix milliseconds, bumped past
// the last issued or observed id so that ids never repeat.
type idGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newIdGenerator(now func() time.Time) *idGenerator {
	return &idGenerator{now: now}
}

func (g *idGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms

	return strconv.FormatInt(ms, 10)
}

// Observe records ids that already exist. Non-numeric ids are ignored.
func (g *idGenerator) Observe(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err == nil && n > g.last {
			g.last = n
		}
	}
}
