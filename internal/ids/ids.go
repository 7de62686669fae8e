// Package ids generates the opaque identifiers used for lists and items.
package ids

import (
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// RandomGenerator generates random 128-bit tokens rendered as 32 hex
// characters, e.g. "16fd27068baf433b82eb8c7fada847da".
//
// Thread-safety: RandomGenerator is stateless and safe for concurrent use.
type RandomGenerator struct{}

// Generate returns a new random token.
//
// Panics if the system random source fails.
func (RandomGenerator) Generate() string {
	u := uuid.Must(uuid.NewRandom())
	return hex.EncodeToString(u[:])
}

// FixedGenerator returns predetermined identifiers for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedGenerator("list-1", "item-1")
//	gen.Generate() // "list-1"
//	gen.Generate() // "item-1"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics once every id has been handed out, so a test that creates more
// rows than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
