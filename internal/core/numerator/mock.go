package numerator

import (
	"context"
	"sync"
	"time"
)

// StubGenerator is an in-process Generator for service tests. It counts per
// sequence key and fails every call with Err when set.
type StubGenerator struct {
	Err error

	mu     sync.Mutex
	next   map[string]int64
	issued []string
}

// GetNextNumber implements Generator.
func (g *StubGenerator) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next == nil {
		g.next = make(map[string]int64)
	}
	key := SequenceKey(cfg, period)
	g.next[key]++
	n := Format(cfg, period, g.next[key])
	g.issued = append(g.issued, n)
	return n, nil
}

// SetNextNumber implements Generator.
func (g *StubGenerator) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	if g.Err != nil {
		return g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next == nil {
		g.next = make(map[string]int64)
	}
	g.next[SequenceKey(cfg, period)] = value
	return nil
}

// Issued returns the numbers handed out so far.
func (g *StubGenerator) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}

var _ Generator = (*StubGenerator)(nil)
