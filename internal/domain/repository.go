// Package domain provides shared building blocks of the ledger and audit
// aggregates: pagination, list results and lifecycle hooks.
package domain

import "context"

// --- Pagination ---

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Page is an offset/limit window of a list query.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the window to [1, MaxLimit] rows and a non-negative offset.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Window cuts items to the page and reports the full count.
// Used by backends that filter in memory.
func Window[T any](items []T, p Page) ListResult[T] {
	p = p.Normalize()
	res := ListResult[T]{TotalCount: int64(len(items)), Limit: p.Limit, Offset: p.Offset}
	if p.Offset >= len(items) {
		res.Items = []T{}
		return res
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	res.Items = items[p.Offset:end]
	return res
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{hooks: make(map[HookEvent][]Hook[T])}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
