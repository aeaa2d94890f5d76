package query

import (
	"context"
	"sync"
)

// MutationFunc performs one side-effecting operation (create, update,
// delete) and returns its result.
type MutationFunc[A, R any] func(ctx context.Context, arg A) (R, error)

// MutationOptions holds the lifecycle hooks fired around a mutation.
// OnSuccess or OnError runs first depending on the outcome, then OnSettled
// runs in either case. A typical OnSuccess invalidates the affected query
// keys so observers re-fetch.
type MutationOptions[R any] struct {
	OnSuccess func(result R)
	OnError   func(err error)
	OnSettled func()
}

// MutationState mirrors the query state shape for one mutation handle.
type MutationState[R any] struct {
	Status Status
	Data   R
	Error  string
}

// Mutation wraps a MutationFunc with hooks and status tracking. Unlike
// queries, mutations are never cached or deduplicated; every Mutate call
// runs the function once.
type Mutation[A, R any] struct {
	mu    sync.Mutex
	fn    MutationFunc[A, R]
	opts  MutationOptions[R]
	state MutationState[R]
}

// NewMutation builds a mutation handle around fn.
func NewMutation[A, R any](fn MutationFunc[A, R], opts MutationOptions[R]) *Mutation[A, R] {
	return &Mutation[A, R]{
		fn:   fn,
		opts: opts,
		state: MutationState[R]{
			Status: StatusIdle,
		},
	}
}

// Mutate runs the mutation function once and fires the configured hooks.
// The result and error are both returned and recorded on the handle state.
func (m *Mutation[A, R]) Mutate(ctx context.Context, arg A) (R, error) {
	m.mu.Lock()
	m.state.Status = StatusLoading
	m.mu.Unlock()

	result, err := m.fn(ctx, arg)

	m.mu.Lock()
	if err != nil {
		m.state.Status = StatusError
		m.state.Error = err.Error()
	} else {
		m.state.Status = StatusSuccess
		m.state.Data = result
		m.state.Error = ""
	}
	m.mu.Unlock()

	if err != nil {
		if m.opts.OnError != nil {
			m.opts.OnError(err)
		}
	} else if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(result)
	}
	if m.opts.OnSettled != nil {
		m.opts.OnSettled()
	}

	return result, err
}

// State returns a copy of the mutation's current state.
func (m *Mutation[A, R]) State() MutationState[R] {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	return state
}
