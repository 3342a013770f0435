// Package present holds optional child state whose asynchronous work is scoped to
// the time it is presented.
package present

import "context"

// Slot is an optional child of T. Presenting derives a context from the parent;
// dismissing cancels that context before the state is dropped, so any call still
// running on behalf of the child is aborted.
//
// A Slot is not safe for concurrent use; its owner guards it with its own lock.
type Slot[T any] struct {
	state   T
	present bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Present attaches state, dismissing whatever was presented before.
// The returned context is cancelled on Dismiss or when parent is done.
func (s *Slot[T]) Present(parent context.Context, state T) context.Context {
	s.Dismiss()
	s.ctx, s.cancel = context.WithCancel(parent)
	s.state = state
	s.present = true
	return s.ctx
}

// PresentFunc presents the state returned by build, which receives the child's
// context so the state can scope its own work to it.
func (s *Slot[T]) PresentFunc(parent context.Context, build func(ctx context.Context) T) T {
	s.Dismiss()
	s.ctx, s.cancel = context.WithCancel(parent)
	s.state = build(s.ctx)
	s.present = true
	return s.state
}

// Dismiss cancels the child's context and clears the slot. It returns the state
// that was presented and whether there was one.
func (s *Slot[T]) Dismiss() (T, bool) {
	var zero T
	if !s.present {
		return zero, false
	}
	s.cancel()
	state := s.state
	s.state = zero
	s.present = false
	s.ctx, s.cancel = nil, nil
	return state, true
}

// Get returns the presented state, if any.
func (s *Slot[T]) Get() (T, bool) {
	return s.state, s.present
}

// IsPresent reports whether the slot holds state.
func (s *Slot[T]) IsPresent() bool {
	return s.present
}

// Context returns the child's context, or nil when nothing is presented.
func (s *Slot[T]) Context() context.Context {
	return s.ctx
}
