package present

import (
	"context"
	"testing"
)

func TestSlot_PresentAndDismiss(t *testing.T) {
	var s Slot[string]
	if s.IsPresent() {
		t.Fatal("zero slot should be empty")
	}
	if _, ok := s.Dismiss(); ok {
		t.Error("dismissing an empty slot should report false")
	}

	ctx := s.Present(context.Background(), "explorer")
	if got, ok := s.Get(); !ok || got != "explorer" {
		t.Errorf("Get() = %q, %v", got, ok)
	}
	if s.Context() != ctx {
		t.Error("Context() should return the presented context")
	}

	state, ok := s.Dismiss()
	if !ok || state != "explorer" {
		t.Errorf("Dismiss() = %q, %v", state, ok)
	}
	if ctx.Err() == nil {
		t.Error("dismiss should cancel the child context")
	}
	if s.IsPresent() || s.Context() != nil {
		t.Error("slot should be empty after dismiss")
	}
}

func TestSlot_PresentReplacesAndCancelsPrevious(t *testing.T) {
	var s Slot[int]
	first := s.Present(context.Background(), 1)
	second := s.Present(context.Background(), 2)
	if first.Err() == nil {
		t.Error("replacing the child should cancel the previous context")
	}
	if second.Err() != nil {
		t.Error("new child context should be live")
	}
	if got, _ := s.Get(); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

func TestSlot_ParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	var s Slot[int]
	child := s.Present(parent, 7)
	cancel()
	if child.Err() == nil {
		t.Error("cancelling the parent should cancel the child")
	}
	if !s.IsPresent() {
		t.Error("parent cancellation does not clear the slot by itself")
	}
}

func TestSlot_PresentFuncScopesStateToSlot(t *testing.T) {
	var s Slot[context.Context]
	got := s.PresentFunc(context.Background(), func(ctx context.Context) context.Context { return ctx })
	if got != s.Context() {
		t.Fatal("build should receive the slot's context")
	}
	if got.Err() != nil {
		t.Fatal("presented context should be live")
	}
	s.Dismiss()
	if got.Err() == nil {
		t.Error("dismiss should cancel the context handed to build")
	}
}
