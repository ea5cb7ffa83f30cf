package pipeline

import (
	"sync"

	"github.com/matzehuels/modgraph/pkg/errors"
)

// SlotID names a data channel between rules.
type SlotID string

// Slot is a typed handle on a data channel. A producing rule publishes one
// value per run with [Publish]; consuming rules read it with [Input] once
// the producer has finished.
type Slot[T any] struct {
	id SlotID
}

// NewSlot declares a slot carrying values of type T.
func NewSlot[T any](name string) Slot[T] {
	return Slot[T]{id: SlotID(name)}
}

// ID returns the slot name used in rule declarations.
func (s Slot[T]) ID() SlotID { return s.id }

// Publish makes v visible to the rules requiring s. The calling rule must
// declare s in Produces, and a slot can be published only once per run.
func Publish[T any](c *RuleContext, s Slot[T], v T) error {
	if !c.produces[s.id] {
		return errors.New(errors.ErrCodeUnknownSlot, "rule %q publishes undeclared slot %q", c.rule, s.id)
	}
	return c.slots.publish(s.id, v)
}

// Input returns the value published to s. The calling rule must declare s
// in Requires; the scheduler guarantees the producer has completed.
func Input[T any](c *RuleContext, s Slot[T]) (T, error) {
	var zero T
	if !c.requires[s.id] {
		return zero, errors.New(errors.ErrCodeUnknownSlot, "rule %q reads undeclared slot %q", c.rule, s.id)
	}
	v, ok := c.slots.get(s.id)
	if !ok {
		return zero, errors.New(errors.ErrCodeUnknownSlot, "slot %q was not published", s.id)
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.ErrCodeInternal, "slot %q holds %T, want %T", s.id, v, zero)
	}
	return t, nil
}

// slotStore holds published slot values. Each slot has a single writer and
// any number of readers.
type slotStore struct {
	mu     sync.RWMutex
	values map[SlotID]any
}

func newSlotStore() *slotStore {
	return &slotStore{values: map[SlotID]any{}}
}

func (s *slotStore) publish(id SlotID, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[id]; ok {
		return errors.New(errors.ErrCodeSlotConflict, "slot %q already published", id)
	}
	s.values[id] = v
	return nil
}

func (s *slotStore) get(id SlotID) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[id]
	return v, ok
}
