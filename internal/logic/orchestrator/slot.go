package orchestrator

import "sync"

// Slot holds at most one instance descriptor. It is the only shared mutable
// state in the orchestrator; the mutex covers in-memory mutation only and
// is never held across gateway calls.
type Slot struct {
	mu       sync.Mutex
	occupant *Instance
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Occupy installs a descriptor, replacing any prior content. The prior
// occupant must already have been evicted cloud-side; the slot itself never
// deletes resources.
func (s *Slot) Occupy(in Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.occupant = &in
}

// Peek returns a copy of the occupant, if any.
func (s *Slot) Peek() (Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.occupant == nil {
		return Instance{}, false
	}

	return *s.occupant, true
}

// Vacate clears the slot and returns what was there.
func (s *Slot) Vacate() (Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.occupant == nil {
		return Instance{}, false
	}

	prev := *s.occupant
	s.occupant = nil

	return prev, true
}

// VacateNamed clears the slot only if the occupant carries exactly this
// name. Stale expiry timers go through here so they can never discard a
// newer occupant that has since taken the slot.
func (s *Slot) VacateNamed(name string) (Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.occupant == nil || s.occupant.Name != name {
		return Instance{}, false
	}

	prev := *s.occupant
	s.occupant = nil

	return prev, true
}
