// Package slots maps a fixed-size table of named, sparse slots (pet_photo1..N,
// pet_doc1..N) onto the dense list a user sees.
package slots

import (
	"fmt"

	"petcore/pkg/domain"
)

// Entry is one (name, raw value) pair as received from the server.
type Entry struct {
	Name  string
	Value string
}

// Slot is one named storage position.
type Slot struct {
	Name string
	Ref  domain.Ref
}

// Empty reports whether the slot is unoccupied.
func (s Slot) Empty() bool { return !s.Ref.Present() }

// Registry owns the ordered slot table. Its length is fixed at Initialize
// time and slot names are unique.
type Registry struct {
	slots []Slot
	index map[string]int
}

// Initialize builds a registry with one slot per entry, in entry order.
// Duplicate names are rejected since they would make slot lookup ambiguous.
func Initialize(entries []Entry) (*Registry, error) {
	r := &Registry{
		slots: make([]Slot, 0, len(entries)),
		index: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("slot %d: empty name", len(r.slots)+1)
		}
		if _, dup := r.index[e.Name]; dup {
			return nil, fmt.Errorf("slot %s: duplicate name", e.Name)
		}
		r.index[e.Name] = len(r.slots)
		r.slots = append(r.slots, Slot{Name: e.Name, Ref: domain.ParseRef(e.Value)})
	}
	return r, nil
}

// FromRecord builds the registry for a collection from a record's wire fields.
func FromRecord(c domain.Collection, fields map[string]string) (*Registry, error) {
	prefix, n := c.SlotLayout()
	if n == 0 {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	names := domain.SlotNames(prefix, n)
	entries := make([]Entry, n)
	for i, name := range names {
		entries[i] = Entry{Name: name, Value: fields[name]}
	}
	return Initialize(entries)
}

// Len returns the fixed table size.
func (r *Registry) Len() int { return len(r.slots) }

// FindNextAvailable returns the lowest-index empty slot. Slot names double as
// the upload field key, so gaps are always filled before the table extends.
func (r *Registry) FindNextAvailable() (string, bool) {
	for _, s := range r.slots {
		if s.Empty() {
			return s.Name, true
		}
	}
	return "", false
}

// Occupy stores ref in the named slot.
func (r *Registry) Occupy(name, ref string) error {
	i, ok := r.index[name]
	if !ok {
		return fmt.Errorf("occupy %s: %w", name, domain.ErrSlotNotFound)
	}
	r.slots[i].Ref = domain.PresentRef(ref)
	return nil
}

// Release empties the named slot.
func (r *Registry) Release(name string) error {
	i, ok := r.index[name]
	if !ok {
		return fmt.Errorf("release %s: %w", name, domain.ErrSlotNotFound)
	}
	r.slots[i].Ref = domain.Ref{}
	return nil
}

// Lookup returns the slot with the given name.
func (r *Registry) Lookup(name string) (Slot, bool) {
	i, ok := r.index[name]
	if !ok {
		return Slot{}, false
	}
	return r.slots[i], true
}

// OccupiedCount returns the number of occupied slots.
func (r *Registry) OccupiedCount() int {
	n := 0
	for _, s := range r.slots {
		if !s.Empty() {
			n++
		}
	}
	return n
}

// OccupiedRefs returns occupied references in slot order.
func (r *Registry) OccupiedRefs() []string {
	out := make([]string, 0, len(r.slots))
	for _, s := range r.slots {
		if !s.Empty() {
			out = append(out, s.Ref.Value())
		}
	}
	return out
}

// Slots returns a copy of the table.
func (r *Registry) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

// Reserve picks the slot for the next upload, failing with ErrSlotsExhausted
// when the table is full and ErrCapacityReached when the tier limit is hit.
// It must be called before any network activity.
func (r *Registry) Reserve(capacity int) (string, error) {
	name, ok := r.FindNextAvailable()
	if !ok {
		return "", domain.ErrSlotsExhausted
	}
	if r.OccupiedCount() >= capacity {
		return "", domain.ErrCapacityReached
	}
	return name, nil
}
