package slots

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"petcore/pkg/domain"
)

func emptyEntries(prefix string, n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{Name: prefix + strconv.Itoa(i+1)}
	}
	return out
}

func mustInit(t *testing.T, entries []Entry) *Registry {
	t.Helper()
	r, err := Initialize(entries)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return r
}

func TestInitializeDecodeRule(t *testing.T) {
	r := mustInit(t, []Entry{
		{Name: "pet_photo1", Value: "https://cdn.example.com/1.jpg"},
		{Name: "pet_photo2", Value: "null"},
		{Name: "pet_photo3", Value: "FALSE"},
		{Name: "pet_photo4", Value: ""},
		{Name: "pet_photo5", Value: "garbage"},
		{Name: "pet_photo6", Value: "https://cdn.example.com/6.jpg"},
	})
	if r.Len() != 6 {
		t.Fatalf("len = %d", r.Len())
	}
	if got := r.OccupiedCount(); got != 2 {
		t.Fatalf("occupied = %d, want 2", got)
	}
	want := []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/6.jpg"}
	if diff := cmp.Diff(want, r.OccupiedRefs()); diff != "" {
		t.Fatalf("occupied refs mismatch (-want +got):\n%s", diff)
	}
	name, ok := r.FindNextAvailable()
	if !ok || name != "pet_photo2" {
		t.Fatalf("next available = %q %v", name, ok)
	}
}

func TestInitializeRejectsDuplicateAndEmptyNames(t *testing.T) {
	if _, err := Initialize([]Entry{{Name: "a"}, {Name: "a"}}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if _, err := Initialize([]Entry{{Name: ""}}); err == nil {
		t.Fatalf("expected empty name error")
	}
}

func TestOccupyUnknownSlot(t *testing.T) {
	r := mustInit(t, emptyEntries("pet_doc", 2))
	err := r.Occupy("pet_doc3", "https://x/d.pdf")
	if !errors.Is(err, domain.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
	if err := r.Release("nope"); !errors.Is(err, domain.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound on release, got %v", err)
	}
}

func TestFindNextAvailableFillsGapsFirst(t *testing.T) {
	r := mustInit(t, emptyEntries("pet_photo", 4))
	for _, name := range []string{"pet_photo1", "pet_photo2", "pet_photo3"} {
		if err := r.Occupy(name, "https://x/"+name); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Release("pet_photo2"); err != nil {
		t.Fatal(err)
	}
	if name, _ := r.FindNextAvailable(); name != "pet_photo2" {
		t.Fatalf("expected gap pet_photo2, got %s", name)
	}
	slot, ok := r.Lookup("pet_photo2")
	if !ok || !slot.Empty() {
		t.Fatalf("released slot should be empty: %+v", slot)
	}
}

func TestReserve(t *testing.T) {
	r := mustInit(t, emptyEntries("pet_photo", 3))
	name, err := r.Reserve(2)
	if err != nil || name != "pet_photo1" {
		t.Fatalf("reserve = %q %v", name, err)
	}
	_ = r.Occupy("pet_photo1", "https://x/1")
	_ = r.Occupy("pet_photo2", "https://x/2")
	if _, err := r.Reserve(2); !errors.Is(err, domain.ErrCapacityReached) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	_ = r.Occupy("pet_photo3", "https://x/3")
	if _, err := r.Reserve(3); !errors.Is(err, domain.ErrSlotsExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
}

func TestFromRecord(t *testing.T) {
	fields := map[string]string{"pet_doc1": "https://x/a.pdf", "pet_doc3": "null", "pet_photo1": "https://x/p.jpg"}
	r, err := FromRecord(domain.CollectionDocuments, fields)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != domain.DocumentSlotCount || r.OccupiedCount() != 1 {
		t.Fatalf("len=%d occupied=%d", r.Len(), r.OccupiedCount())
	}
	if _, err := FromRecord(domain.Collection("videos"), fields); err == nil {
		t.Fatalf("expected unknown collection error")
	}
}

// Randomized check of the registry invariants: occupied count never exceeds
// the table length and FindNextAvailable always returns the lowest empty index.
func TestRegistryInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := []string{"", "null", "false", "https://x/a.jpg", "https://x/b.jpg", "junk"}
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(12)
		entries := make([]Entry, n)
		for i := range entries {
			entries[i] = Entry{Name: "s" + strconv.Itoa(i+1), Value: values[rng.Intn(len(values))]}
		}
		r := mustInit(t, entries)
		for step := 0; step < 10; step++ {
			if r.OccupiedCount() > r.Len() {
				t.Fatalf("occupied %d > len %d", r.OccupiedCount(), r.Len())
			}
			name, ok := r.FindNextAvailable()
			lowest := -1
			for i, s := range r.Slots() {
				if s.Empty() {
					lowest = i
					break
				}
			}
			if lowest == -1 {
				if ok || r.OccupiedCount() != r.Len() {
					t.Fatalf("expected none when full, got %q", name)
				}
				break
			}
			if !ok || name != r.Slots()[lowest].Name {
				t.Fatalf("next available = %q, want %q", name, r.Slots()[lowest].Name)
			}
			if err := r.Occupy(name, "https://x/"+name); err != nil {
				t.Fatal(err)
			}
		}
	}
}
