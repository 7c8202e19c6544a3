package slots

import (
	"net/url"
	"path"
	"strconv"
)

// ItemKind distinguishes content items from the trailing add affordance.
type ItemKind uint8

const (
	// ItemContent is an occupied slot's reference.
	ItemContent ItemKind = iota
	// ItemAdd is the trailing "add more" affordance.
	ItemAdd
)

// Item is one element of a projection.
type Item struct {
	Kind ItemKind
	Ref  string
}

// AddMarker is the trailing affordance. Its empty Ref can never be mistaken
// for a stored reference.
var AddMarker = Item{Kind: ItemAdd}

// IsAdd reports whether the item is the add affordance.
func (i Item) IsAdd() bool { return i.Kind == ItemAdd }

// Project derives the dense user-facing list: occupied references in slot
// order, followed by one AddMarker only if the occupied count is below
// capacity.
func Project(r *Registry, capacity int) []Item {
	return build(r.OccupiedRefs(), capacity)
}

func build(refs []string, capacity int) []Item {
	items := make([]Item, 0, len(refs)+1)
	for _, ref := range refs {
		items = append(items, Item{Kind: ItemContent, Ref: ref})
	}
	if len(refs) < capacity {
		items = append(items, AddMarker)
	}
	return items
}

// List is the adapter-side projection that is mutated in place after
// confirmed uploads instead of being rebuilt from the registry.
type List struct {
	items    []Item
	capacity int
}

// NewList projects r under capacity.
func NewList(r *Registry, capacity int) *List {
	return &List{items: Project(r, capacity), capacity: capacity}
}

// Items returns a copy of the current items.
func (l *List) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items including any add affordance.
func (l *List) Len() int { return len(l.items) }

// Capacity returns the tier limit the list was projected under.
func (l *List) Capacity() int { return l.capacity }

// ContentCount returns the number of content items.
func (l *List) ContentCount() int {
	n := 0
	for _, it := range l.items {
		if !it.IsAdd() {
			n++
		}
	}
	return n
}

// IsAddAffordance reports whether position i renders as the add control: it
// must be the last element and the content count must be below capacity.
// This is evaluated against the live items on every call.
func (l *List) IsAddAffordance(i int) bool {
	return i == len(l.items)-1 && l.ContentCount() < l.capacity && l.items[i].IsAdd()
}

// ApplyUpload records one confirmed upload: the trailing add marker is
// dropped, the reference appended, and the marker restored iff the list is
// still under capacity.
func (l *List) ApplyUpload(ref string) {
	if n := len(l.items); n > 0 && l.items[n-1].IsAdd() {
		l.items = l.items[:n-1]
	}
	l.items = append(l.items, Item{Kind: ItemContent, Ref: ref})
	if l.ContentCount() < l.capacity {
		l.items = append(l.items, AddMarker)
	}
}

// Refresh re-projects from the registry, e.g. after the tier changes.
func (l *List) Refresh(r *Registry, capacity int) {
	l.capacity = capacity
	l.items = Project(r, capacity)
}

// DocumentName returns the display name for a document reference: the last
// path segment of the URL, or "Document N" (1-based position) when none.
func DocumentName(ref string, position int) string {
	fallback := "Document " + strconv.Itoa(position+1)
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" || u.Path == "/" {
		return fallback
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return fallback
	}
	return name
}
