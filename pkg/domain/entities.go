// Package domain defines the value types shared by the pet profile editing
// subsystem: records as exchanged with the profile service, slot references,
// editor kinds, error kinds and the persistence contract used by the
// reference backend.
package domain

import (
	"sort"
	"strconv"
)

// RecordKind identifies the type of record stored by a RecordStore.
type RecordKind string

// Supported record kinds used as persistence buckets.
const (
	// RecordPet identifies a pet profile record (fields, photo and document slots).
	RecordPet RecordKind = "pet"
	// RecordContacts identifies a user's contact settings document.
	RecordContacts RecordKind = "contacts"
	// RecordSubscription identifies a user's subscription document.
	RecordSubscription RecordKind = "subscription"
	// RecordAddresses identifies a user's billing and shipping addresses.
	RecordAddresses RecordKind = "addresses"
	// RecordAdmins identifies a user's account admin contacts.
	RecordAdmins RecordKind = "admins"
	// RecordMeasurements identifies a user's unit preference.
	RecordMeasurements RecordKind = "measurements"
)

// Collection names a bounded slot collection on a pet record.
type Collection string

const (
	// CollectionPhotos is the gallery of pet photos (pet_photo1..pet_photo40).
	CollectionPhotos Collection = "photos"
	// CollectionDocuments is the list of pet documents (pet_doc1..pet_doc10).
	CollectionDocuments Collection = "documents"
)

// Slot table sizes and wire prefixes. The sizes are fixed for the lifetime of a
// record and never change at runtime.
const (
	PhotoSlotCount     = 40
	DocumentSlotCount  = 10
	PhotoSlotPrefix    = "pet_photo"
	DocumentSlotPrefix = "pet_doc"
)

// SlotLayout returns the wire prefix and table size for a collection.
func (c Collection) SlotLayout() (prefix string, size int) {
	switch c {
	case CollectionPhotos:
		return PhotoSlotPrefix, PhotoSlotCount
	case CollectionDocuments:
		return DocumentSlotPrefix, DocumentSlotCount
	default:
		return "", 0
	}
}

// SlotNames returns the ordered slot names prefix1..prefixN.
func SlotNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = prefix + strconv.Itoa(i+1)
	}
	return names
}

// FieldKind selects the editor shape used for a field.
type FieldKind string

// Editor kinds.
const (
	KindText      FieldKind = "text"
	KindChoice    FieldKind = "choice"
	KindDate      FieldKind = "date"
	KindNumber    FieldKind = "number"
	KindComposite FieldKind = "composite"
)

// Record is a flat set of wire fields for one stored document. Values are
// carried as the server sends them; no field is parsed to a richer type here.
type Record struct {
	Kind   RecordKind        `json:"kind"`
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// NewRecord constructs an empty record of the given kind.
func NewRecord(kind RecordKind, id string) Record {
	return Record{Kind: kind, ID: id, Fields: make(map[string]string)}
}

// Get returns the named field, or "" when absent.
func (r Record) Get(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// Merge copies fields into the record, overwriting existing keys.
func (r *Record) Merge(fields map[string]string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		r.Fields[k] = v
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{Kind: r.Kind, ID: r.ID, Fields: make(map[string]string, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

// Keys returns field names in ascending order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
