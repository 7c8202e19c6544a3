// Package dirty reports whether a form has diverged from the values it was
// last loaded or saved with.
package dirty

import (
	"sort"
	"strconv"
)

// Row is one instance of a repeated group, keyed by sub-field.
type Row map[string]string

// Form is the current value of every tracked input: static fields plus any
// dynamically generated repeated groups.
type Form struct {
	Static map[string]string
	Groups map[string][]Row
}

// Snapshot maps field keys to values. Repeated-group sub-fields are keyed
// "<group>.<subfield>_<index>" with a 0-based index, so groups sharing a
// sub-field name stay distinct. Static keys never contain a '.'.
type Snapshot map[string]string

// GroupKey builds the snapshot key for a repeated-group sub-field.
func GroupKey(group, subfield string, index int) string {
	return group + "." + subfield + "_" + strconv.Itoa(index)
}

// Capture snapshots every tracked value of the form.
func Capture(f Form) Snapshot {
	snap := make(Snapshot, len(f.Static))
	for k, v := range f.Static {
		snap[k] = v
	}
	for group, rows := range f.Groups {
		for i, row := range rows {
			for sub, v := range row {
				snap[GroupKey(group, sub, i)] = v
			}
		}
	}
	return snap
}

// Changed lists the keys whose current value differs from snap, in ascending
// order. A key missing from the snapshot counts as changed; rows that existed
// in the snapshot but are no longer present are not considered.
func Changed(f Form, snap Snapshot) []string {
	if snap == nil {
		return nil
	}
	var out []string
	diff := func(key, v string) {
		if old, ok := snap[key]; !ok || old != v {
			out = append(out, key)
		}
	}
	for k, v := range f.Static {
		diff(k, v)
	}
	for group, rows := range f.Groups {
		for i, row := range rows {
			for sub, v := range row {
				diff(GroupKey(group, sub, i), v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// HasChanges reports whether any tracked value differs from snap. A nil
// snapshot (form never loaded) reports false.
func HasChanges(f Form, snap Snapshot) bool {
	return len(Changed(f, snap)) > 0
}

// Tracker holds the baseline for one screen.
type Tracker struct {
	baseline Snapshot
}

// Snapshot replaces the baseline with the form's current values.
func (t *Tracker) Snapshot(f Form) { t.baseline = Capture(f) }

// Confirm moves the given keys of the baseline to the values the server just
// accepted, leaving every other key as it was. It does nothing before the
// first Snapshot.
func (t *Tracker) Confirm(values map[string]string) {
	if t.baseline == nil {
		return
	}
	for k, v := range values {
		t.baseline[k] = v
	}
}

// Loaded reports whether a baseline exists.
func (t *Tracker) Loaded() bool { return t.baseline != nil }

// HasChanges evaluates the form against the baseline.
func (t *Tracker) HasChanges(f Form) bool { return HasChanges(f, t.baseline) }

// Changed lists the keys that differ from the baseline.
func (t *Tracker) Changed(f Form) []string { return Changed(f, t.baseline) }

// Baseline returns a copy of the current snapshot, or nil before the first load.
func (t *Tracker) Baseline() Snapshot {
	if t.baseline == nil {
		return nil
	}
	out := make(Snapshot, len(t.baseline))
	for k, v := range t.baseline {
		out[k] = v
	}
	return out
}

// Reset discards the baseline.
func (t *Tracker) Reset() { t.baseline = nil }
