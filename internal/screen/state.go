// Package screen holds the per-screen controllers for the pet details and
// contacts screens together with the serializable UI state they expose.
package screen

import (
	"encoding/json"
	"sort"
)

// State is the serializable UI state of one screen. It is only changed
// through Reduce.
type State struct {
	Expanded map[string]bool `json:"expanded,omitempty"`
	Selected string          `json:"selected,omitempty"`
	Busy     map[string]bool `json:"busy,omitempty"`
	Loading  bool            `json:"loading"`
	Loaded   bool            `json:"loaded"`
	Tier     string          `json:"tier,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// Action is a state transition.
type Action interface{ isAction() }

type (
	// ToggleSection flips a collapsible section.
	ToggleSection struct{ Section string }
	// Select marks the item being edited or previewed.
	Select struct{ ID string }
	// ClearSelection drops the current selection.
	ClearSelection struct{}
	// Begin disables a control while its call is in flight.
	Begin struct{ Control string }
	// Finish re-enables a control and shows a message when non-empty.
	Finish struct {
		Control string
		Message string
	}
	// Notify shows a message.
	Notify struct{ Message string }
	// LoadStarted marks the screen as fetching.
	LoadStarted struct{}
	// LoadFinished records the fetched tier, or the failure message.
	LoadFinished struct {
		Tier    string
		Message string
		OK      bool
	}
)

func (ToggleSection) isAction()  {}
func (Select) isAction()         {}
func (ClearSelection) isAction() {}
func (Begin) isAction()          {}
func (Finish) isAction()         {}
func (Notify) isAction()         {}
func (LoadStarted) isAction()    {}
func (LoadFinished) isAction()   {}

// Reduce applies a to s and returns the new state. s is not modified.
func Reduce(s State, a Action) State {
	next := s.clone()
	switch a := a.(type) {
	case ToggleSection:
		if next.Expanded == nil {
			next.Expanded = map[string]bool{}
		}
		if next.Expanded[a.Section] {
			delete(next.Expanded, a.Section)
		} else {
			next.Expanded[a.Section] = true
		}
	case Select:
		next.Selected = a.ID
	case ClearSelection:
		next.Selected = ""
	case Begin:
		if next.Busy == nil {
			next.Busy = map[string]bool{}
		}
		next.Busy[a.Control] = true
	case Finish:
		delete(next.Busy, a.Control)
		if a.Message != "" {
			next.Message = a.Message
		}
	case Notify:
		next.Message = a.Message
	case LoadStarted:
		next.Loading = true
	case LoadFinished:
		next.Loading = false
		if a.OK {
			next.Loaded = true
			next.Tier = a.Tier
		}
		if a.Message != "" {
			next.Message = a.Message
		}
	}
	return next
}

// IsBusy reports whether a control is disabled.
func (s State) IsBusy(control string) bool { return s.Busy[control] }

// IsExpanded reports whether a section is open.
func (s State) IsExpanded(section string) bool { return s.Expanded[section] }

// BusyControls lists disabled controls in ascending order.
func (s State) BusyControls() []string {
	out := make([]string, 0, len(s.Busy))
	for k := range s.Busy {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalIndent renders the state for debugging and the CLI.
func (s State) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func (s State) clone() State {
	out := s
	out.Expanded = copyFlags(s.Expanded)
	out.Busy = copyFlags(s.Busy)
	return out
}

func copyFlags(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
