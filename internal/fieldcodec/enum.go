package fieldcodec

import (
	"fmt"
	"strings"

	"petcore/pkg/domain"
)

// Enum is a closed code <-> label table. Codes are what travels on the wire.
type Enum struct {
	name    string
	codes   []string
	labels  []string
	unknown int
}

func newEnum(name string, unknown int, pairs ...string) *Enum {
	e := &Enum{name: name, unknown: unknown}
	for i := 0; i+1 < len(pairs); i += 2 {
		e.codes = append(e.codes, pairs[i])
		e.labels = append(e.labels, pairs[i+1])
	}
	return e
}

// Built-in enumeration tables.
var (
	Gender      = newEnum("gender", 0, "0", "Unknown", "1", "Male", "2", "Female")
	TriState    = newEnum("tristate", 2, "0", "No", "1", "Yes", "2", "Unknown")
	PetType     = newEnum("pet_type", 2, "Dog", "Dog", "Cat", "Cat", "Other", "Other")
	Measurement = newEnum("measurement", 0, "0", "lbs", "1", "kg")
)

// MeasurementField carries the Measurement code in the measurements settings.
const MeasurementField = "measurement"

// Name identifies the table.
func (e *Enum) Name() string { return e.name }

// Labels returns the labels in code order.
func (e *Enum) Labels() []string {
	out := make([]string, len(e.labels))
	copy(out, e.labels)
	return out
}

// UnknownLabel returns the label values outside the domain decode to.
func (e *Enum) UnknownLabel() string { return e.labels[e.unknown] }

// Decode maps a wire value to its label. Labels are accepted too (some
// endpoints send "Male" instead of "1"); anything else decodes to the unknown
// member.
func (e *Enum) Decode(raw string) string {
	v := strings.TrimSpace(raw)
	for i, code := range e.codes {
		if v == code {
			return e.labels[i]
		}
	}
	for _, label := range e.labels {
		if strings.EqualFold(v, label) {
			return label
		}
	}
	return e.UnknownLabel()
}

// Encode maps a label (or an already-encoded code) back to its wire code.
func (e *Enum) Encode(label string) (string, error) {
	v := strings.TrimSpace(label)
	for i, l := range e.labels {
		if v == l {
			return e.codes[i], nil
		}
	}
	for _, code := range e.codes {
		if v == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("%s value %q: %w", e.name, label, domain.ErrParseFailure)
}
