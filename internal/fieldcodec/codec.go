// Package fieldcodec maps server field values to editor state and back:
// contact composites, enumeration tables, dates and numeric passthrough
// fields, resolved through a closed field table.
package fieldcodec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"petcore/pkg/domain"
)

// Part is one named value of a composite editor.
type Part struct {
	Name  string
	Value string
}

// EditableField is the editor state for one field.
type EditableField struct {
	FieldID string
	Kind    domain.FieldKind
	// Value is the editor's current value: the label for choice fields, the
	// joined display string for composites.
	Value   string
	Parts   []Part
	Options []string
}

// Decode builds the editor state for a field. It never fails; malformed
// values fall back to safe defaults.
func Decode(fieldID, raw string) EditableField {
	spec := Lookup(fieldID)
	f := EditableField{FieldID: fieldID, Kind: spec.Kind}
	switch spec.Kind {
	case domain.KindComposite:
		c := SplitContact(raw)
		f.Value = raw
		f.Parts = c.Parts()
	case domain.KindChoice:
		f.Value = spec.Enum.Decode(raw)
		f.Options = spec.Enum.Labels()
	case domain.KindDate:
		f.Value = DecodeDate(raw)
	case domain.KindNumber:
		if isNullish(raw) {
			f.Value = ""
		} else {
			f.Value = strings.TrimSpace(raw)
		}
	default:
		f.Value = raw
	}
	return f
}

// DecodeRecord builds the editor state for a field straight from a record.
// Composite fields are read from their expanded wire keys.
func DecodeRecord(fieldID string, fields map[string]string) EditableField {
	spec := Lookup(fieldID)
	if spec.Kind == domain.KindComposite {
		return Decode(fieldID, ContactFromWire(spec.Prefix, fields).Join())
	}
	return Decode(fieldID, fields[fieldID])
}

// Validate applies the editor-boundary checks for the field's kind.
func Validate(f EditableField) error {
	spec := Lookup(f.FieldID)
	switch spec.Kind {
	case domain.KindText:
		if spec.Required && strings.TrimSpace(f.Value) == "" {
			return fmt.Errorf("%s: %w", f.FieldID, domain.ErrEmptyRequiredField)
		}
	case domain.KindChoice:
		if _, err := spec.Enum.Encode(f.Value); err != nil {
			return fmt.Errorf("%s: %w", f.FieldID, err)
		}
	case domain.KindDate:
		if _, err := EncodeDate(f.Value); err != nil {
			return fmt.Errorf("%s: %w", f.FieldID, err)
		}
	case domain.KindNumber:
		if err := checkRange(f.Value, spec.Min, spec.Max); err != nil {
			return fmt.Errorf("%s: %w", f.FieldID, err)
		}
	}
	return nil
}

// Encode produces the wire fields for an edited value. Composite fields
// expand to one key per part; when no parts are held the joined display
// string is re-split.
func Encode(f EditableField) (map[string]string, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	spec := Lookup(f.FieldID)
	switch spec.Kind {
	case domain.KindComposite:
		c := SplitContact(f.Value)
		if len(f.Parts) > 0 {
			c = ContactFromParts(f.Parts)
		}
		return c.Wire(spec.Prefix), nil
	case domain.KindChoice:
		code, _ := spec.Enum.Encode(f.Value)
		return map[string]string{f.FieldID: code}, nil
	case domain.KindDate:
		v, _ := EncodeDate(f.Value)
		return map[string]string{f.FieldID: v}, nil
	case domain.KindNumber:
		return map[string]string{f.FieldID: strings.TrimSpace(f.Value)}, nil
	default:
		if spec.Required {
			return map[string]string{f.FieldID: strings.TrimSpace(f.Value)}, nil
		}
		return map[string]string{f.FieldID: f.Value}, nil
	}
}

// Display renders the read-only form of an edited value.
func Display(f EditableField) string {
	if f.Kind != domain.KindComposite {
		return f.Value
	}
	c := SplitContact(f.Value)
	if len(f.Parts) > 0 {
		c = ContactFromParts(f.Parts)
	}
	return FormatCard(c, VetFallback)
}

var plainDecimal = regexp.MustCompile(`^[0-9]*\.?[0-9]+$`)

// checkRange validates a numeric passthrough value without converting it.
// Only plain decimals are accepted since the text travels as typed.
func checkRange(v string, min, max int) error {
	v = strings.TrimSpace(v)
	if !plainDecimal.MatchString(v) {
		return fmt.Errorf("number %q: %w", v, domain.ErrParseFailure)
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("number %q: %w", v, domain.ErrParseFailure)
	}
	if max > min && (n < float64(min) || n > float64(max)) {
		return fmt.Errorf("number %q outside %d-%d: %w", v, min, max, domain.ErrParseFailure)
	}
	return nil
}

func isNullish(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "null")
}
