package fieldcodec

import (
	"strings"
)

// Contact is a multi-part contact record (veterinarian, caretaker).
type Contact struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Email    string
}

// Contact part names; each becomes the wire key "<prefix>_<part>".
const (
	PartName     = "name"
	PartAddress1 = "address1"
	PartAddress2 = "address2"
	PartCity     = "city"
	PartState    = "state"
	PartZip      = "zip"
	PartEmail    = "email"
)

// ContactParts lists part names in editor order.
var ContactParts = []string{PartName, PartAddress1, PartAddress2, PartCity, PartState, PartZip, PartEmail}

// SplitContact parses the five-line display form
//
//	name\naddress1\naddress2\n{city}, {state} {zip}\nemail
//
// Missing lines and missing city/state/zip pieces become "". The fourth line
// is split on the first comma, then the remainder on its first space after
// the single separator space. It never fails.
func SplitContact(s string) Contact {
	lines := strings.Split(s, "\n")
	line := func(i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}
	c := Contact{
		Name:     line(0),
		Address1: line(1),
		Address2: line(2),
		Email:    line(4),
	}
	c.City, c.State, c.Zip = splitCityStateZip(line(3))
	return c
}

func splitCityStateZip(s string) (city, state, zip string) {
	city, rest, found := strings.Cut(s, ",")
	if !found {
		return s, "", ""
	}
	rest = strings.TrimPrefix(rest, " ")
	state, zip, _ = strings.Cut(rest, " ")
	return city, state, zip
}

// CityStateZip renders the fourth display line.
func (c Contact) CityStateZip() string {
	return c.City + ", " + c.State + " " + c.Zip
}

// Join renders the five-line display form; SplitContact(c.Join()) == c for
// any contact whose parts contain no newline, city no comma and state no space.
func (c Contact) Join() string {
	return strings.Join([]string{c.Name, c.Address1, c.Address2, c.CityStateZip(), c.Email}, "\n")
}

// Parts returns the contact as ordered editor parts.
func (c Contact) Parts() []Part {
	return []Part{
		{Name: PartName, Value: c.Name},
		{Name: PartAddress1, Value: c.Address1},
		{Name: PartAddress2, Value: c.Address2},
		{Name: PartCity, Value: c.City},
		{Name: PartState, Value: c.State},
		{Name: PartZip, Value: c.Zip},
		{Name: PartEmail, Value: c.Email},
	}
}

// ContactFromParts collects editor parts. Unknown part names are ignored.
func ContactFromParts(parts []Part) Contact {
	var c Contact
	for _, p := range parts {
		v := p.Value
		switch p.Name {
		case PartName:
			c.Name = v
		case PartAddress1:
			c.Address1 = v
		case PartAddress2:
			c.Address2 = v
		case PartCity:
			c.City = v
		case PartState:
			c.State = v
		case PartZip:
			c.Zip = v
		case PartEmail:
			c.Email = v
		}
	}
	return c
}

// Wire expands the contact to wire fields "<prefix>_<part>".
func (c Contact) Wire(prefix string) map[string]string {
	out := make(map[string]string, len(ContactParts))
	for _, p := range c.Parts() {
		out[prefix+"_"+p.Name] = p.Value
	}
	return out
}

// ContactFromWire reads a contact from wire fields. The server's "null"
// placeholder reads as empty.
func ContactFromWire(prefix string, fields map[string]string) Contact {
	get := func(part string) string {
		v := fields[prefix+"_"+part]
		if strings.EqualFold(strings.TrimSpace(v), "null") {
			return ""
		}
		return v
	}
	return Contact{
		Name:     get(PartName),
		Address1: get(PartAddress1),
		Address2: get(PartAddress2),
		City:     get(PartCity),
		State:    get(PartState),
		Zip:      get(PartZip),
		Email:    get(PartEmail),
	}
}

// IsZero reports whether every part is empty.
func (c Contact) IsZero() bool { return c == Contact{} }

// FormatCard renders the read-only contact card: non-empty lines only, the
// city/state/zip line only when all three are present, and fallback when
// nothing remains.
func FormatCard(c Contact, fallback string) string {
	var lines []string
	for _, v := range []string{c.Name, c.Address1, c.Address2} {
		if v != "" {
			lines = append(lines, v)
		}
	}
	if c.City != "" && c.State != "" && c.Zip != "" {
		lines = append(lines, c.CityStateZip())
	}
	if c.Email != "" {
		lines = append(lines, c.Email)
	}
	if len(lines) == 0 {
		return fallback
	}
	return strings.Join(lines, "\n")
}
