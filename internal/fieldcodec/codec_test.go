package fieldcodec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcore/pkg/domain"
)

func TestSplitContactScenario(t *testing.T) {
	got := SplitContact("Jane\n1 Main St\n\nAnytown, CA 90210\njane@x.com")
	want := Contact{
		Name:     "Jane",
		Address1: "1 Main St",
		Address2: "",
		City:     "Anytown",
		State:    "CA",
		Zip:      "90210",
		Email:    "jane@x.com",
	}
	assert.Equal(t, want, got)
}

func TestSplitContactMissingParts(t *testing.T) {
	cases := []struct {
		in   string
		want Contact
	}{
		{"", Contact{}},
		{"Only Name", Contact{Name: "Only Name"}},
		{"A\nB\nC\nSpringfield", Contact{Name: "A", Address1: "B", Address2: "C", City: "Springfield"}},
		{"A\nB\nC\nSpringfield, IL", Contact{Name: "A", Address1: "B", Address2: "C", City: "Springfield", State: "IL"}},
		{"A\n\n\nX,Y Z 123\ne", Contact{Name: "A", City: "X", State: "Y", Zip: "Z 123", Email: "e"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SplitContact(tc.in), "input %q", tc.in)
	}
}

func TestContactJoinSplitRoundTrip(t *testing.T) {
	inputs := []string{
		"Jane\n1 Main St\n\nAnytown, CA 90210\njane@x.com",
		"\n\n\n,  \n",
		"Dr. Who\nTARDIS\nBay 4\nLondon, UK SW1A 1AA\nwho@bbc.co.uk",
	}
	for _, s := range inputs {
		assert.Equal(t, s, SplitContact(s).Join())
	}
}

func TestCompositeEncodeDecodeRoundTrip(t *testing.T) {
	s := "Jane\n1 Main St\n\nAnytown, CA 90210\njane@x.com"
	f := Decode(VetContactField, s)
	require.Equal(t, domain.KindComposite, f.Kind)
	require.Len(t, f.Parts, len(ContactParts))

	wire, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, SplitContact(s).Wire(VetPrefix), wire)
	assert.Equal(t, "Anytown", wire["pet_vet_city"])
	assert.Equal(t, "90210", wire["pet_vet_zip"])
	assert.Len(t, wire, 7)

	// Without parts the joined string is re-split.
	f.Parts = nil
	wire2, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, wire, wire2)
}

func TestCompositeEditedParts(t *testing.T) {
	f := Decode(VetContactField, "")
	for i := range f.Parts {
		if f.Parts[i].Name == PartName {
			f.Parts[i].Value = "Dr. Smith"
		}
	}
	wire, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Smith", wire["pet_vet_name"])
	assert.Equal(t, "", wire["pet_vet_email"])
}

func TestContactFromWireFiltersNull(t *testing.T) {
	fields := map[string]string{
		"pet_vet_name":     "Dr. Smith",
		"pet_vet_address1": "null",
		"pet_vet_city":     "Austin",
		"pet_vet_state":    "TX",
		"pet_vet_zip":      "NULL",
	}
	c := ContactFromWire(VetPrefix, fields)
	assert.Equal(t, "", c.Address1)
	assert.Equal(t, "", c.Zip)
	assert.Equal(t, "Dr. Smith", FormatCard(c, VetFallback))

	c.Zip = "78701"
	assert.Equal(t, "Dr. Smith\nAustin, TX 78701", FormatCard(c, VetFallback))
	assert.Equal(t, VetFallback, FormatCard(Contact{}, VetFallback))
	assert.True(t, Contact{}.IsZero())
}

func TestDecodeRecordComposite(t *testing.T) {
	fields := map[string]string{"pet_vet_name": "Vet", "pet_vet_email": "v@x.com"}
	f := DecodeRecord(VetContactField, fields)
	assert.Equal(t, "Vet\n\n\n,  \nv@x.com", f.Value)
	assert.Equal(t, "Vet", ContactFromParts(f.Parts).Name)
	assert.Equal(t, "Vet\nv@x.com", Display(f))
}

func TestEnumRoundTrip(t *testing.T) {
	for _, e := range []*Enum{Gender, TriState, PetType, Measurement} {
		for _, code := range e.codes {
			got, err := e.Encode(e.Decode(code))
			require.NoError(t, err)
			assert.Equal(t, code, got, "%s code %q", e.Name(), code)
		}
	}
}

func TestEnumOutOfDomain(t *testing.T) {
	assert.Equal(t, "Unknown", Gender.Decode("7"))
	assert.Equal(t, "Unknown", Gender.Decode(""))
	assert.Equal(t, "Female", Gender.Decode("female"))
	assert.Equal(t, "Unknown", TriState.Decode("null"))
	assert.Equal(t, "Yes", TriState.Decode("1"))
	assert.Equal(t, "Other", PetType.Decode("Ferret"))
	assert.Equal(t, "lbs", Measurement.Decode(""))

	_, err := Gender.Encode("Robot")
	assert.True(t, errors.Is(err, domain.ErrParseFailure))
	code, err := Gender.Encode("2")
	require.NoError(t, err)
	assert.Equal(t, "2", code)
}

func TestChoiceFieldCodec(t *testing.T) {
	f := Decode("pet_gender", "1")
	assert.Equal(t, "Male", f.Value)
	assert.Equal(t, []string{"Unknown", "Male", "Female"}, f.Options)

	f.Value = "Female"
	wire, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pet_gender": "2"}, wire)

	f.Value = "Cat"
	_, err = Encode(f)
	assert.ErrorIs(t, err, domain.ErrParseFailure)
}

func TestTextFieldRequired(t *testing.T) {
	f := Decode("pet_name", "Rex")
	f.Value = "   "
	_, err := Encode(f)
	assert.ErrorIs(t, err, domain.ErrEmptyRequiredField)
	assert.True(t, domain.IsLocal(err))

	f.Value = "  Max "
	wire, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, "Max", wire["pet_name"])

	// Optional and unknown fields accept empty values verbatim.
	for _, id := range []string{"pet_breed", "custom_field"} {
		wire, err := Encode(EditableField{FieldID: id, Kind: domain.KindText})
		require.NoError(t, err)
		assert.Equal(t, "", wire[id])
	}
}

func TestDateField(t *testing.T) {
	assert.Equal(t, "", Decode("pet_birthday", "0000-00-00").Value)
	assert.Equal(t, "2020-02-29", Decode("pet_birthday", " 2020-02-29 ").Value)

	f := Decode("pet_birthday", "garbage")
	_, err := Encode(f)
	assert.ErrorIs(t, err, domain.ErrParseFailure)

	f.Value = "2019-06-01"
	wire, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, "2019-06-01", wire["pet_birthday"])
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "3 yrs 9 mos", FormatAge("2020-06-15", now))
	assert.Equal(t, "4 yrs 0 mos", FormatAge("2020-03-31", now))
	assert.Equal(t, "0 yrs 1 mos", FormatAge("2024-02-01", now))
	assert.Equal(t, "Unknown", FormatAge("null", now))
}

func TestNumberPassthrough(t *testing.T) {
	f := Decode("pet_weight", "042.50")
	assert.Equal(t, "042.50", f.Value)
	wire, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, "042.50", wire["pet_weight"])

	for _, ok := range []string{"1", "999", "1.5", "007.25"} {
		f.Value = ok
		_, err := Encode(f)
		assert.NoError(t, err, "value %q", ok)
	}
	assert.Equal(t, "", Decode("pet_weight", "null").Value)
	for _, bad := range []string{"0", "1000", "heavy", "", "NaN", "Inf", "1e2", "-5", "0x10", "12."} {
		f.Value = bad
		_, err := Encode(f)
		assert.ErrorIs(t, err, domain.ErrParseFailure, "value %q", bad)
	}
}

func TestFieldTable(t *testing.T) {
	assert.Equal(t, domain.KindText, Lookup("anything_else").Kind)
	assert.True(t, Lookup("pet_name").Required)
	assert.Equal(t, VetPrefix, Lookup(VetContactField).Prefix)
	for _, id := range Fields() {
		spec := Lookup(id)
		if spec.Kind == domain.KindChoice {
			assert.NotNil(t, spec.Enum, id)
		}
		assert.NotEmpty(t, spec.Title, id)
	}
	assert.True(t, IsPrivacyField("pet_hide_mic"))
	assert.False(t, IsPrivacyField("pet_name"))
}
