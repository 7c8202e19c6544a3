package fieldcodec

import (
	"sort"

	"petcore/pkg/domain"
)

// Wire prefixes for contact composites.
const (
	VetPrefix       = "pet_vet"
	CaretakerPrefix = "cc"
)

// VetContactField is the editor id of the veterinarian composite.
const VetContactField = "vet_contact"

// VetFallback is shown on the read-only card when the vet record is empty.
const VetFallback = "No information for Veterinarian found."

// FieldSpec describes how one field is edited and encoded.
type FieldSpec struct {
	Kind     domain.FieldKind
	Title    string
	Required bool
	Enum     *Enum
	Prefix   string
	Min, Max int
}

var fieldTable = map[string]FieldSpec{
	"pet_name":              {Kind: domain.KindText, Title: "Edit Name", Required: true},
	"pet_breed":             {Kind: domain.KindText, Title: "Edit Breed"},
	"pet_notes":             {Kind: domain.KindText, Title: "Edit About Section"},
	"pet_microchip":         {Kind: domain.KindText, Title: "Edit Microchip Number"},
	"pet_tat":               {Kind: domain.KindText, Title: "Edit Tattoo Information"},
	"pet_allergies":         {Kind: domain.KindText, Title: "Edit Allergies"},
	"pet_medications":       {Kind: domain.KindText, Title: "Edit Medications"},
	"pet_vaccinations":      {Kind: domain.KindText, Title: "Edit Vaccinations"},
	"pet_health_conditions": {Kind: domain.KindText, Title: "Edit Health Conditions"},
	"pet_social_instagram":  {Kind: domain.KindText, Title: "Edit Instagram"},
	"pet_social_tiktok":     {Kind: domain.KindText, Title: "Edit TikTok"},
	"pet_social_facebook":   {Kind: domain.KindText, Title: "Edit Facebook"},
	"pet_type":              {Kind: domain.KindChoice, Title: "Edit Type", Enum: PetType},
	"pet_gender":            {Kind: domain.KindChoice, Title: "Edit Gender", Enum: Gender},
	"pet_neutspay":          {Kind: domain.KindChoice, Title: "Edit Spayed/Neutered", Enum: TriState},
	"pet_birthday":          {Kind: domain.KindDate, Title: "Edit Birthday"},
	"pet_weight":            {Kind: domain.KindNumber, Title: "Edit Weight", Min: 1, Max: 999},
	VetContactField:         {Kind: domain.KindComposite, Title: "Edit Veterinarian", Prefix: VetPrefix},
}

// PrivacyFields are the per-field visibility toggles on the public profile.
var PrivacyFields = []string{
	"pet_hide_breed",
	"pet_hide_gender",
	"pet_hide_birthday",
	"pet_hide_notes",
	"pet_hide_tat",
	"pet_hide_mic",
	"pet_hide_neutspay",
	"pet_hide_lname",
	"pet_hide_cell",
	"pet_hide_address",
}

// Lookup returns the FieldSpec for a field id. Unknown ids are free text.
func Lookup(fieldID string) FieldSpec {
	if spec, ok := fieldTable[fieldID]; ok {
		return spec
	}
	return FieldSpec{Kind: domain.KindText}
}

// Fields returns the known field ids in ascending order.
func Fields() []string {
	out := make([]string, 0, len(fieldTable))
	for id := range fieldTable {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsPrivacyField reports whether the id is a visibility toggle.
func IsPrivacyField(fieldID string) bool {
	for _, f := range PrivacyFields {
		if f == fieldID {
			return true
		}
	}
	return false
}
