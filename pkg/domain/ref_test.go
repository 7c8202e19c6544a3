package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseRef(t *testing.T) {
	cases := []struct {
		raw   string
		state RefState
		value string
	}{
		{"", RefUnset, ""},
		{"   ", RefUnset, ""},
		{"null", RefPlaceholder, ""},
		{"NULL", RefPlaceholder, ""},
		{"False", RefPlaceholder, ""},
		{"not a url", RefPlaceholder, ""},
		{"image_upload", RefPlaceholder, ""},
		{"https://x/a.jpg", RefPresent, "https://x/a.jpg"},
		{" https://cdn.example.com/p/1.jpg ", RefPresent, "https://cdn.example.com/p/1.jpg"},
		{"www.example.com/doc.pdf", RefPresent, "www.example.com/doc.pdf"},
		{"http://127.0.0.1:9000/a", RefPresent, "http://127.0.0.1:9000/a"},
		{"ftp://example.com/a", RefPlaceholder, ""},
	}
	for _, tc := range cases {
		ref := ParseRef(tc.raw)
		if ref.State() != tc.state {
			t.Errorf("ParseRef(%q) state = %s, want %s", tc.raw, ref.State(), tc.state)
		}
		if ref.Value() != tc.value {
			t.Errorf("ParseRef(%q) value = %q, want %q", tc.raw, ref.Value(), tc.value)
		}
		if ref.Raw() != tc.raw {
			t.Errorf("ParseRef(%q) raw = %q", tc.raw, ref.Raw())
		}
	}
}

func TestIsWebURLSingleLabelHost(t *testing.T) {
	if !IsWebURL("https://x/a.jpg") {
		t.Fatalf("explicit scheme with single-label host must be accepted")
	}
	if IsWebURL("x") {
		t.Fatalf("bare word must not be a web url")
	}
}

func TestPresentRef(t *testing.T) {
	if PresentRef("").Present() {
		t.Fatalf("empty value must not be present")
	}
	ref := PresentRef("content://media/1")
	if !ref.Present() || ref.Value() != "content://media/1" {
		t.Fatalf("unexpected ref %+v", ref)
	}
}

func TestErrorClassification(t *testing.T) {
	local := []error{
		ErrSlotsExhausted,
		fmt.Errorf("upload: %w", ErrSlotsExhausted),
		ErrEmptyRequiredField,
		ErrParseFailure,
		ErrCapacityReached,
	}
	for _, err := range local {
		if !IsLocal(err) {
			t.Errorf("expected %v to be local", err)
		}
		if IsRemote(err) {
			t.Errorf("expected %v not to be remote", err)
		}
	}
	remote := []error{
		&TransportError{Op: "upload", Err: errors.New("refused")},
		fmt.Errorf("save: %w", &ServerRejectedError{Op: "save", Status: 500}),
	}
	for _, err := range remote {
		if IsLocal(err) || !IsRemote(err) {
			t.Errorf("expected %v to be remote", err)
		}
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Fatalf("nil error message = %q", got)
	}
	if got := UserMessage(&ServerRejectedError{Op: "save", Status: 400, Message: "bad zip"}); got != "bad zip" {
		t.Fatalf("server message = %q", got)
	}
	if got := UserMessage(&TransportError{Op: "save", Err: errors.New("x")}); got != "Failed to update. Please try again." {
		t.Fatalf("transport message = %q", got)
	}
	if got := UserMessage(ErrSlotsExhausted); got != "No available slots." {
		t.Fatalf("slots message = %q", got)
	}
}

func TestRecordHelpers(t *testing.T) {
	rec := NewRecord(RecordPet, "p1")
	rec.Merge(map[string]string{"pet_name": "Rex", "pet_type": "Dog"})
	clone := rec.Clone()
	clone.Fields["pet_name"] = "Max"
	if rec.Get("pet_name") != "Rex" {
		t.Fatalf("clone must not alias fields")
	}
	if got := rec.Keys(); len(got) != 2 || got[0] != "pet_name" {
		t.Fatalf("keys = %v", got)
	}
	var empty Record
	if empty.Get("x") != "" {
		t.Fatalf("nil fields must read as empty")
	}
}

func TestSlotLayout(t *testing.T) {
	prefix, n := CollectionPhotos.SlotLayout()
	if prefix != "pet_photo" || n != 40 {
		t.Fatalf("photos layout = %s %d", prefix, n)
	}
	prefix, n = CollectionDocuments.SlotLayout()
	if prefix != "pet_doc" || n != 10 {
		t.Fatalf("documents layout = %s %d", prefix, n)
	}
	names := SlotNames("pet_doc", 3)
	if names[0] != "pet_doc1" || names[2] != "pet_doc3" {
		t.Fatalf("names = %v", names)
	}
}
