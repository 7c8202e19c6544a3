package capacity

import (
	"testing"

	"petcore/pkg/domain"
)

func TestMaxForTables(t *testing.T) {
	cases := []struct {
		policy Policy
		tier   string
		want   int
	}{
		{Gallery, TierPro, 40},
		{Gallery, TierMultipleTags, 40},
		{Gallery, TierPlus, 30},
		{Gallery, TierOneTag, 30},
		{Gallery, TierTagOnly, 5},
		{Gallery, TierNone, 5},
		{Gallery, "emergency leash pro", 5}, // case-sensitive
		{Documents, TierPro, 10},
		{Documents, TierPlus, 5},
		{Documents, "", 2},
		{EmergencyContacts, TierOneTag, 10},
		{EmergencyContacts, "Free", 5},
		{Admins, TierPlus, 10},
		{Admins, TierNone, 0},
	}
	for _, tc := range cases {
		if got := tc.policy.MaxFor(tc.tier); got != tc.want {
			t.Errorf("%s.MaxFor(%q) = %d, want %d", tc.policy.Name(), tc.tier, got, tc.want)
		}
	}
}

func TestFloorIsSmallest(t *testing.T) {
	for _, p := range []Policy{Gallery, Documents, EmergencyContacts, Admins} {
		for _, tier := range p.Tiers() {
			if p.MaxFor(tier) < p.Floor() {
				t.Errorf("%s: tier %q below floor", p.Name(), tier)
			}
		}
	}
	if _, err := New("bad", 10, map[string]int{"x": 3}); err == nil {
		t.Fatalf("expected error for limit below floor")
	}
}

func TestValidateAgainstSlotTables(t *testing.T) {
	if err := Gallery.Validate(domain.PhotoSlotCount); err != nil {
		t.Fatalf("gallery: %v", err)
	}
	if err := Documents.Validate(domain.DocumentSlotCount); err != nil {
		t.Fatalf("documents: %v", err)
	}
	if err := Gallery.Validate(10); err == nil {
		t.Fatalf("expected gallery limits to exceed a 10-slot table")
	}
	small := mustNew("tiny", 3, nil)
	if err := small.Validate(2); err == nil {
		t.Fatalf("expected floor to exceed table")
	}
}

func TestForCollection(t *testing.T) {
	p, ok := ForCollection(domain.CollectionPhotos)
	if !ok || p.Name() != "gallery" {
		t.Fatalf("photos policy = %v %v", p.Name(), ok)
	}
	p, ok = ForCollection(domain.CollectionDocuments)
	if !ok || p.Name() != "documents" {
		t.Fatalf("documents policy = %v %v", p.Name(), ok)
	}
	if _, ok := ForCollection("other"); ok {
		t.Fatalf("unexpected policy for unknown collection")
	}
}

func TestFeatureGates(t *testing.T) {
	if !HolidayModeEnabled(TierOneTag) || HolidayModeEnabled(TierNone) {
		t.Fatalf("holiday mode gate wrong")
	}
	if !AlertSettingsEnabled(TierPro) || AlertSettingsEnabled(TierMultipleTags) {
		t.Fatalf("alert settings gate wrong")
	}
	if DisplayName(TierPlus) != "Emergency Leash Plus (One Tag)" || DisplayName("") != "No Subscription" {
		t.Fatalf("display names wrong")
	}
	if DisplayName("Custom") != "Custom" {
		t.Fatalf("unknown tiers pass through")
	}
}
