// Package capacity maps subscription tiers to the maximum number of occupied
// slots in each bounded collection.
package capacity

import (
	"fmt"
	"sort"

	"petcore/pkg/domain"
)

// Subscription tier names as reported by the subscription endpoint. Two
// naming generations exist on the server and both are honoured.
const (
	TierPro          = "Emergency Leash Pro"
	TierPlus         = "Emergency Leash Plus"
	TierMultipleTags = "Emergency Leash Multiple Tags"
	TierOneTag       = "Emergency Leash One Tag"
	TierTagOnly      = "Emergency Leash Tag"
	TierNone         = ""
)

// Policy is a lookup table from exact tier name to a maximum occupied count.
// Unknown and absent tiers get the floor, which is the smallest value in the
// table.
type Policy struct {
	name   string
	limits map[string]int
	floor  int
}

// New constructs a policy and verifies the floor is the table minimum.
func New(name string, floor int, limits map[string]int) (Policy, error) {
	for tier, max := range limits {
		if max < floor {
			return Policy{}, fmt.Errorf("%s: tier %q limit %d below floor %d", name, tier, max, floor)
		}
	}
	cp := make(map[string]int, len(limits))
	for k, v := range limits {
		cp[k] = v
	}
	return Policy{name: name, limits: cp, floor: floor}, nil
}

func mustNew(name string, floor int, limits map[string]int) Policy {
	p, err := New(name, floor, limits)
	if err != nil {
		panic(err)
	}
	return p
}

// Name identifies the collection the policy governs.
func (p Policy) Name() string { return p.name }

// Floor returns the limit applied to unrecognized tiers.
func (p Policy) Floor() int { return p.floor }

// MaxFor returns the limit for the tier. Matching is exact and case-sensitive.
func (p Policy) MaxFor(tier string) int {
	if max, ok := p.limits[tier]; ok {
		return max
	}
	return p.floor
}

// Tiers returns the explicitly configured tier names in ascending order.
func (p Policy) Tiers() []string {
	out := make([]string, 0, len(p.limits))
	for k := range p.limits {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate ensures no tier may exceed the size of the slot table.
func (p Policy) Validate(slotCount int) error {
	if p.floor > slotCount {
		return fmt.Errorf("%s: floor %d exceeds %d slots", p.name, p.floor, slotCount)
	}
	for _, tier := range p.Tiers() {
		if max := p.limits[tier]; max > slotCount {
			return fmt.Errorf("%s: tier %q limit %d exceeds %d slots", p.name, tier, max, slotCount)
		}
	}
	return nil
}

// Built-in policies.
var (
	Gallery = mustNew("gallery", 5, map[string]int{
		TierPro:          40,
		TierMultipleTags: 40,
		TierPlus:         30,
		TierOneTag:       30,
	})
	Documents = mustNew("documents", 2, map[string]int{
		TierPro:          10,
		TierMultipleTags: 10,
		TierPlus:         5,
		TierOneTag:       5,
	})
	EmergencyContacts = mustNew("emergency_contacts", 5, map[string]int{
		TierPro:          10,
		TierMultipleTags: 10,
		TierPlus:         10,
		TierOneTag:       10,
	})
	// Admins bounds the account admin rows; unpaid accounts get none.
	Admins = mustNew("admins", 0, map[string]int{
		TierPro:          10,
		TierMultipleTags: 10,
		TierPlus:         10,
		TierOneTag:       10,
	})
)

// ForCollection returns the policy governing a slot collection.
func ForCollection(c domain.Collection) (Policy, bool) {
	switch c {
	case domain.CollectionPhotos:
		return Gallery, true
	case domain.CollectionDocuments:
		return Documents, true
	default:
		return Policy{}, false
	}
}

// HolidayModeEnabled reports whether caretaker holiday-mode dates are offered.
func HolidayModeEnabled(tier string) bool {
	return tier == TierMultipleTags || tier == TierOneTag || tier == TierPro || tier == TierPlus
}

// AlertSettingsEnabled reports whether push alert preferences are editable.
func AlertSettingsEnabled(tier string) bool {
	return tier == TierPro || tier == TierPlus
}

// DisplayName renders the tier for the subscription screen.
func DisplayName(tier string) string {
	switch tier {
	case TierPlus:
		return "Emergency Leash Plus (One Tag)"
	case TierPro:
		return "Emergency Leash Pro (Multiple Tag)"
	case TierNone:
		return "No Subscription"
	default:
		return tier
	}
}
