package server

import (
	"context"
	"fmt"

	"petcore/internal/capacity"
	"petcore/internal/fieldcodec"
	"petcore/internal/slots"
	"petcore/pkg/domain"
)

// tierView answers tier lookups from values resolved before the write.
type tierView map[string]string

func (v tierView) Tier(userID string) string { return v[userID] }

var slotNames = func() map[string]struct{} {
	out := make(map[string]struct{}, domain.PhotoSlotCount+domain.DocumentSlotCount)
	for _, c := range collections {
		prefix, n := c.SlotLayout()
		for _, name := range domain.SlotNames(prefix, n) {
			out[name] = struct{}{}
		}
	}
	return out
}()

func petRules() *domain.RulesEngine {
	return domain.NewRulesEngine(
		domain.RuleFunc{RuleName: "field_values", Fn: checkFieldValues},
		domain.RuleFunc{RuleName: "slot_capacity", Fn: checkSlotCapacity},
		domain.RuleFunc{RuleName: "privacy_flags", Fn: checkPrivacyFlags},
	)
}

func violation(rule string, sev domain.Severity, rec domain.Record, field, msg string, err error) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: sev,
		Message:  msg,
		Field:    field,
		Kind:     rec.Kind,
		RecordID: rec.ID,
		Err:      err,
	}
}

func changedKeys(ch domain.Change) []string {
	var out []string
	for _, k := range ch.After.Keys() {
		if old, ok := ch.Before.Fields[k]; !ok || old != ch.After.Fields[k] {
			out = append(out, k)
		}
	}
	return out
}

// checkFieldValues validates changed fields, plus required fields of new
// records. Slot-shaped keys must name a real slot.
func checkFieldValues(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, ch := range changes {
		keys := changedKeys(ch)
		if ch.Before.ID == "" {
			for _, id := range fieldcodec.Fields() {
				if fieldcodec.Lookup(id).Required {
					keys = append(keys, id)
				}
			}
		}
		for _, k := range keys {
			if _, isSlot := collectionOf(k); isSlot {
				if _, ok := slotNames[k]; !ok {
					err := fmt.Errorf("%s: %w", k, domain.ErrSlotNotFound)
					res.Violations = append(res.Violations, violation("field_values", domain.SeverityBlock, ch.After, k, "Unknown slot.", err))
				}
				continue
			}
			if err := validateWire(k, ch.After.Get(k)); err != nil {
				res.Violations = append(res.Violations, violation("field_values", domain.SeverityBlock, ch.After, k, domain.UserMessage(err), err))
			}
		}
	}
	return res, nil
}

// validateWire applies the checks a wire value can be held to without
// knowing which client wrote it.
func validateWire(fieldID, v string) error {
	spec := fieldcodec.Lookup(fieldID)
	switch {
	case spec.Kind == domain.KindText && spec.Required:
		return fieldcodec.Validate(fieldcodec.Decode(fieldID, v))
	case spec.Kind == domain.KindNumber && !isNull(v):
		return fieldcodec.Validate(fieldcodec.Decode(fieldID, v))
	}
	return nil
}

// checkSlotCapacity blocks writes that grow a collection past the owner's
// tier limit. Replacing or clearing is always allowed, so a downgraded user
// can still tidy up.
func checkSlotCapacity(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, ch := range changes {
		tier := view.Tier(ch.After.Get(ownerField))
		for _, c := range collections {
			after, err := slots.FromRecord(c, ch.After.Fields)
			if err != nil {
				return domain.Result{}, err
			}
			before, err := slots.FromRecord(c, ch.Before.Fields)
			if err != nil {
				return domain.Result{}, err
			}
			policy, _ := capacity.ForCollection(c)
			limit := policy.MaxFor(tier)
			if n := after.OccupiedCount(); n > before.OccupiedCount() && n > limit {
				err := fmt.Errorf("%s %d > %d: %w", c, n, limit, domain.ErrCapacityReached)
				res.Violations = append(res.Violations, violation("slot_capacity", domain.SeverityBlock, ch.After, string(c), domain.UserMessage(err), err))
			}
		}
	}
	return res, nil
}

// checkPrivacyFlags warns about visibility toggles outside "0"/"1".
func checkPrivacyFlags(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, ch := range changes {
		for _, k := range changedKeys(ch) {
			if !fieldcodec.IsPrivacyField(k) {
				continue
			}
			if v := ch.After.Get(k); v != "0" && v != "1" {
				res.Violations = append(res.Violations, violation("privacy_flags", domain.SeverityWarn, ch.After, k, fmt.Sprintf("unexpected privacy value %q", v), nil))
			}
		}
	}
	return res, nil
}

// check runs the pet rules on one write, logging warnings.
func (s *Server) check(ctx context.Context, view domain.RuleView, before, after domain.Record) error {
	res, err := s.rules.Check(ctx, view, domain.Change{Before: before, After: after})
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule warning", "rule", v.Rule, "pet", v.RecordID, "field", v.Field, "message", v.Message)
		}
	}
	return err
}
