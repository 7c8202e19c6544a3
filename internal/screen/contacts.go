package screen

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"petcore/internal/capacity"
	"petcore/internal/dirty"
	"petcore/internal/task"
	"petcore/internal/transport"
	"petcore/pkg/domain"
)

// ContactsAPI is the part of the profile service the contacts screen uses.
type ContactsAPI interface {
	FetchContacts(ctx context.Context) (domain.Record, error)
	FetchTier(ctx context.Context) (string, error)
	SaveContacts(ctx context.Context, fields map[string]string) (transport.Envelope, error)
}

// Caretaker fields shown on the contacts screen.
const (
	CaretakerFirstName = "cc_first_name"
	CaretakerLastName  = "cc_last_name"
	CaretakerCell      = "cc_cell"
	CaretakerEmail     = "cc_email"
	HolidayStart       = "cc_hm_start"
	HolidayEnd         = "cc_hm_end"
)

// CaretakerFields lists the static fields in form order.
var CaretakerFields = []string{
	CaretakerFirstName, CaretakerLastName, CaretakerCell, CaretakerEmail, HolidayStart, HolidayEnd,
}

// Emergency contact sub-fields. On the wire they carry a 1-based suffix
// (ec_cell3); in the change-tracking snapshot a 0-based one under the group
// name (emergency_contacts.ec_cell_2).
const (
	ContactFirstName = "ec_first_name"
	ContactLastName  = "ec_last_name"
	ContactCell      = "ec_cell"
	ContactEmail     = "ec_email"
)

// ContactSubfields lists the sub-fields of one emergency contact row.
var ContactSubfields = []string{ContactFirstName, ContactLastName, ContactCell, ContactEmail}

const (
	controlSave  = "save"
	contactGroup = "emergency_contacts"
)

// Contacts drives the caretaker and emergency contacts form.
type Contacts struct {
	api   ContactsAPI
	scope *task.Scope
	opts  options

	state   State
	static  map[string]string
	rows    []dirty.Row
	tracker dirty.Tracker
}

// NewContacts creates the controller.
func NewContacts(api ContactsAPI, scope *task.Scope, opts ...Option) *Contacts {
	return &Contacts{
		api:    api,
		scope:  scope,
		opts:   buildOptions(opts),
		static: map[string]string{},
	}
}

func (c *Contacts) dispatch(a Action) { c.state = Reduce(c.state, a) }

// State returns the current UI state.
func (c *Contacts) State() State { return Reduce(c.state, nil) }

// Dispose cancels outstanding calls.
func (c *Contacts) Dispose() { c.scope.Dispose() }

// HolidayModeVisible reports whether the holiday date fields are offered.
func (c *Contacts) HolidayModeVisible() bool { return capacity.HolidayModeEnabled(c.state.Tier) }

// RowCount returns the number of emergency contact rows shown.
func (c *Contacts) RowCount() int { return len(c.rows) }

// Load fetches the form values and the tier; the tier decides how many
// emergency contact rows are shown.
func (c *Contacts) Load(done func(error)) error {
	if c.state.IsBusy(controlLoad) {
		return ErrBusy
	}
	c.dispatch(Begin{Control: controlLoad})
	c.dispatch(LoadStarted{})
	var (
		rec  domain.Record
		tier string
	)
	started := time.Now()
	ok := c.scope.Go(func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			rec, err = c.api.FetchContacts(gctx)
			return err
		})
		g.Go(func() error {
			t, err := c.api.FetchTier(gctx)
			if err != nil {
				c.opts.logger.Warn("subscription lookup failed", "error", err)
				return nil
			}
			tier = t
			return nil
		})
		return g.Wait()
	}, func(err error) {
		c.opts.metrics.Observe(c.scope.Context(), "contacts.load", err == nil, time.Since(started))
		c.dispatch(Finish{Control: controlLoad})
		if err != nil {
			c.opts.logger.Error("load contacts failed", "error", err)
			c.dispatch(LoadFinished{Message: "Failed to load form data."})
		} else {
			c.apply(rec.Fields, tier)
			c.dispatch(LoadFinished{OK: true, Tier: tier})
		}
		if done != nil {
			done(err)
		}
	})
	if !ok {
		return task.ErrDisposed
	}
	return nil
}

func clean(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), "null") {
		return ""
	}
	return v
}

// ContactsForm builds the tracked form for a contacts record: the caretaker
// fields plus as many emergency contact rows as the tier allows.
func ContactsForm(fields map[string]string, tier string) dirty.Form {
	static := make(map[string]string, len(CaretakerFields))
	for _, k := range CaretakerFields {
		static[k] = clean(fields[k])
	}
	rows := make([]dirty.Row, capacity.EmergencyContacts.MaxFor(tier))
	for i := range rows {
		row := make(dirty.Row, len(ContactSubfields))
		for _, sub := range ContactSubfields {
			row[sub] = clean(fields[sub+strconv.Itoa(i+1)])
		}
		rows[i] = row
	}
	return dirty.Form{Static: static, Groups: map[string][]dirty.Row{contactGroup: rows}}
}

func (c *Contacts) apply(fields map[string]string, tier string) {
	f := ContactsForm(fields, tier)
	c.static = f.Static
	c.rows = f.Groups[contactGroup]
	c.tracker.Snapshot(c.form())
}

func (c *Contacts) form() dirty.Form {
	static := make(map[string]string, len(c.static))
	for k, v := range c.static {
		static[k] = v
	}
	rows := make([]dirty.Row, len(c.rows))
	for i, r := range c.rows {
		cp := make(dirty.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		rows[i] = cp
	}
	return dirty.Form{Static: static, Groups: map[string][]dirty.Row{contactGroup: rows}}
}

// Value returns a caretaker field.
func (c *Contacts) Value(field string) string { return c.static[field] }

// SetValue records user input in a caretaker field.
func (c *Contacts) SetValue(field, v string) error {
	if _, ok := c.static[field]; !ok {
		return fmt.Errorf("contacts field %q: %w", field, domain.ErrParseFailure)
	}
	c.static[field] = v
	return nil
}

// RowValue returns a sub-field of emergency contact row i (0-based).
func (c *Contacts) RowValue(i int, sub string) string {
	if i < 0 || i >= len(c.rows) {
		return ""
	}
	return c.rows[i][sub]
}

// SetRowValue records user input in an emergency contact row.
func (c *Contacts) SetRowValue(i int, sub, v string) error {
	if i < 0 || i >= len(c.rows) {
		return fmt.Errorf("emergency contact %d: %w", i+1, domain.ErrSlotNotFound)
	}
	if _, ok := c.rows[i][sub]; !ok {
		return fmt.Errorf("emergency contact field %q: %w", sub, domain.ErrParseFailure)
	}
	c.rows[i][sub] = v
	return nil
}

// HasChanges reports whether the form differs from the last loaded or saved
// values; it drives the unsaved-changes prompt.
func (c *Contacts) HasChanges() bool { return c.tracker.HasChanges(c.form()) }

// Changed lists the snapshot keys that differ.
func (c *Contacts) Changed() []string { return c.tracker.Changed(c.form()) }

// WireFields renders the full form with 1-based emergency contact keys.
func (c *Contacts) WireFields() map[string]string {
	out := make(map[string]string, len(c.static)+len(c.rows)*len(ContactSubfields))
	for k, v := range c.static {
		out[k] = v
	}
	for i, r := range c.rows {
		for sub, v := range r {
			out[sub+strconv.Itoa(i+1)] = v
		}
	}
	return out
}

// Save sends the full form. On success the baseline is replaced with the
// values that were sent, so no refetch is needed.
func (c *Contacts) Save(done func(error)) error {
	if !c.state.Loaded {
		return ErrNotLoaded
	}
	if c.state.IsBusy(controlSave) {
		return ErrBusy
	}
	sent := c.form()
	fields := c.WireFields()
	c.dispatch(Begin{Control: controlSave})
	var env transport.Envelope
	started := time.Now()
	ok := c.scope.Go(func(ctx context.Context) error {
		var err error
		env, err = c.api.SaveContacts(ctx, fields)
		return err
	}, func(err error) {
		c.opts.metrics.Observe(c.scope.Context(), "contacts.save", err == nil, time.Since(started))
		msg := env.Message
		if err != nil {
			c.opts.logger.Warn("save contacts failed", "error", err)
			msg = domain.UserMessage(err)
		} else {
			c.tracker.Snapshot(sent)
			if msg == "" {
				msg = "Saved."
			}
		}
		c.dispatch(Finish{Control: controlSave, Message: msg})
		if done != nil {
			done(err)
		}
	})
	if !ok {
		c.dispatch(Finish{Control: controlSave})
		return task.ErrDisposed
	}
	return nil
}
