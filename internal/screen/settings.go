package screen

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"petcore/internal/capacity"
	"petcore/internal/dirty"
	"petcore/internal/fieldcodec"
	"petcore/internal/task"
	"petcore/internal/transport"
	"petcore/pkg/domain"
)

// SettingsAPI is the part of the profile service a settings form uses.
type SettingsAPI interface {
	FetchSettings(ctx context.Context, doc transport.SettingsDoc) (domain.Record, error)
	FetchTier(ctx context.Context) (string, error)
	SaveSettings(ctx context.Context, doc transport.SettingsDoc, fields map[string]string) (transport.Envelope, error)
}

// RowGroup is the repeated part of a settings form. On the wire each
// sub-field carries a 1-based row suffix (admin_cell3).
type RowGroup struct {
	Name      string
	Subfields []string
	// Policy sets the row count from the tier.
	Policy capacity.Policy
	// Compact moves rows with any value up on load, closing gaps.
	Compact bool
}

// Layout describes a settings form: its document, static fields and an
// optional repeated group. Fields listed in Enums hold wire codes.
type Layout struct {
	Doc    transport.SettingsDoc
	Static []string
	Enums  map[string]*fieldcodec.Enum
	Group  *RowGroup
}

// Billing and shipping address fields in form order.
var AddressFields = []string{
	"billing_first_name", "billing_last_name", "billing_company",
	"billing_address_1", "billing_address_2",
	"billing_city", "billing_state", "billing_postcode",
	"billing_phone", "billing_email",
	"shipping_first_name", "shipping_last_name", "shipping_company",
	"shipping_address_1", "shipping_address_2",
	"shipping_city", "shipping_state", "shipping_postcode",
	"shipping_phone",
}

// Admin contact sub-fields.
const (
	AdminFirstName = "admin_first_name"
	AdminLastName  = "admin_last_name"
	AdminCell      = "admin_cell"
	AdminEmail     = "admin_email"
)

// Built-in settings layouts.
var (
	AddressesLayout = Layout{Doc: transport.AddressesDoc, Static: AddressFields}
	AdminsLayout    = Layout{
		Doc: transport.AdminsDoc,
		Group: &RowGroup{
			Name:      "admins",
			Subfields: []string{AdminFirstName, AdminLastName, AdminCell, AdminEmail},
			Policy:    capacity.Admins,
			Compact:   true,
		},
	}
	MeasurementsLayout = Layout{
		Doc:    transport.MeasurementsDoc,
		Static: []string{fieldcodec.MeasurementField},
		Enums:  map[string]*fieldcodec.Enum{fieldcodec.MeasurementField: fieldcodec.Measurement},
	}
)

// Form builds the tracked form for a settings record. Null values load as
// empty and enum fields are normalized to their code.
func (l Layout) Form(fields map[string]string, tier string) dirty.Form {
	static := make(map[string]string, len(l.Static))
	for _, k := range l.Static {
		v := clean(fields[k])
		if e, ok := l.Enums[k]; ok {
			v, _ = e.Encode(e.Decode(v))
		}
		static[k] = v
	}
	f := dirty.Form{Static: static}
	if l.Group == nil {
		return f
	}
	g := l.Group
	var found []dirty.Row
	for i := 1; ; i++ {
		row := make(dirty.Row, len(g.Subfields))
		present, filled := false, false
		for _, sub := range g.Subfields {
			raw, ok := fields[sub+strconv.Itoa(i)]
			present = present || ok
			row[sub] = clean(raw)
			filled = filled || row[sub] != ""
		}
		if !present {
			break
		}
		if filled || !g.Compact {
			found = append(found, row)
		}
	}
	rows := make([]dirty.Row, g.Policy.MaxFor(tier))
	for i := range rows {
		if i < len(found) {
			rows[i] = found[i]
			continue
		}
		row := make(dirty.Row, len(g.Subfields))
		for _, sub := range g.Subfields {
			row[sub] = ""
		}
		rows[i] = row
	}
	f.Groups = map[string][]dirty.Row{g.Name: rows}
	return f
}

// Settings drives one settings form.
type Settings struct {
	api    SettingsAPI
	scope  *task.Scope
	opts   options
	layout Layout

	state   State
	static  map[string]string
	rows    []dirty.Row
	tracker dirty.Tracker
}

// NewSettings creates a controller for layout.
func NewSettings(api SettingsAPI, scope *task.Scope, layout Layout, opts ...Option) *Settings {
	return &Settings{
		api:    api,
		scope:  scope,
		opts:   buildOptions(opts),
		layout: layout,
		static: map[string]string{},
	}
}

// NewAddresses creates the billing and shipping addresses form.
func NewAddresses(api SettingsAPI, scope *task.Scope, opts ...Option) *Settings {
	return NewSettings(api, scope, AddressesLayout, opts...)
}

// NewAdmins creates the account admins form.
func NewAdmins(api SettingsAPI, scope *task.Scope, opts ...Option) *Settings {
	return NewSettings(api, scope, AdminsLayout, opts...)
}

// NewMeasurements creates the unit preference form.
func NewMeasurements(api SettingsAPI, scope *task.Scope, opts ...Option) *Settings {
	return NewSettings(api, scope, MeasurementsLayout, opts...)
}

func (s *Settings) dispatch(a Action) { s.state = Reduce(s.state, a) }

// State returns the current UI state.
func (s *Settings) State() State { return Reduce(s.state, nil) }

// Dispose cancels outstanding calls.
func (s *Settings) Dispose() { s.scope.Dispose() }

func (s *Settings) op(name string) string {
	return string(s.layout.Doc.Kind) + "." + name
}

// Load fetches the document. The tier is fetched as well when the form has
// a repeated group, since it decides the row count; a failed tier lookup
// falls back to the floor.
func (s *Settings) Load(done func(error)) error {
	if s.state.IsBusy(controlLoad) {
		return ErrBusy
	}
	s.dispatch(Begin{Control: controlLoad})
	s.dispatch(LoadStarted{})
	var (
		rec  domain.Record
		tier string
	)
	started := time.Now()
	ok := s.scope.Go(func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			rec, err = s.api.FetchSettings(gctx, s.layout.Doc)
			return err
		})
		if s.layout.Group != nil {
			g.Go(func() error {
				t, err := s.api.FetchTier(gctx)
				if err != nil {
					s.opts.logger.Warn("subscription lookup failed", "error", err)
					return nil
				}
				tier = t
				return nil
			})
		}
		return g.Wait()
	}, func(err error) {
		s.opts.metrics.Observe(s.scope.Context(), s.op("load"), err == nil, time.Since(started))
		s.dispatch(Finish{Control: controlLoad})
		if err != nil {
			s.opts.logger.Error("load settings failed", "doc", s.layout.Doc.Label, "error", err)
			s.dispatch(LoadFinished{Message: "Failed to load form data."})
		} else {
			f := s.layout.Form(rec.Fields, tier)
			s.static = f.Static
			s.rows = nil
			if s.layout.Group != nil {
				s.rows = f.Groups[s.layout.Group.Name]
			}
			s.tracker.Snapshot(s.form())
			s.dispatch(LoadFinished{OK: true, Tier: tier})
		}
		if done != nil {
			done(err)
		}
	})
	if !ok {
		s.dispatch(Finish{Control: controlLoad})
		return task.ErrDisposed
	}
	return nil
}

func (s *Settings) form() dirty.Form {
	static := make(map[string]string, len(s.static))
	for k, v := range s.static {
		static[k] = v
	}
	f := dirty.Form{Static: static}
	if s.layout.Group == nil {
		return f
	}
	rows := make([]dirty.Row, len(s.rows))
	for i, r := range s.rows {
		cp := make(dirty.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		rows[i] = cp
	}
	f.Groups = map[string][]dirty.Row{s.layout.Group.Name: rows}
	return f
}

// Value returns a static field; enum fields return their code.
func (s *Settings) Value(field string) string { return s.static[field] }

// Label returns the display label of an enum field, or its value otherwise.
func (s *Settings) Label(field string) string {
	if e, ok := s.layout.Enums[field]; ok {
		return e.Decode(s.static[field])
	}
	return s.static[field]
}

// SetValue records user input in a static field. Enum fields take a label
// or a code.
func (s *Settings) SetValue(field, v string) error {
	if _, ok := s.static[field]; !ok {
		return fmt.Errorf("%s field %q: %w", s.layout.Doc.Label, field, domain.ErrParseFailure)
	}
	if e, ok := s.layout.Enums[field]; ok {
		code, err := e.Encode(v)
		if err != nil {
			return err
		}
		v = code
	}
	s.static[field] = v
	return nil
}

// RowCount returns the number of repeated rows shown.
func (s *Settings) RowCount() int { return len(s.rows) }

// RowValue returns a sub-field of row i (0-based).
func (s *Settings) RowValue(i int, sub string) string {
	if i < 0 || i >= len(s.rows) {
		return ""
	}
	return s.rows[i][sub]
}

// SetRowValue records user input in row i.
func (s *Settings) SetRowValue(i int, sub, v string) error {
	if i < 0 || i >= len(s.rows) {
		return fmt.Errorf("%s row %d: %w", s.layout.Doc.Label, i+1, domain.ErrSlotNotFound)
	}
	if _, ok := s.rows[i][sub]; !ok {
		return fmt.Errorf("%s field %q: %w", s.layout.Doc.Label, sub, domain.ErrParseFailure)
	}
	s.rows[i][sub] = v
	return nil
}

// HasChanges reports whether the form differs from the last loaded or saved
// values.
func (s *Settings) HasChanges() bool { return s.tracker.HasChanges(s.form()) }

// Changed lists the snapshot keys that differ.
func (s *Settings) Changed() []string { return s.tracker.Changed(s.form()) }

// WireFields renders the full form with 1-based row keys.
func (s *Settings) WireFields() map[string]string {
	out := make(map[string]string, len(s.static))
	for k, v := range s.static {
		out[k] = v
	}
	for i, r := range s.rows {
		for sub, v := range r {
			out[sub+strconv.Itoa(i+1)] = v
		}
	}
	return out
}

// Save sends the full form and re-baselines from the sent values on success.
func (s *Settings) Save(done func(error)) error {
	if !s.state.Loaded {
		return ErrNotLoaded
	}
	if s.state.IsBusy(controlSave) {
		return ErrBusy
	}
	sent := s.form()
	fields := s.WireFields()
	s.dispatch(Begin{Control: controlSave})
	var env transport.Envelope
	started := time.Now()
	ok := s.scope.Go(func(ctx context.Context) error {
		var err error
		env, err = s.api.SaveSettings(ctx, s.layout.Doc, fields)
		return err
	}, func(err error) {
		s.opts.metrics.Observe(s.scope.Context(), s.op("save"), err == nil, time.Since(started))
		msg := env.Message
		if err != nil {
			s.opts.logger.Warn("save settings failed", "doc", s.layout.Doc.Label, "error", err)
			msg = domain.UserMessage(err)
		} else {
			s.tracker.Snapshot(sent)
			if msg == "" {
				msg = "Saved."
			}
		}
		s.dispatch(Finish{Control: controlSave, Message: msg})
		if done != nil {
			done(err)
		}
	})
	if !ok {
		s.dispatch(Finish{Control: controlSave})
		return task.ErrDisposed
	}
	return nil
}
