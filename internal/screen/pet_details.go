package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"petcore/internal/capacity"
	"petcore/internal/dirty"
	"petcore/internal/edit"
	"petcore/internal/fieldcodec"
	"petcore/internal/slots"
	"petcore/internal/task"
	"petcore/internal/transport"
	"petcore/pkg/domain"
)

// PetAPI is the part of the profile service the pet details screen uses.
type PetAPI interface {
	FetchPet(ctx context.Context, petID string) (domain.Record, error)
	FetchTier(ctx context.Context) (string, error)
	UpdatePet(ctx context.Context, petID string, fields map[string]string) (transport.Envelope, error)
	UpdatePrivacy(ctx context.Context, petID, fieldID, value string) (transport.Envelope, error)
	Upload(ctx context.Context, petID, slot string, file transport.File) (transport.UploadResult, error)
}

// Collapsible sections of the pet details screen.
const (
	SectionPrivacy   = "privacy"
	SectionHealth    = "health"
	SectionVet       = "vet"
	SectionDocuments = "documents"
)

const controlLoad = "load"

func editControl(fieldID string) string        { return "edit:" + fieldID }
func privacyControl(fieldID string) string     { return "privacy:" + fieldID }
func uploadControl(c domain.Collection) string { return "upload:" + string(c) }

var collections = []domain.Collection{domain.CollectionPhotos, domain.CollectionDocuments}

// PetDetails drives the pet details screen. All methods must be called from
// the goroutine that runs the scope's dispatcher.
type PetDetails struct {
	api   PetAPI
	scope *task.Scope
	opts  options
	petID string

	state      State
	record     domain.Record
	registries map[domain.Collection]*slots.Registry
	lists      map[domain.Collection]*slots.List
	tracker    dirty.Tracker
	session    *edit.Session
}

// NewPetDetails creates the controller for one pet.
func NewPetDetails(api PetAPI, scope *task.Scope, petID string, opts ...Option) *PetDetails {
	return &PetDetails{
		api:        api,
		scope:      scope,
		opts:       buildOptions(opts),
		petID:      petID,
		record:     domain.NewRecord(domain.RecordPet, petID),
		registries: map[domain.Collection]*slots.Registry{},
		lists:      map[domain.Collection]*slots.List{},
	}
}

func (p *PetDetails) dispatch(a Action) { p.state = Reduce(p.state, a) }

// State returns the current UI state.
func (p *PetDetails) State() State { return Reduce(p.state, nil) }

// Record returns a copy of the visible record.
func (p *PetDetails) Record() domain.Record { return p.record.Clone() }

// Tier returns the subscription tier in effect.
func (p *PetDetails) Tier() string { return p.state.Tier }

// Dispose cancels outstanding calls; their completions are dropped.
func (p *PetDetails) Dispose() { p.scope.Dispose() }

// ToggleSection expands or collapses a section.
func (p *PetDetails) ToggleSection(section string) { p.dispatch(ToggleSection{Section: section}) }

// Load fetches the pet and the subscription tier, then rebuilds slot
// registries, projections and the change-tracking baseline.
func (p *PetDetails) Load(done func(error)) error {
	if p.state.IsBusy(controlLoad) {
		return ErrBusy
	}
	p.dispatch(Begin{Control: controlLoad})
	p.dispatch(LoadStarted{})

	var (
		rec  domain.Record
		tier string
	)
	started := time.Now()
	ok := p.scope.Go(func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			rec, err = p.api.FetchPet(gctx, p.petID)
			return err
		})
		g.Go(func() error {
			t, err := p.api.FetchTier(gctx)
			if err != nil {
				p.opts.logger.Warn("subscription lookup failed", "error", err)
				return nil
			}
			tier = t
			return nil
		})
		return g.Wait()
	}, func(err error) {
		p.opts.metrics.Observe(p.scope.Context(), "pet.load", err == nil, time.Since(started))
		p.dispatch(Finish{Control: controlLoad})
		if err != nil {
			p.opts.logger.Error("load pet failed", "pet_id", p.petID, "error", err)
			p.dispatch(LoadFinished{Message: "Failed to fetch pet details."})
		} else {
			p.apply(rec, tier)
			p.dispatch(LoadFinished{OK: true, Tier: tier})
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

func (p *PetDetails) apply(rec domain.Record, tier string) {
	rec.ID = p.petID
	rec.Kind = domain.RecordPet
	if rec.Fields == nil {
		rec.Fields = map[string]string{}
	}
	p.record = rec
	for _, c := range collections {
		reg, err := slots.FromRecord(c, rec.Fields)
		if err != nil {
			p.opts.logger.Error("slot table", "collection", c, "error", err)
			continue
		}
		p.registries[c] = reg
		p.lists[c] = slots.NewList(reg, p.capacityFor(c, tier))
	}
	p.tracker.Snapshot(p.form())
}

func (p *PetDetails) capacityFor(c domain.Collection, tier string) int {
	policy, ok := capacity.ForCollection(c)
	if !ok {
		return 0
	}
	return policy.MaxFor(tier)
}

// Capacity returns the occupied-slot limit for a collection under the
// current tier.
func (p *PetDetails) Capacity(c domain.Collection) int { return p.capacityFor(c, p.state.Tier) }

// Items returns the projected list for a collection.
func (p *PetDetails) Items(c domain.Collection) []slots.Item {
	l, ok := p.lists[c]
	if !ok {
		return nil
	}
	return l.Items()
}

// IsAddAffordance reports whether item i of a collection is the add control.
func (p *PetDetails) IsAddAffordance(c domain.Collection, i int) bool {
	l, ok := p.lists[c]
	return ok && l.IsAddAffordance(i)
}

// OccupiedCount returns the number of occupied slots in a collection.
func (p *PetDetails) OccupiedCount(c domain.Collection) int {
	if reg, ok := p.registries[c]; ok {
		return reg.OccupiedCount()
	}
	return 0
}

// DocumentNames returns display names for the occupied document slots.
func (p *PetDetails) DocumentNames() []string {
	reg, ok := p.registries[domain.CollectionDocuments]
	if !ok {
		return nil
	}
	refs := reg.OccupiedRefs()
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = slots.DocumentName(ref, i)
	}
	return out
}

// Age renders the pet's age from its birthday.
func (p *PetDetails) Age() string {
	return fieldcodec.FormatAge(p.record.Get("pet_birthday"), p.opts.clock.Now())
}

// VetCard renders the read-only veterinarian card.
func (p *PetDetails) VetCard() string {
	return fieldcodec.FormatCard(fieldcodec.ContactFromWire(fieldcodec.VetPrefix, p.record.Fields), fieldcodec.VetFallback)
}

// Hidden reports whether a privacy toggle is on.
func (p *PetDetails) Hidden(fieldID string) bool { return p.record.Get(fieldID) == "1" }

// WeightUnit returns the unit label for the user's measurement preference.
func (p *PetDetails) WeightUnit(preference string) string {
	return fieldcodec.Measurement.Decode(preference)
}

func (p *PetDetails) form() dirty.Form {
	static := make(map[string]string, len(p.record.Fields))
	for k, v := range p.record.Fields {
		static[k] = v
	}
	return dirty.Form{Static: static}
}

// HasChanges reports whether the visible record holds values the server has
// not confirmed.
func (p *PetDetails) HasChanges() bool { return p.tracker.HasChanges(p.form()) }

// OpenEdit starts an edit session for a field.
func (p *PetDetails) OpenEdit(fieldID string) (*edit.Session, error) {
	if !p.state.Loaded {
		return nil, ErrNotLoaded
	}
	if p.state.IsBusy(editControl(fieldID)) {
		return nil, ErrBusy
	}
	p.session = edit.Open(fieldID, p.record.Fields,
		edit.WithRollbackPolicy(p.opts.rollback),
		edit.WithLogger(p.opts.logger),
		edit.WithMetrics(p.opts.metrics),
	)
	p.dispatch(Select{ID: fieldID})
	return p.session, nil
}

// CancelEdit discards the open session.
func (p *PetDetails) CancelEdit() {
	p.session = nil
	p.dispatch(ClearSelection{})
}

// SaveEdit commits the open session. The record is updated immediately and
// the change is persisted in the background. Local validation errors are
// returned and shown; the session stays open for correction.
func (p *PetDetails) SaveEdit(done func(error)) error {
	s := p.session
	if s == nil {
		return fmt.Errorf("save: %w", edit.ErrInvalidTransition)
	}
	fieldID := s.Field().FieldID
	control := editControl(fieldID)
	if p.state.IsBusy(control) {
		return ErrBusy
	}
	persist := func(ctx context.Context, fields map[string]string) error {
		_, err := p.api.UpdatePet(ctx, p.petID, fields)
		return err
	}
	err := s.Submit(p.scope, persist, p.record.Merge, func(err error) {
		msg := "Pet details updated successfully."
		if err != nil {
			msg = domain.UserMessage(err)
		} else {
			p.tracker.Confirm(s.Sent())
		}
		p.dispatch(Finish{Control: control, Message: msg})
		if done != nil {
			done(err)
		}
	})
	if err != nil {
		if domain.IsLocal(err) {
			p.dispatch(Notify{Message: domain.UserMessage(err)})
		}
		return err
	}
	p.session = nil
	p.dispatch(ClearSelection{})
	p.dispatch(Begin{Control: control})
	return nil
}

// SetPrivacy flips a privacy toggle. Failures are logged, not shown.
func (p *PetDetails) SetPrivacy(fieldID string, hidden bool, done func(error)) error {
	if !fieldcodec.IsPrivacyField(fieldID) {
		return fmt.Errorf("privacy field %q: %w", fieldID, domain.ErrParseFailure)
	}
	control := privacyControl(fieldID)
	if p.state.IsBusy(control) {
		return ErrBusy
	}
	value := "0"
	if hidden {
		value = "1"
	}
	p.record.Merge(map[string]string{fieldID: value})
	p.dispatch(Begin{Control: control})
	ok := p.scope.Go(func(ctx context.Context) error {
		_, err := p.api.UpdatePrivacy(ctx, p.petID, fieldID, value)
		return err
	}, func(err error) {
		if err != nil {
			p.opts.logger.Error("privacy update failed", "field", fieldID, "value", value, "error", err)
		} else {
			p.opts.logger.Debug("privacy update ok", "field", fieldID, "value", value)
			p.tracker.Confirm(map[string]string{fieldID: value})
		}
		p.dispatch(Finish{Control: control})
		if done != nil {
			done(err)
		}
	})
	if !ok {
		return task.ErrDisposed
	}
	return nil
}

// Upload sends a file to the lowest free slot of a collection. Exhausted
// tables and tier limits are refused before any network call. localRef is
// shown when the server response carries no URL.
func (p *PetDetails) Upload(c domain.Collection, file transport.File, localRef string, done func(error)) error {
	reg, ok := p.registries[c]
	if !ok {
		return ErrNotLoaded
	}
	control := uploadControl(c)
	if p.state.IsBusy(control) {
		return ErrBusy
	}
	slot, err := reg.Reserve(p.Capacity(c))
	if err != nil {
		p.dispatch(Notify{Message: domain.UserMessage(err)})
		return err
	}

	p.dispatch(Begin{Control: control})
	var res transport.UploadResult
	started := time.Now()
	launched := p.scope.Go(func(ctx context.Context) error {
		var err error
		res, err = p.api.Upload(ctx, p.petID, slot, file)
		return err
	}, func(err error) {
		p.opts.metrics.Observe(p.scope.Context(), "pet.upload", err == nil, time.Since(started))
		if err != nil {
			p.opts.logger.Warn("upload failed", "collection", c, "slot", slot, "error", err)
			p.dispatch(Finish{Control: control, Message: uploadFailureMessage(c, err)})
		} else {
			ref := res.URL
			if ref == "" {
				ref = localRef
			}
			p.confirmUpload(c, slot, ref)
			p.dispatch(Finish{Control: control, Message: uploadSuccessMessage(c)})
		}
		if done != nil {
			done(err)
		}
	})
	if !launched {
		p.dispatch(Finish{Control: control})
		return task.ErrDisposed
	}
	return nil
}

func (p *PetDetails) confirmUpload(c domain.Collection, slot, ref string) {
	if err := p.registries[c].Occupy(slot, ref); err != nil {
		p.opts.logger.Error("occupy slot", "slot", slot, "error", err)
		return
	}
	p.lists[c].ApplyUpload(ref)
	p.record.Merge(map[string]string{slot: ref})
	p.tracker.Confirm(map[string]string{slot: ref})
}

func uploadSuccessMessage(c domain.Collection) string {
	if c == domain.CollectionDocuments {
		return "Document uploaded successfully"
	}
	return "Image uploaded successfully"
}

func uploadFailureMessage(c domain.Collection, err error) string {
	var rejected *domain.ServerRejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	if c == domain.CollectionDocuments {
		return "Failed to upload document"
	}
	return "Failed to upload image"
}
