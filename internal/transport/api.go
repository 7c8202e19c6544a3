package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"petcore/internal/observability"
	"petcore/pkg/domain"
)

// Service endpoints, relative to the base URL.
const (
	EndpointPetPull          = "pull/pet-profile"
	EndpointPetPush          = "push/pet-profile"
	EndpointContactsPull     = "pull/settings-my-contacts"
	EndpointContactsPush     = "push/settings-my-contacts"
	EndpointSubscriptionPull = "pull/settings-subscription"
	EndpointAddressesPull    = "pull/settings-my-addresses"
	EndpointAddressesPush    = "push/settings-my-addresses"
	EndpointAdminsPull       = "pull/settings-my-admins"
	EndpointAdminsPush       = "push/settings-my-admins"
	EndpointMeasurementsPull = "pull/settings-measurements"
	EndpointMeasurementsPush = "push/settings-measurements"
)

// SettingsDoc is a per-user settings document with its pull and push
// endpoints. Label names it in user messages.
type SettingsDoc struct {
	Kind  domain.RecordKind
	Label string
	Pull  string
	Push  string
}

// Settings documents served by the profile service.
var (
	ContactsDoc     = SettingsDoc{Kind: domain.RecordContacts, Label: "Contacts", Pull: EndpointContactsPull, Push: EndpointContactsPush}
	AddressesDoc    = SettingsDoc{Kind: domain.RecordAddresses, Label: "Addresses", Pull: EndpointAddressesPull, Push: EndpointAddressesPush}
	AdminsDoc       = SettingsDoc{Kind: domain.RecordAdmins, Label: "Admins", Pull: EndpointAdminsPull, Push: EndpointAdminsPush}
	MeasurementsDoc = SettingsDoc{Kind: domain.RecordMeasurements, Label: "Measurements", Pull: EndpointMeasurementsPull, Push: EndpointMeasurementsPush}
)

// SettingsDocs lists every settings document.
var SettingsDocs = []SettingsDoc{ContactsDoc, AddressesDoc, AdminsDoc, MeasurementsDoc}

// Identity form fields sent with every request.
const (
	FieldUserID = "userID"
	FieldPetID  = "pet_ID"
)

// Envelope is the status part of a push response.
type Envelope struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Slot    string `json:"slot,omitempty"`
	URL     string `json:"url,omitempty"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Slot    string
	URL     string
	Message string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(l observability.Logger) ClientOption {
	return func(c *Client) { c.logger = observability.OrNop(l) }
}

// WithClientMetrics records one observation per call, named after the endpoint.
func WithClientMetrics(m observability.MetricsRecorder) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Client is the pet profile API for one signed-in user.
type Client struct {
	doer    Doer
	userID  string
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

// NewClient binds a doer to a user.
func NewClient(doer Doer, userID string, opts ...ClientOption) *Client {
	c := &Client{
		doer:    doer,
		userID:  userID,
		logger:  observability.NopLogger(),
		metrics: observability.NopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserID returns the bound user.
func (c *Client) UserID() string { return c.userID }

func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := c.doer.Do(ctx, req)
	if err == nil && (resp.Status < 200 || resp.Status > 299) {
		err = &domain.ServerRejectedError{Op: req.Endpoint, Status: resp.Status, Message: envelopeMessage(resp.Body)}
	}
	c.metrics.Observe(ctx, req.Endpoint, err == nil, time.Since(start))
	return resp, err
}

func (c *Client) identity(petID string) map[string]string {
	fields := map[string]string{FieldUserID: c.userID}
	if petID != "" {
		fields[FieldPetID] = petID
	}
	return fields
}

// FetchPet loads the flat field set of one pet.
func (c *Client) FetchPet(ctx context.Context, petID string) (domain.Record, error) {
	resp, err := c.call(ctx, Request{Endpoint: EndpointPetPull, Fields: c.identity(petID)})
	if err != nil {
		return domain.Record{}, err
	}
	fields, err := DecodeFields(resp.Body)
	if err != nil {
		return domain.Record{}, &domain.ServerRejectedError{Op: EndpointPetPull, Status: resp.Status, Message: err.Error()}
	}
	rec := domain.NewRecord(domain.RecordPet, petID)
	rec.Merge(fields)
	return rec, nil
}

// UpdatePet sends field updates for a pet.
func (c *Client) UpdatePet(ctx context.Context, petID string, fields map[string]string) (Envelope, error) {
	req := Request{Endpoint: EndpointPetPush, Fields: c.identity(petID)}
	for k, v := range fields {
		req.Fields[k] = v
	}
	return c.push(ctx, req)
}

// UpdatePrivacy sends one privacy toggle. The legacy endpoint treats "0" as
// empty, so "0" is transmitted as "2".
func (c *Client) UpdatePrivacy(ctx context.Context, petID, fieldID, value string) (Envelope, error) {
	if value == "0" {
		value = "2"
	}
	return c.UpdatePet(ctx, petID, map[string]string{fieldID: value})
}

// Upload stores a file in the named slot. The multipart field name is the
// slot name.
func (c *Client) Upload(ctx context.Context, petID, slot string, file File) (UploadResult, error) {
	file.Field = slot
	env, err := c.push(ctx, Request{Endpoint: EndpointPetPush, Fields: c.identity(petID), File: &file})
	if err != nil {
		return UploadResult{}, err
	}
	out := UploadResult{Slot: slot, URL: env.URL, Message: env.Message}
	if env.Slot != "" && env.Slot != slot {
		c.logger.Warn("upload stored in unexpected slot", "requested", slot, "stored", env.Slot)
	}
	return out, nil
}

// FetchSettings loads one of the user's settings documents.
func (c *Client) FetchSettings(ctx context.Context, doc SettingsDoc) (domain.Record, error) {
	resp, err := c.call(ctx, Request{Endpoint: doc.Pull, Fields: c.identity("")})
	if err != nil {
		return domain.Record{}, err
	}
	fields, err := DecodeFields(resp.Body)
	if err != nil {
		return domain.Record{}, &domain.ServerRejectedError{Op: doc.Pull, Status: resp.Status, Message: err.Error()}
	}
	rec := domain.NewRecord(doc.Kind, c.userID)
	rec.Merge(fields)
	return rec, nil
}

// SaveSettings sends a full settings form.
func (c *Client) SaveSettings(ctx context.Context, doc SettingsDoc, fields map[string]string) (Envelope, error) {
	req := Request{Endpoint: doc.Push, Fields: c.identity("")}
	for k, v := range fields {
		req.Fields[k] = v
	}
	return c.push(ctx, req)
}

// FetchContacts loads the user's contact settings.
func (c *Client) FetchContacts(ctx context.Context) (domain.Record, error) {
	return c.FetchSettings(ctx, ContactsDoc)
}

// SaveContacts sends the full contacts form.
func (c *Client) SaveContacts(ctx context.Context, fields map[string]string) (Envelope, error) {
	return c.SaveSettings(ctx, ContactsDoc, fields)
}

// FetchTier returns the user's subscription name, "" when none.
func (c *Client) FetchTier(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, Request{Endpoint: EndpointSubscriptionPull, Fields: c.identity("")})
	if err != nil {
		return "", err
	}
	var payload struct {
		Subscription *struct {
			Name string `json:"subscription_name"`
		} `json:"subscription"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", &domain.ServerRejectedError{Op: EndpointSubscriptionPull, Status: resp.Status, Message: err.Error()}
	}
	if payload.Subscription == nil {
		return "", nil
	}
	return payload.Subscription.Name, nil
}

func (c *Client) push(ctx context.Context, req Request) (Envelope, error) {
	resp, err := c.call(ctx, req)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			c.logger.Debug("non-json push response", "endpoint", req.Endpoint)
			env = Envelope{}
		}
	}
	if env.Success != nil && !*env.Success {
		return env, &domain.ServerRejectedError{Op: req.Endpoint, Status: resp.Status, Message: env.Message}
	}
	return env, nil
}

func envelopeMessage(body []byte) string {
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil {
		return env.Message
	}
	return ""
}

// DecodeFields flattens a JSON object into wire strings. Strings pass
// through, null becomes "null", numbers keep their literal text and nested
// values are re-encoded as JSON.
func DecodeFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			out[k] = "null"
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			if t {
				out[k] = "true"
			} else {
				out[k] = "false"
			}
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return nil, fmt.Errorf("decode field %s: %w", k, err)
			}
			out[k] = strings.TrimSpace(string(b))
		}
	}
	return out, nil
}
