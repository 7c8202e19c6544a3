package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"petcore/internal/blob"
	"petcore/internal/capacity"
	"petcore/internal/fieldcodec"
	"petcore/internal/transport"
	"petcore/pkg/domain"
)

var collections = []domain.Collection{domain.CollectionPhotos, domain.CollectionDocuments}

// collectionOf resolves the collection a slot-shaped name (table prefix plus
// a number) belongs to. The number is not range checked.
func collectionOf(name string) (domain.Collection, bool) {
	for _, c := range collections {
		prefix, _ := c.SlotLayout()
		n, ok := strings.CutPrefix(name, prefix)
		if ok && n != "" && strings.Trim(n, "0123456789") == "" {
			return c, true
		}
	}
	return "", false
}

func isNull(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "null")
}

func (s *Server) loadPet(ctx context.Context, userID, petID string) (domain.Record, error) {
	if petID == "" {
		return domain.Record{}, fail(http.StatusBadRequest, "Missing pet.")
	}
	rec, err := s.records.Get(ctx, domain.RecordPet, petID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.Record{}, fail(http.StatusNotFound, "Pet not found.")
	}
	if err != nil {
		return domain.Record{}, err
	}
	if owner := rec.Get(ownerField); owner != "" && owner != userID {
		return domain.Record{}, fail(http.StatusForbidden, "Pet belongs to another user.")
	}
	return rec, nil
}

func (s *Server) tier(ctx context.Context, userID string) (string, error) {
	rec, err := s.records.Get(ctx, domain.RecordSubscription, userID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return capacity.TierNone, nil
	}
	if err != nil {
		return "", err
	}
	return rec.Get(subscriptionKey), nil
}

func (s *Server) pullPet(_ http.ResponseWriter, r *http.Request) (any, error) {
	userID, petID, _, err := s.formFields(r)
	if err != nil {
		return nil, err
	}
	rec, err := s.loadPet(r.Context(), userID, petID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(rec.Fields)+domain.PhotoSlotCount+domain.DocumentSlotCount)
	for k, v := range rec.Fields {
		if !isHidden(k) {
			out[k] = v
		}
	}
	for _, c := range collections {
		prefix, n := c.SlotLayout()
		for _, name := range domain.SlotNames(prefix, n) {
			if isNull(rec.Get(name)) {
				out[name] = nil
			}
		}
	}
	out[transport.FieldPetID] = rec.ID
	return out, nil
}

func (s *Server) pushPet(_ http.ResponseWriter, r *http.Request) (any, error) {
	userID, petID, fields, err := s.formFields(r)
	if err != nil {
		return nil, err
	}
	if r.MultipartForm != nil && len(r.MultipartForm.File) > 0 {
		return s.upload(r, userID, petID)
	}
	return s.updatePet(r.Context(), userID, petID, fields)
}

func (s *Server) updatePet(ctx context.Context, userID, petID string, fields map[string]string) (any, error) {
	created := petID == ""
	if created {
		petID = uuid.NewString()
	} else if _, err := s.loadPet(ctx, userID, petID); err != nil {
		return nil, err
	}
	tier, err := s.tier(ctx, userID)
	if err != nil {
		return nil, err
	}

	var released []string
	_, err = s.records.Update(ctx, domain.RecordPet, petID, func(rec *domain.Record) error {
		released = released[:0]
		before := rec.Clone()
		if created {
			before = domain.Record{}
			rec.Fields[ownerField] = userID
		}
		for k, v := range fields {
			if _, isSlot := collectionOf(k); isSlot {
				if key := rec.Get(blobKeyPrefix + k); key != "" {
					released = append(released, key)
					delete(rec.Fields, blobKeyPrefix+k)
				}
				if isNull(v) {
					delete(rec.Fields, k)
					continue
				}
				rec.Fields[k] = v
				continue
			}
			if fieldcodec.IsPrivacyField(k) && v == "2" {
				v = "0"
			}
			rec.Fields[k] = v
		}
		return s.check(ctx, tierView{userID: tier}, before, *rec)
	})
	if err != nil {
		return nil, err
	}
	s.release(ctx, released)
	out := envelope(true, "Pet details updated successfully.")
	out[transport.FieldPetID] = petID
	return out, nil
}

func (s *Server) release(ctx context.Context, keys []string) {
	for _, key := range keys {
		if _, err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("release blob failed", "key", key, "error", err)
		}
	}
}

func (s *Server) upload(r *http.Request, userID, petID string) (any, error) {
	ctx := r.Context()
	if _, err := s.loadPet(ctx, userID, petID); err != nil {
		return nil, err
	}
	if len(r.MultipartForm.File) != 1 {
		return nil, fail(http.StatusBadRequest, "Exactly one file per upload.")
	}
	var (
		slot   string
		header *multipart.FileHeader
	)
	for name, files := range r.MultipartForm.File {
		if len(files) != 1 {
			return nil, fail(http.StatusBadRequest, "Exactly one file per upload.")
		}
		slot, header = name, files[0]
	}
	if _, ok := slotNames[slot]; !ok {
		return nil, fail(http.StatusBadRequest, "Unknown slot.")
	}
	tier, err := s.tier(ctx, userID)
	if err != nil {
		return nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, fail(http.StatusBadRequest, "Malformed upload.")
	}
	defer func() { _ = f.Close() }()
	key := blob.ObjectKey(petID, slot, header.Filename)
	if _, err := s.blobs.Put(ctx, key, f, blob.PutOptions{
		ContentType: header.Header.Get("Content-Type"),
		Metadata:    map[string]string{"pet": petID, "slot": slot, "user": userID},
	}); err != nil {
		return nil, fmt.Errorf("store %s: %w", slot, err)
	}
	url, err := s.blobs.URL(ctx, key)
	if err != nil {
		s.release(ctx, []string{key})
		return nil, fmt.Errorf("url %s: %w", slot, err)
	}

	var previous string
	_, err = s.records.Update(ctx, domain.RecordPet, petID, func(rec *domain.Record) error {
		before := rec.Clone()
		previous = rec.Get(blobKeyPrefix + slot)
		rec.Fields[slot] = url
		rec.Fields[blobKeyPrefix+slot] = key
		return s.check(ctx, tierView{userID: tier}, before, *rec)
	})
	if err != nil {
		s.release(ctx, []string{key})
		return nil, err
	}
	if previous != "" {
		s.release(ctx, []string{previous})
	}
	s.logger.Info("upload stored", "pet", petID, "slot", slot, "key", key)
	out := envelope(true, "Image/Document uploaded successfully")
	out["slot"] = slot
	out["url"] = url
	return out, nil
}

func (s *Server) pullSettings(doc transport.SettingsDoc) handlerFunc {
	return func(_ http.ResponseWriter, r *http.Request) (any, error) {
		userID, _, _, err := s.formFields(r)
		if err != nil {
			return nil, err
		}
		rec, err := s.records.Get(r.Context(), doc.Kind, userID)
		if errors.Is(err, domain.ErrRecordNotFound) {
			return map[string]any{}, nil
		}
		if err != nil {
			return nil, err
		}
		return rec.Fields, nil
	}
}

func (s *Server) pushSettings(doc transport.SettingsDoc) handlerFunc {
	return func(_ http.ResponseWriter, r *http.Request) (any, error) {
		userID, _, fields, err := s.formFields(r)
		if err != nil {
			return nil, err
		}
		if doc.Kind == domain.RecordMeasurements {
			code, err := fieldcodec.Measurement.Encode(fields[fieldcodec.MeasurementField])
			if err != nil {
				return nil, err
			}
			fields[fieldcodec.MeasurementField] = code
		}
		if _, err := s.records.Update(r.Context(), doc.Kind, userID, func(rec *domain.Record) error {
			rec.Merge(fields)
			return nil
		}); err != nil {
			return nil, err
		}
		return envelope(true, doc.Label+" updated successfully."), nil
	}
}

func (s *Server) pullSubscription(_ http.ResponseWriter, r *http.Request) (any, error) {
	userID, _, _, err := s.formFields(r)
	if err != nil {
		return nil, err
	}
	tier, err := s.tier(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if tier == capacity.TierNone {
		return map[string]any{"subscription": nil}, nil
	}
	return map[string]any{"subscription": map[string]string{subscriptionKey: tier}}, nil
}

func (s *Server) pushSubscription(_ http.ResponseWriter, r *http.Request) (any, error) {
	userID, _, fields, err := s.formFields(r)
	if err != nil {
		return nil, err
	}
	tier := strings.TrimSpace(fields[subscriptionKey])
	if _, err := s.records.Update(r.Context(), domain.RecordSubscription, userID, func(rec *domain.Record) error {
		rec.Fields[subscriptionKey] = tier
		return nil
	}); err != nil {
		return nil, err
	}
	return envelope(true, "Subscription updated."), nil
}
