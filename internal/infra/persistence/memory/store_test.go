package memory

import (
	"context"
	"errors"
	"testing"

	"petcore/pkg/domain"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.Get(ctx, domain.RecordPet, "p1"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	rec := domain.NewRecord(domain.RecordPet, "p1")
	rec.Merge(map[string]string{"pet_name": "Rex"})
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec.Fields["pet_name"] = "mutated"

	got, err := s.Get(ctx, domain.RecordPet, "p1")
	if err != nil || got.Get("pet_name") != "Rex" {
		t.Fatalf("get: %+v %v", got, err)
	}
	got.Fields["pet_name"] = "mutated"
	if again, _ := s.Get(ctx, domain.RecordPet, "p1"); again.Get("pet_name") != "Rex" {
		t.Fatalf("stored record aliased caller copy")
	}

	updated, err := s.Update(ctx, domain.RecordPet, "p1", func(r *domain.Record) error {
		r.Merge(map[string]string{"pet_photo1": "https://x/a.jpg"})
		return nil
	})
	if err != nil || updated.Get("pet_photo1") == "" || updated.Get("pet_name") != "Rex" {
		t.Fatalf("update: %+v %v", updated, err)
	}

	created, err := s.Update(ctx, domain.RecordContacts, "u1", func(r *domain.Record) error {
		r.Merge(map[string]string{"cc_cell": "555"})
		return nil
	})
	if err != nil || created.Kind != domain.RecordContacts || created.Get("cc_cell") != "555" {
		t.Fatalf("upsert: %+v %v", created, err)
	}

	if err := s.Put(ctx, domain.NewRecord(domain.RecordPet, "p0")); err != nil {
		t.Fatalf("put p0: %v", err)
	}
	list, _ := s.List(ctx, domain.RecordPet)
	if len(list) != 2 || list[0].ID != "p0" || list[1].ID != "p1" {
		t.Fatalf("list order %+v", list)
	}
	if all := s.Export(); len(all) != 3 || all[0].Kind != domain.RecordContacts {
		t.Fatalf("export %+v", all)
	}

	if ok, _ := s.Delete(ctx, domain.RecordPet, "p0"); !ok {
		t.Fatalf("expected delete")
	}
	if ok, _ := s.Delete(ctx, domain.RecordPet, "p0"); ok {
		t.Fatalf("expected second delete to report missing")
	}
}

func TestUpdateErrorsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var failCommit bool
	var commits []Change
	s := NewStore(WithCommitHook(func(_ context.Context, ch Change) error {
		if failCommit {
			return boom
		}
		commits = append(commits, ch)
		return nil
	}))
	seed := domain.NewRecord(domain.RecordPet, "p1")
	seed.Merge(map[string]string{"pet_name": "Rex"})
	if err := s.Put(ctx, seed); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := s.Update(ctx, domain.RecordPet, "p1", func(r *domain.Record) error {
		r.Fields["pet_name"] = "Max"
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if _, err := s.Update(ctx, domain.RecordPet, "p1", func(r *domain.Record) error {
		r.ID = "other"
		return nil
	}); err == nil {
		t.Fatalf("expected identity change to fail")
	}

	failCommit = true
	if _, err := s.Update(ctx, domain.RecordPet, "p1", func(r *domain.Record) error {
		r.Fields["pet_name"] = "Max"
		return nil
	}); !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if ok, err := s.Delete(ctx, domain.RecordPet, "p1"); ok || !errors.Is(err, boom) {
		t.Fatalf("expected failed delete, got %v %v", ok, err)
	}

	got, _ := s.Get(ctx, domain.RecordPet, "p1")
	if got.Get("pet_name") != "Rex" {
		t.Fatalf("state changed after failed mutation: %+v", got)
	}
	if len(commits) != 1 {
		t.Fatalf("expected one commit, got %d", len(commits))
	}
	if err := s.Put(ctx, domain.Record{Kind: domain.RecordPet}); err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestImportSkipsHook(t *testing.T) {
	called := false
	s := NewStore(WithCommitHook(func(context.Context, Change) error {
		called = true
		return nil
	}))
	s.Import([]domain.Record{{Kind: domain.RecordPet, ID: "p1", Fields: map[string]string{"pet_name": "Rex"}}})
	if called {
		t.Fatalf("import must not invoke the hook")
	}
	if got, err := s.Get(context.Background(), domain.RecordPet, "p1"); err != nil || got.Get("pet_name") != "Rex" {
		t.Fatalf("imported record missing: %+v %v", got, err)
	}
}
