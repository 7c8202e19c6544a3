package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"petcore/internal/blob/core"
)

func TestStoreBasic(t *testing.T) {
	s := New("")
	ctx := context.Background()
	info, err := s.Put(ctx, "pets/p1/pet_doc1/a.pdf", bytes.NewReader([]byte("data")), core.PutOptions{ContentType: "application/pdf", Metadata: map[string]string{"slot": "pet_doc1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 4 || info.URL != "memory://blob/pets/p1/pet_doc1/a.pdf" {
		t.Fatalf("unexpected info %+v", info)
	}
	info.Metadata["slot"] = "mutated"
	if _, err := s.Put(ctx, "pets/p1/pet_doc1/a.pdf", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	h, err := s.Head(ctx, "pets/p1/pet_doc1/a.pdf")
	if err != nil || h.Metadata["slot"] != "pet_doc1" {
		t.Fatalf("head: %+v %v", h, err)
	}
	_, rc, err := s.Get(ctx, "pets/p1/pet_doc1/a.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "data" {
		t.Fatalf("payload %q", b)
	}

	if list, _ := s.List(ctx, "pets/p1/"); len(list) != 1 {
		t.Fatalf("list %+v", list)
	}
	if list, _ := s.List(ctx, "pets/p2/"); len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
	if ok, _ := s.Delete(ctx, "pets/p1/pet_doc1/a.pdf"); !ok {
		t.Fatalf("expected delete to report existing object")
	}
	if ok, _ := s.Delete(ctx, "pets/p1/pet_doc1/a.pdf"); ok {
		t.Fatalf("expected second delete to report missing")
	}
	if _, _, err := s.Get(ctx, "pets/p1/pet_doc1/a.pdf"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	s := New("https://files.example/")
	for _, key := range []string{"", "/abs", "a/../b", "  "} {
		if _, err := s.Put(context.Background(), key, bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
	u, err := s.URL(context.Background(), "x/y.jpg")
	if err != nil || u != "https://files.example/x/y.jpg" {
		t.Fatalf("url %q %v", u, err)
	}
}
