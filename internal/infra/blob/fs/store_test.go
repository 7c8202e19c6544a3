package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"petcore/internal/blob/core"
)

func TestFilesystemRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, "http://localhost:9000/files/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	info, err := s.Put(ctx, "pets/p1/pet_photo2/x.jpg", bytes.NewReader([]byte("image")), core.PutOptions{ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.ETag == "" || info.URL != "http://localhost:9000/files/pets/p1/pet_photo2/x.jpg" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "pets", "p1", "pet_photo2", "x.jpg.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if _, err := s.Put(ctx, "pets/p1/pet_photo2/x.jpg", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "pets/p1/pet_photo2/x.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "image" || got.ContentType != "image/jpeg" || got.ETag != info.ETag {
		t.Fatalf("get mismatch %+v %q", got, data)
	}

	if _, err := s.Put(ctx, "pets/p2/pet_doc1/y.pdf", bytes.NewReader([]byte("pdf")), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := s.List(ctx, "pets/")
	if err != nil || len(list) != 2 || list[0].Key != "pets/p1/pet_photo2/x.jpg" {
		t.Fatalf("list %v %+v", err, list)
	}
	if list, _ := s.List(ctx, "pets/p2/"); len(list) != 1 {
		t.Fatalf("prefix list %+v", list)
	}

	if ok, err := s.Delete(ctx, "pets/p1/pet_photo2/x.jpg"); err != nil || !ok {
		t.Fatalf("delete %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, "pets/p1/pet_photo2/x.jpg"); err != nil || ok {
		t.Fatalf("second delete %v %v", ok, err)
	}
	if _, err := s.Head(ctx, "pets/p1/pet_photo2/x.jpg"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	s, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"../x", "/etc/passwd", "a/../../b", "a.meta"} {
		if _, err := s.Put(context.Background(), key, bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}
