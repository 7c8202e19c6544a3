package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcore/internal/blob"
	"petcore/internal/infra/persistence/memory"
	"petcore/internal/server"
	"petcore/pkg/domain"
)

func invoke(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestProjectPhotosFromStdin(t *testing.T) {
	code, out, errOut := invoke(t,
		`{"pet_photo1":"https://x.test/a.jpg","pet_photo2":null,"pet_photo3":"https://x.test/c.jpg","pet_name":"Rex"}`,
		"project")
	require.Equal(t, 0, code, errOut)
	want := "photos: 2 of 5 used (No Subscription)\n" +
		"  1  https://x.test/a.jpg\n" +
		"  2  https://x.test/c.jpg\n" +
		"  +  add\n" +
		"next slot: pet_photo2\n"
	assert.Equal(t, want, out)
}

func TestProjectDocumentsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pet.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pet_doc1":"https://x.test/files/rabies.pdf","pet_doc2":"https://x.test/d/"}`), 0o644))

	code, out, errOut := invoke(t, "", "project", "--collection", "documents", "--tier", "Emergency Leash Tag", path)
	require.Equal(t, 0, code, errOut)
	want := "documents: 2 of 2 used (Emergency Leash Tag)\n" +
		"  1  rabies.pdf  https://x.test/files/rabies.pdf\n" +
		"  2  d  https://x.test/d/\n" +
		"next slot: pet_doc3\n"
	assert.Equal(t, want, out)
}

func TestProjectRejectsUnknownCollection(t *testing.T) {
	code, _, errOut := invoke(t, "{}", "project", "--collection", "videos")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown collection "videos"`)
}

func newBackend(t *testing.T, fields map[string]string) (*httptest.Server, blob.Store) {
	t.Helper()
	records := memory.NewStore()
	rec := domain.NewRecord(domain.RecordPet, "p1")
	rec.Merge(fields)
	rec.Fields["owner_ID"] = "u1"
	require.NoError(t, records.Put(context.Background(), rec))
	blobs := blob.NewMemory("https://blob.test")
	srv := httptest.NewServer(server.New(records, blobs).Handler())
	t.Cleanup(srv.Close)
	return srv, blobs
}

func TestUploadFillsNextSlot(t *testing.T) {
	srv, blobs := newBackend(t, map[string]string{"pet_name": "Rex", "pet_photo1": "https://x.test/a.jpg"})
	file := filepath.Join(t.TempDir(), "dog.png")
	require.NoError(t, os.WriteFile(file, []byte("png"), 0o644))

	code, out, errOut := invoke(t, "", "upload", "--server", srv.URL+"/api", "--user", "u1", "--pet", "p1", file)
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasPrefix(out, "pet_photo2 https://blob.test/pets/p1/pet_photo2/"), out)

	stored, err := blobs.List(context.Background(), "pets/p1/pet_photo2/")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "image/png", stored[0].ContentType)
}

func TestUploadRefusedLocallyAtCapacity(t *testing.T) {
	srv, blobs := newBackend(t, map[string]string{
		"pet_name": "Rex",
		"pet_doc1": "https://x.test/1.pdf",
		"pet_doc2": "https://x.test/2.pdf",
	})
	file := filepath.Join(t.TempDir(), "vax.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF"), 0o644))

	code, _, errOut := invoke(t, "", "upload", "--server", srv.URL+"/api", "--user", "u1", "--pet", "p1", "--collection", "documents", file)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Your plan's limit has been reached.")
	stored, err := blobs.List(context.Background(), "pets/")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestUploadRequiresIdentity(t *testing.T) {
	code, _, errOut := invoke(t, "", "upload", "x.png")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "required flag")
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "petcore.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
server:
  addr: "127.0.0.1:0"
storage:
  driver: memory
blob:
  driver: memory
metrics:
  enabled: false
`), 0o644))
	for _, k := range []string{"PETCORE_ADDR", "PETCORE_STORAGE_DRIVER", "PETCORE_BLOB_DRIVER", "PETCORE_METRICS_ENABLED"} {
		t.Setenv(k, "")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out, errOut bytes.Buffer
	code := run(ctx, []string{"serve", "--config", cfgPath}, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, 0, code, errOut.String())
}

func TestContactsDiff(t *testing.T) {
	dir := t.TempDir()
	before := filepath.Join(dir, "before.json")
	after := filepath.Join(dir, "after.json")
	require.NoError(t, os.WriteFile(before, []byte(`{"cc_first_name":"Ann","ec_cell1":"555","ec_email7":"x@y.z"}`), 0o644))
	require.NoError(t, os.WriteFile(after, []byte(`{"cc_first_name":"Anna","ec_cell1":"555","ec_cell2":"556","ec_email7":"q@y.z"}`), 0o644))

	code, out, errOut := invoke(t, "", "contacts-diff", before, after)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "cc_first_name\nemergency_contacts.ec_cell_1\n", out, "rows past the tier's limit are not compared")

	code, out, errOut = invoke(t, "", "contacts-diff", "--tier", "Emergency Leash Pro", before, after)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "cc_first_name\nemergency_contacts.ec_cell_1\nemergency_contacts.ec_email_6\n", out)

	code, out, _ = invoke(t, "", "contacts-diff", before, before)
	require.Equal(t, 0, code)
	assert.Equal(t, "no changes\n", out)
}
