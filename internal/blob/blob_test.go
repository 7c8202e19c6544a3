package blob

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: "memory", PublicURL: "https://files.test"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, mem.Driver())
	info, err := mem.Put(ctx, "k.jpg", bytes.NewReader([]byte("x")), PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/k.jpg", info.URL)

	fs, err := Open(ctx, Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, fs.Driver())

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PETCORE_BLOB_DRIVER", "memory")
	t.Setenv("PETCORE_BLOB_PUBLIC_URL", "https://cdn.test")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{Driver: "memory", PublicURL: "https://cdn.test"}, cfg)

	t.Setenv("PETCORE_BLOB_DRIVER", "s3")
	t.Setenv("PETCORE_BLOB_S3_BUCKET", "")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("p/1", "pet_photo3", `C:\Users\me\Dog Photo.JPG`)
	assert.Regexp(t, regexp.MustCompile(`^pets/p_1/pet_photo3/[0-9a-f-]{36}\.jpg$`), key)
	assert.NotEqual(t, key, ObjectKey("p/1", "pet_photo3", "Dog Photo.JPG"))

	noExt := ObjectKey("", "pet_doc1", "README")
	assert.Regexp(t, regexp.MustCompile(`^pets/_/pet_doc1/[0-9a-f-]{36}$`), noExt)
}
