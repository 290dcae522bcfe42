package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir, "http://localhost:8080/")

	url, err := l.Upload(context.Background(), "room_images/u1/room.jpg_1700000000000", strings.NewReader("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/room_images/u1/room.jpg_1700000000000", url)

	data, err := os.ReadFile(filepath.Join(dir, "room_images", "u1", "room.jpg_1700000000000"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalUploadRejectsEscapes(t *testing.T) {
	l := NewLocal(t.TempDir(), "http://localhost:8080")
	_, err := l.Upload(context.Background(), "../../etc/passwd", strings.NewReader("x"), "image/png")
	assert.Error(t, err)
}
