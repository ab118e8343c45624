package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBlobStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBlobStore) Put(_ context.Context, key, contentType string, data []byte) error {
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryBlobStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + key, nil
}

func (m *memoryBlobStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAvatarUploadNormalizesToSquareWebP(t *testing.T) {
	store := newMemoryBlobStore()
	var savedFields map[string]interface{}
	users := &stubUserRepo{
		updateFields: func(_ context.Context, _ uint, fields map[string]interface{}) error {
			savedFields = fields
			return nil
		},
	}
	svc := NewAvatarService(users, store, nil)

	key, err := svc.Upload(context.Background(), 7, testPNG(t, 640, 480))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "avatars/7/"))
	assert.True(t, strings.HasSuffix(key, ".webp"))
	assert.Equal(t, key, savedFields["avatar_url"])

	data, ok := store.objects[key]
	require.True(t, ok)
	assert.Equal(t, "image/webp", store.types[key])

	decoded, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, AvatarSize, decoded.Bounds().Dx())
	assert.Equal(t, AvatarSize, decoded.Bounds().Dy())
}

func TestAvatarUploadRejectsBadInput(t *testing.T) {
	svc := NewAvatarService(&stubUserRepo{}, newMemoryBlobStore(), nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, 7, nil)
	require.Error(t, err)

	_, err = svc.Upload(ctx, 7, []byte("definitely not an image"))
	require.Error(t, err)

	_, err = svc.Upload(ctx, 7, make([]byte, AvatarMaxBytes+1))
	require.Error(t, err)
}

func TestAvatarUploadAcceptsWebPInput(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, src, &webp.Options{Quality: 90}))

	store := newMemoryBlobStore()
	users := &stubUserRepo{
		updateFields: func(context.Context, uint, map[string]interface{}) error { return nil },
	}
	svc := NewAvatarService(users, store, nil)

	key, err := svc.Upload(context.Background(), 3, buf.Bytes())
	require.NoError(t, err)
	assert.Contains(t, key, "avatars/3/")
}
