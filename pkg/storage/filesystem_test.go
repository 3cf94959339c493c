package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "uploads/")
	require.NoError(t, err)

	name, err := store.SaveStream("home-page/a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/home-page/a.txt", store.URL(name))

	f, err := store.Open(name)
	require.NoError(t, err)
	data, _ := io.ReadAll(f)
	_ = f.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(name))
	require.NoError(t, store.Delete(name))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.Save("../escape.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = store.Save("/etc/passwd", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestDownscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		img.Set(x, 10, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	out, resized, err := Downscale("banner.png", bytes.NewReader(buf.Bytes()), 100)
	require.NoError(t, err)
	assert.True(t, resized)

	decoded, err := imaging.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())

	_, resized, err = Downscale("notes.pdf", bytes.NewReader([]byte("%PDF")), 100)
	require.NoError(t, err)
	assert.False(t, resized)
}
