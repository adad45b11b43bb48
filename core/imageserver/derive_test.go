package imageserver

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/pyropy/imgserve/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func TestDeriveOriginal(t *testing.T) {
	root := t.TempDir()
	p := writeImage(t, root, "cat.png", 40, 20)

	req, err := NewRequestedImage(root, "cat.png", "", nil)
	require.NoError(t, err)

	data, err := NewDeriver().Derive(context.Background(), req)
	require.NoError(t, err)

	want, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, want, data)
}

func TestDeriveResizesAndPersists(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "animals/cat.png", 40, 20)

	req, err := NewRequestedImage(root, "animals/cat.png", "10", nil)
	require.NoError(t, err)

	d := NewDeriver()
	data, err := d.Derive(context.Background(), req)
	require.NoError(t, err)

	w, h, format := decodeSize(t, data)
	assert.Equal(t, 10, w)
	assert.Equal(t, 5, h)
	assert.Equal(t, "png", format)
	assert.True(t, isFile(req.DerivedPath))

	orig, ok := d.Originals.Get(req.OriginalPath)
	require.True(t, ok)
	assert.Equal(t, 40, orig.Width)
	assert.Equal(t, 20, orig.Height)
}

func TestDeriveForgetsStaleOriginal(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "cat.png", 40, 20)

	d := NewDeriver()
	original, err := NewRequestedImage(root, "cat.png", "", nil)
	require.NoError(t, err)
	d.Originals.Set(original.OriginalPath, model.Original{Width: 5, Height: 5, Format: "png", ModTime: time.Unix(0, 0)})

	_, err = d.Derive(context.Background(), original)
	require.NoError(t, err)
	_, ok := d.Originals.Get(original.OriginalPath)
	assert.False(t, ok)

	// remembered dimensions are stale, so the 5px width no longer applies
	d.Originals.Set(original.OriginalPath, model.Original{Width: 5, Height: 5, Format: "png", ModTime: time.Unix(0, 0)})
	req, err := NewRequestedImage(root, "cat.png", "10", nil)
	require.NoError(t, err)

	data, err := d.Derive(context.Background(), req)
	require.NoError(t, err)
	w, _, _ := decodeSize(t, data)
	assert.Equal(t, 10, w)

	orig, ok := d.Originals.Get(req.OriginalPath)
	require.True(t, ok)
	assert.Equal(t, 40, orig.Width)
}

func TestDeriveKeepsAspectForTallImages(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "tall.jpg", 20, 80)

	req, err := NewRequestedImage(root, "tall.jpg", "10", nil)
	require.NoError(t, err)

	data, err := NewDeriver().Derive(context.Background(), req)
	require.NoError(t, err)

	w, h, format := decodeSize(t, data)
	assert.Equal(t, 3, w)
	assert.Equal(t, 10, h)
	assert.Equal(t, "jpeg", format)
}

func TestDeriveReadsExistingVariant(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "cat.png", 40, 20)
	require.NoError(t, os.WriteFile(root+"/cat_10.png", []byte("cached on disk"), 0644))

	req, err := NewRequestedImage(root, "cat.png", "10", nil)
	require.NoError(t, err)

	data, err := NewDeriver().Derive(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached on disk"), data)
}

func TestDeriveErrors(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "cat.png", 40, 20)
	require.NoError(t, os.WriteFile(root+"/broken.png", []byte("not a png"), 0644))

	d := NewDeriver()
	ctx := context.Background()

	req, _ := NewRequestedImage(root, "missing.png", "10", nil)
	_, err := d.Derive(ctx, req)
	assert.ErrorIs(t, err, ErrImageNotFound)

	req, _ = NewRequestedImage(root, "cat.png", "40", nil)
	_, err = d.Derive(ctx, req)
	assert.ErrorIs(t, err, ErrWidthTooLarge)
	assert.False(t, isFile(req.DerivedPath))

	// served from the remembered dimensions this time
	req, _ = NewRequestedImage(root, "cat.png", "400", nil)
	_, err = d.Derive(ctx, req)
	assert.ErrorIs(t, err, ErrWidthTooLarge)

	req, _ = NewRequestedImage(root, "broken.png", "10", nil)
	_, err = d.Derive(ctx, req)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDeriveCancelled(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "cat.png", 40, 20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := NewRequestedImage(root, "cat.png", "10", nil)
	_, err := NewDeriver().Derive(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, isFile(req.DerivedPath))
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, box    int
		wantW, wantH int
	}{
		{400, 200, 100, 100, 50},
		{200, 400, 100, 50, 100},
		{300, 300, 90, 90, 90},
		{1000, 1, 10, 10, 1},
	}

	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, tt.box)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}
