package imageserver

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestedImage(t *testing.T) {
	root := filepath.Join("srv", "static")

	tests := []struct {
		name        string
		path        string
		width       string
		original    string
		derived     string
		contentType string
		wantWidth   int
	}{
		{
			name:        "original",
			path:        "cat.png",
			original:    filepath.Join(root, "cat.png"),
			derived:     filepath.Join(root, "cat.png"),
			contentType: "image/png",
		},
		{
			name:        "resized",
			path:        "cat.png",
			width:       "200",
			original:    filepath.Join(root, "cat.png"),
			derived:     filepath.Join(root, "cat_200.png"),
			contentType: "image/png",
			wantWidth:   200,
		},
		{
			name:        "width suffix is stripped",
			path:        "animals/cat_640.jpg",
			width:       "100",
			original:    filepath.Join(root, "animals", "cat.jpg"),
			derived:     filepath.Join(root, "animals", "cat_100.jpg"),
			contentType: "image/jpeg",
			wantWidth:   100,
		},
		{
			name:        "invalid width serves original",
			path:        "dog.GIF",
			width:       "wide",
			original:    filepath.Join(root, "dog.GIF"),
			derived:     filepath.Join(root, "dog.GIF"),
			contentType: "image/gif",
		},
		{
			name:        "negative width serves original",
			path:        "dog.jpeg",
			width:       "-20",
			original:    filepath.Join(root, "dog.jpeg"),
			derived:     filepath.Join(root, "dog.jpeg"),
			contentType: "image/jpeg",
		},
		{
			name:        "largest u32 width",
			path:        "cat.png",
			width:       "4294967295",
			original:    filepath.Join(root, "cat.png"),
			derived:     filepath.Join(root, "cat_4294967295.png"),
			contentType: "image/png",
			wantWidth:   math.MaxUint32,
		},
		{
			name:        "out of range width is clamped",
			path:        "cat.png",
			width:       "99999999999",
			original:    filepath.Join(root, "cat.png"),
			derived:     filepath.Join(root, "cat_4294967295.png"),
			contentType: "image/png",
			wantWidth:   math.MaxUint32,
		},
		{
			name:        "underscores without digits are kept",
			path:        "my_cat.png",
			width:       "50",
			original:    filepath.Join(root, "my_cat.png"),
			derived:     filepath.Join(root, "my_cat_50.png"),
			contentType: "image/png",
			wantWidth:   50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequestedImage(root, tt.path, tt.width, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.original, req.OriginalPath)
			assert.Equal(t, tt.derived, req.DerivedPath)
			assert.Equal(t, tt.derived, req.Key())
			assert.Equal(t, tt.contentType, req.ContentType)
			assert.Equal(t, tt.wantWidth, req.Width)
			assert.Equal(t, tt.wantWidth > 0, req.Resized())
		})
	}
}

func TestNewRequestedImageRejects(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		width string
		err   error
	}{
		{"empty", "", "", ErrInvalidPath},
		{"directory", "animals/", "", ErrInvalidPath},
		{"no extension", "animals/cat", "", ErrInvalidPath},
		{"parent", "../etc/passwd.png", "", ErrInvalidPath},
		{"nested parent", "a/../../b.png", "", ErrInvalidPath},
		{"only suffix", "_200.png", "", ErrInvalidPath},
		{"not an image", "notes.txt", "", ErrInvalidContentType},
		{"non standard width", "cat.png", "64", ErrNonStandardWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequestedImage("static", tt.path, tt.width, []int{20, 35, 50})
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewRequestedImageStandardWidth(t *testing.T) {
	req, err := NewRequestedImage("static", "cat.png", "35", []int{20, 35, 50})
	require.NoError(t, err)
	assert.Equal(t, 35, req.Width)

	req, err = NewRequestedImage("static", "cat.png", "0", []int{20, 35, 50})
	require.NoError(t, err)
	assert.False(t, req.Resized())
}
