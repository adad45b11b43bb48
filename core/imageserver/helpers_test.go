package imageserver

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeImage writes a width x height gradient to dir/name, encoded by the
// file extension.
func writeImage(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0750))

	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	switch filepath.Ext(name) {
	case ".jpg", ".jpeg":
		require.NoError(t, jpeg.Encode(f, img, nil))
	default:
		require.NoError(t, png.Encode(f, img))
	}

	return p
}

func decodeSize(t *testing.T, data []byte) (int, int, string) {
	t.Helper()

	cfg, format, err := image.DecodeConfig(bytesReader(data))
	require.NoError(t, err)

	return cfg.Width, cfg.Height, format
}

func testConfig(root string, capacity int) *Config {
	cfg := &Config{}
	cfg.Images.Root = root
	cfg.Cache.Capacity = capacity

	return cfg
}
