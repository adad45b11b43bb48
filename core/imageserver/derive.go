package imageserver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pyropy/imgserve/core/model"
	concurrentMap "github.com/pyropy/imgserve/lib/concurrent_map"
	"golang.org/x/image/draw"
)

var (
	ErrImageNotFound = errors.New("resource was not found")
	ErrWidthTooLarge = errors.New("requested width meets or exceeds the original image width")
	ErrDecode        = errors.New("unable to decode image")
)

const jpegQuality = 90

// Deriver produces image bytes for a request, resizing and persisting the
// variant next to the original when needed.
type Deriver struct {
	Originals *concurrentMap.Map[string, model.Original]
}

func NewDeriver() *Deriver {
	return &Deriver{
		Originals: concurrentMap.NewMap[string, model.Original](),
	}
}

// Derive returns the bytes of the requested image. A variant already present
// on disk is read as is.
func (d *Deriver) Derive(ctx context.Context, req *model.RequestedImage) ([]byte, error) {
	fi, err := os.Stat(req.OriginalPath)
	if err != nil || !fi.Mode().IsRegular() {
		return nil, ErrImageNotFound
	}

	orig, known := d.Originals.Get(req.OriginalPath)
	if known && !orig.ModTime.Equal(fi.ModTime()) {
		d.Originals.Delete(req.OriginalPath)
		known = false
	}

	if !req.Resized() {
		return os.ReadFile(req.OriginalPath)
	}

	if isFile(req.DerivedPath) {
		return os.ReadFile(req.DerivedPath)
	}

	// Known dimensions let oversized requests fail without decoding.
	if known && req.Width >= orig.Width {
		return nil, widthTooLarge(req.Width, orig.Width)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := d.resize(req, fi); err != nil {
		return nil, err
	}

	return os.ReadFile(req.DerivedPath)
}

func (d *Deriver) resize(req *model.RequestedImage, fi os.FileInfo) error {
	f, err := os.Open(req.OriginalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, req.OriginalPath, err)
	}

	bounds := src.Bounds()
	d.Originals.Set(req.OriginalPath, model.Original{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Format:  format,
		ModTime: fi.ModTime(),
	})

	if req.Width >= bounds.Dx() {
		return widthTooLarge(req.Width, bounds.Dx())
	}

	w, h := fit(bounds.Dx(), bounds.Dy(), req.Width)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	return writeAtomic(req.DerivedPath, func(out io.Writer) error {
		return encode(out, dst, format)
	})
}

// fit scales width x height to fit inside a box x box square, keeping the
// aspect ratio.
func fit(width, height, box int) (int, int) {
	ratio := math.Min(float64(box)/float64(width), float64(box)/float64(height))

	w := int(math.Round(float64(width) * ratio))
	h := int(math.Round(float64(height) * ratio))

	return max(w, 1), max(h, 1)
}

func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		return gif.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrDecode, format)
	}
}

// writeAtomic writes through a temp file in the target directory so readers
// never see a partially written variant.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".resize-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func widthTooLarge(requested, original int) error {
	return fmt.Errorf("%w: unable to request a width of %dpx, the original is %dpx wide", ErrWidthTooLarge, requested, original)
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
