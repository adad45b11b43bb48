package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestedImage is an image request normalized against the static root.
type RequestedImage struct {
	ID           uuid.UUID
	Path         string // path as requested, slash separated
	OriginalPath string // original image on disk
	DerivedPath  string // resized variant on disk, OriginalPath when Width is 0
	ContentType  string
	Width        int
}

// Key is the cache key of the request.
func (r *RequestedImage) Key() string {
	return r.DerivedPath
}

func (r *RequestedImage) Resized() bool {
	return r.Width > 0
}

// Image is a served image payload. Data is shared with the cache and must not
// be modified.
type Image struct {
	Data        []byte
	ContentType string
	ETag        string
}

// Original holds what is known about a source image without decoding it again.
type Original struct {
	Width   int
	Height  int
	Format  string
	ModTime time.Time
}

// Variant records a resized image that was derived and persisted.
type Variant struct {
	ID           uuid.UUID
	Key          string
	OriginalPath string
	Width        int
	Size         int
	Checksum     int
	CreatedAt    time.Time
}

func NewVariant(req *RequestedImage, size, checksum int) Variant {
	return Variant{
		ID:           uuid.New(),
		Key:          req.Key(),
		OriginalPath: req.OriginalPath,
		Width:        req.Width,
		Size:         size,
		Checksum:     checksum,
		CreatedAt:    time.Now().UTC(),
	}
}
