package imageserver

import (
	"errors"
	"fmt"
	"math"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pyropy/imgserve/core/model"
	"github.com/pyropy/imgserve/lib/utils"
)

var (
	ErrInvalidPath        = errors.New("the file path is invalid")
	ErrInvalidContentType = errors.New("the image content type is invalid")
	ErrNonStandardWidth   = errors.New("the requested width is not a standard width")
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// widthSuffix matches the "_<width>" part of a derived file stem.
var widthSuffix = regexp.MustCompile(`_\d+$`)

// NewRequestedImage normalizes a request for reqPath at the given width.
//
// Any "_<width>" suffix is stripped from the file stem so a derived variant
// can't be used as an original. A width that is not a number is treated as 0,
// which serves the original. When standardWidths is not empty every other
// non-zero width is rejected.
func NewRequestedImage(root, reqPath, width string, standardWidths []int) (*model.RequestedImage, error) {
	if reqPath == "" || strings.Contains(reqPath, "\\") {
		return nil, ErrInvalidPath
	}

	for _, part := range strings.Split(reqPath, "/") {
		if part == ".." {
			return nil, ErrInvalidPath
		}
	}

	clean := strings.TrimPrefix(path.Clean("/"+reqPath), "/")
	ext := path.Ext(clean)
	if clean == "" || ext == "" {
		return nil, ErrInvalidPath
	}

	contentType, ok := contentTypes[strings.ToLower(ext)]
	if !ok {
		return nil, ErrInvalidContentType
	}

	w := parseWidth(width)
	if w > 0 && len(standardWidths) > 0 && !utils.Contains(standardWidths, w) {
		return nil, fmt.Errorf("%w: %d", ErrNonStandardWidth, w)
	}

	dir, file := path.Split(clean)
	stem := widthSuffix.ReplaceAllString(strings.TrimSuffix(file, ext), "")
	if stem == "" {
		return nil, ErrInvalidPath
	}

	original := filepath.Join(root, filepath.FromSlash(dir), stem+ext)
	derived := original
	if w > 0 {
		derived = filepath.Join(root, filepath.FromSlash(dir), fmt.Sprintf("%s_%d%s", stem, w, ext))
	}

	return &model.RequestedImage{
		ID:           uuid.New(),
		Path:         clean,
		OriginalPath: original,
		DerivedPath:  derived,
		ContentType:  contentType,
		Width:        w,
	}, nil
}

// parseWidth reads a u32 width. Out of range values clamp to the largest
// width so they fail the size check instead of serving the original.
func parseWidth(s string) int {
	w, err := strconv.ParseUint(s, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxUint32
	}
	if err != nil {
		return 0
	}

	return int(w)
}
