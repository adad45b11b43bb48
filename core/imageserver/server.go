package imageserver

import (
	"context"
	"errors"

	"github.com/pyropy/imgserve/core/model"
	"github.com/pyropy/imgserve/lib/cache"
	"github.com/pyropy/imgserve/lib/checksum"
	"github.com/pyropy/imgserve/lib/logger"
)

var log, _ = logger.New("imageserver")

var ErrNoVariantStore = errors.New("variant store is not configured")

// ImageServer serves images out of an LRU cache of derived image bytes keyed
// by the derived file path.
type ImageServer struct {
	*Deriver

	Cfg      *Config
	Cache    *cache.Resolver[string, []byte]
	Variants *VariantStore
}

// NewImageServer wires the cache and deriver. variants and metrics may be nil.
func NewImageServer(cfg *Config, variants *VariantStore, metrics *cache.Metrics) *ImageServer {
	return &ImageServer{
		Deriver:  NewDeriver(),
		Cfg:      cfg,
		Cache:    cache.NewResolver[string, []byte](cfg.Cache.Capacity, metrics),
		Variants: variants,
	}
}

// NewRequest normalizes a request against the configured static root.
func (s *ImageServer) NewRequest(path, width string) (*model.RequestedImage, error) {
	return NewRequestedImage(s.Cfg.Images.Root, path, width, s.Cfg.Images.StandardWidths)
}

// Serve returns the requested image from the cache, deriving it on a miss.
func (s *ImageServer) Serve(ctx context.Context, req *model.RequestedImage) (*model.Image, error) {
	data, err := s.Cache.Resolve(ctx, req.Key(), func(ctx context.Context) ([]byte, error) {
		return s.derive(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	return &model.Image{
		Data:        data,
		ContentType: req.ContentType,
		ETag:        checksum.ETag(data),
	}, nil
}

func (s *ImageServer) derive(ctx context.Context, req *model.RequestedImage) ([]byte, error) {
	data, err := s.Derive(ctx, req)
	if err != nil {
		log.Infow("derive", "status", "failed", "request", req.ID, "key", req.Key(), "error", err)
		return nil, err
	}

	log.Infow("derive", "status", "saved requested image into cache", "request", req.ID, "key", req.Key(), "bytes", len(data))

	if req.Resized() && s.Variants != nil {
		s.recordVariant(ctx, req, data)
	}

	return data, nil
}

// recordVariant stores the first derivation of a variant. Later misses on the
// same key keep the existing record.
func (s *ImageServer) recordVariant(ctx context.Context, req *model.RequestedImage, data []byte) {
	exists, err := s.Variants.Has(ctx, req.Key())
	if err != nil {
		log.Errorw("derive", "status", "failed to look up variant", "key", req.Key(), "error", err)
		return
	}
	if exists {
		return
	}

	variant := model.NewVariant(req, len(data), checksum.CalculateCheckSum(data))
	if err := s.Variants.Add(ctx, variant); err != nil {
		log.Errorw("derive", "status", "failed to record variant", "key", req.Key(), "error", err)
	}
}

// Evict drops key from the cache. The persisted variant stays on disk.
func (s *ImageServer) Evict(key string) bool {
	_, ok := s.Cache.Remove(key)
	return ok
}

func (s *ImageServer) Purge() int {
	return s.Cache.Purge()
}

// ListVariants returns the recorded variants. When cached is set only the
// variants currently held in the cache are returned.
func (s *ImageServer) ListVariants(ctx context.Context, cached bool) ([]*model.Variant, error) {
	if s.Variants == nil {
		return nil, ErrNoVariantStore
	}

	all, err := s.Variants.All(ctx)
	if err != nil {
		return nil, err
	}

	if !cached {
		return all, nil
	}

	variants := make([]*model.Variant, 0, len(all))
	for _, v := range all {
		if s.Cache.Contains(v.Key) {
			variants = append(variants, v)
		}
	}

	return variants, nil
}

func (s *ImageServer) Stats() cache.Stats {
	return s.Cache.Stats()
}

func (s *ImageServer) StartStatsMonitor(ctx context.Context) {
	NewStatsMonitor(s, s.Cfg.Cache.StatsInterval).Start(ctx)
}
