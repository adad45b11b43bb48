package main

import (
	"context"

	core "github.com/pyropy/imgserve/core/imageserver"
	rpc "github.com/pyropy/imgserve/rpc/imageserver"
)

// API exposes cache administration over net/rpc.
type API struct {
	server *core.ImageServer
}

var _ rpc.ImageServer = (*API)(nil)

func NewImageServerAPI(server *core.ImageServer) *API {
	return &API{
		server: server,
	}
}

// Stats ...
func (a *API) Stats(args *rpc.StatsArgs, reply *rpc.StatsReply) error {
	log.Infow("rpc", "event", "ImageServerAPI.Stats", "args", args)
	s := a.server.Stats()

	reply.Len = s.Len
	reply.Cap = s.Cap
	reply.Hits = s.Hits
	reply.Misses = s.Misses
	reply.Failures = s.Failures
	reply.Evictions = s.Evictions

	if args.IncludeKeys {
		reply.Keys = a.server.Cache.Keys()
	}

	return nil
}

// Evict ...
func (a *API) Evict(args *rpc.EvictArgs, reply *rpc.EvictReply) error {
	log.Infow("rpc", "event", "ImageServerAPI.Evict", "args", args)
	reply.Evicted = a.server.Evict(args.Key)

	return nil
}

// Purge ...
func (a *API) Purge(args *rpc.PurgeArgs, reply *rpc.PurgeReply) error {
	log.Infow("rpc", "event", "ImageServerAPI.Purge", "args", args)
	reply.Purged = a.server.Purge()

	return nil
}

// Variants ...
func (a *API) Variants(args *rpc.VariantsArgs, reply *rpc.VariantsReply) error {
	log.Infow("rpc", "event", "ImageServerAPI.Variants", "args", args)
	variants, err := a.server.ListVariants(context.Background(), args.Cached)
	if err != nil {
		return err
	}

	// Map model variants to rpc Variants
	for _, v := range variants {
		reply.Variants = append(reply.Variants, rpc.Variant{
			ID:           v.ID,
			Key:          v.Key,
			OriginalPath: v.OriginalPath,
			Width:        v.Width,
			Size:         v.Size,
			CreatedAt:    v.CreatedAt,
		})
	}

	return nil
}
