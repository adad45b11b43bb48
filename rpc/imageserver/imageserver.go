package imageserver

import (
	"time"

	"github.com/google/uuid"
)

type ImageServer interface {
	// Stats ...
	Stats(args *StatsArgs, reply *StatsReply) error
	// Evict ...
	Evict(args *EvictArgs, reply *EvictReply) error
	// Purge ...
	Purge(args *PurgeArgs, reply *PurgeReply) error
	// Variants ...
	Variants(args *VariantsArgs, reply *VariantsReply) error
}

type StatsArgs struct {
	// IncludeKeys asks for the cached keys, most recently used first.
	IncludeKeys bool
}

type StatsReply struct {
	Len       int
	Cap       int
	Hits      uint64
	Misses    uint64
	Failures  uint64
	Evictions uint64
	Keys      []string
}

type EvictArgs struct {
	Key string
}

type EvictReply struct {
	Evicted bool
}

type PurgeArgs struct {
	Requester string
}

type PurgeReply struct {
	Purged int
}

type Variant struct {
	ID           uuid.UUID
	Key          string
	OriginalPath string
	Width        int
	Size         int
	CreatedAt    time.Time
}

type VariantsArgs struct {
	// Cached limits the listing to variants currently held in the cache.
	Cached bool
}

type VariantsReply struct {
	Variants []Variant
}
