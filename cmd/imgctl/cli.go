package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/rpc"
	"net/url"
	"os"
	"strconv"
	"time"

	core "github.com/pyropy/imgserve/core/imageserver"
	rpcImageServer "github.com/pyropy/imgserve/rpc/imageserver"
	"github.com/urfave/cli/v2"
)

const fetchTimeout = 30 * time.Second

var errCachedOffline = errors.New("--cached needs a running server, drop --store")

var statsCmd = &cli.Command{
	Name:  "stats",
	Usage: "Show cache statistics",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "keys",
			Usage: "Also list cached keys, most recently used first",
		},
	},
	Action: func(ctx *cli.Context) error {
		var reply rpcImageServer.StatsReply
		args := &rpcImageServer.StatsArgs{IncludeKeys: ctx.Bool("keys")}
		if err := call(ctx.String("rpc-url"), "ImageServerAPI.Stats", args, &reply); err != nil {
			return err
		}

		w := ctx.App.Writer
		fmt.Fprintf(w, "entries:   %d/%d\n", reply.Len, reply.Cap)
		fmt.Fprintf(w, "hits:      %d\n", reply.Hits)
		fmt.Fprintf(w, "misses:    %d\n", reply.Misses)
		fmt.Fprintf(w, "failures:  %d\n", reply.Failures)
		fmt.Fprintf(w, "evictions: %d\n", reply.Evictions)
		for _, k := range reply.Keys {
			fmt.Fprintln(w, k)
		}

		return nil
	},
}

var evictCmd = &cli.Command{
	Name:  "evict",
	Usage: "Drop a single key from the cache",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "key",
			Required: true,
			Usage:    "Cache key, the derived image path as listed by stats --keys",
		},
	},
	Action: func(ctx *cli.Context) error {
		var reply rpcImageServer.EvictReply
		args := &rpcImageServer.EvictArgs{Key: ctx.String("key")}
		if err := call(ctx.String("rpc-url"), "ImageServerAPI.Evict", args, &reply); err != nil {
			return err
		}

		if !reply.Evicted {
			return fmt.Errorf("key %q is not cached", args.Key)
		}

		log.Infow("evict", "key", args.Key)
		return nil
	},
}

var purgeCmd = &cli.Command{
	Name:  "purge",
	Usage: "Drop every cached image",
	Action: func(ctx *cli.Context) error {
		host, _ := os.Hostname()

		var reply rpcImageServer.PurgeReply
		args := &rpcImageServer.PurgeArgs{Requester: host}
		if err := call(ctx.String("rpc-url"), "ImageServerAPI.Purge", args, &reply); err != nil {
			return err
		}

		log.Infow("purge", "purged", reply.Purged)
		return nil
	},
}

var variantsCmd = &cli.Command{
	Name:  "variants",
	Usage: "List resized variants recorded by the server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "cached",
			Usage: "Only list variants currently held in the cache",
		},
	},
	Action: func(ctx *cli.Context) error {
		var variants []rpcImageServer.Variant
		if dir := ctx.String("store"); dir != "" {
			if ctx.Bool("cached") {
				return errCachedOffline
			}

			stored, err := storedVariants(ctx.Context, dir)
			if err != nil {
				return err
			}
			variants = stored
		} else {
			var reply rpcImageServer.VariantsReply
			args := &rpcImageServer.VariantsArgs{Cached: ctx.Bool("cached")}
			if err := call(ctx.String("rpc-url"), "ImageServerAPI.Variants", args, &reply); err != nil {
				return err
			}
			variants = reply.Variants
		}

		for _, v := range variants {
			fmt.Fprintf(ctx.App.Writer, "%s\t%d\t%d\t%s\n", v.Key, v.Width, v.Size, v.CreatedAt.Format(time.RFC3339))
		}

		return nil
	},
}

var fetchCmd = &cli.Command{
	Name:  "fetch",
	Usage: "Download an image, optionally resized",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "path",
			Required: true,
			Usage:    "Image path relative to the static root",
		},
		&cli.IntFlag{
			Name:  "width",
			Usage: "Requested width in pixels, 0 for the original",
		},
		&cli.StringFlag{
			Name:     "out",
			Required: true,
			Usage:    "File to write the image to",
		},
	},
	Action: func(ctx *cli.Context) error {
		u, err := imageURL(ctx.String("url"), ctx.String("path"), ctx.Int("width"))
		if err != nil {
			return err
		}

		cctx, cancel := context.WithTimeout(ctx.Context, fetchTimeout)
		defer cancel()

		n, err := fetch(cctx, u, ctx.String("out"))
		if err != nil {
			return err
		}

		log.Infow("fetch", "url", u, "out", ctx.String("out"), "bytes", n)
		return nil
	},
}

// storedVariants reads the variant store directly. The server holds the store
// lock while running, so this only works against a stopped server or a copy.
func storedVariants(ctx context.Context, dir string) ([]rpcImageServer.Variant, error) {
	store, err := core.NewVariantStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open variant store %s: %w", dir, err)
	}
	defer store.Close()

	all, err := store.All(ctx)
	if err != nil {
		return nil, err
	}

	variants := make([]rpcImageServer.Variant, 0, len(all))
	for _, v := range all {
		variants = append(variants, rpcImageServer.Variant{
			ID:           v.ID,
			Key:          v.Key,
			OriginalPath: v.OriginalPath,
			Width:        v.Width,
			Size:         v.Size,
			CreatedAt:    v.CreatedAt,
		})
	}

	return variants, nil
}

func call(addr, method string, args, reply any) error {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return fmt.Errorf("image server unreachable at %s: %w", addr, err)
	}
	defer client.Close()

	return client.Call(method, args, reply)
}

func imageURL(base, path string, width int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	u = u.JoinPath("image", path)
	if width > 0 {
		q := u.Query()
		q.Set("width", strconv.Itoa(width))
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func fetch(ctx context.Context, u, out string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch %s: %s", u, res.Status)
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, res.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	return n, err
}
