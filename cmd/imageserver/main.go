package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	core "github.com/pyropy/imgserve/core/imageserver"
	"github.com/pyropy/imgserve/lib/cache"
	"github.com/pyropy/imgserve/lib/logger"
)

var log, _ = logger.New("imageserver-http")

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalw("startup", "ERROR", err)
	}
}

func run() error {
	cfg, err := core.GetConfig()
	if err != nil {
		log.Errorw("startup", "error", "config error")
		return err
	}

	variants, err := core.NewVariantStore(cfg.Store.Path)
	if err != nil {
		log.Errorw("startup", "error", "failed to open variant store", "path", cfg.Store.Path)
		return err
	}
	defer variants.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := core.NewImageServer(cfg, variants, cache.NewMetrics(reg, "imgserve"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("ImageServerAPI", NewImageServerAPI(server)); err != nil {
		return err
	}

	rpcMux := http.NewServeMux()
	rpcMux.Handle(rpc.DefaultRPCPath, rpcServer)

	rpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.RPC.Port))
	if err != nil {
		log.Errorw("startup", "error", "rpc net listen failed")
		return err
	}

	rpcAddr := rpcListener.Addr().String()
	log.Infow("startup", "status", "admin rpc server started", "address", rpcAddr)
	go http.Serve(rpcListener, rpcMux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           NewRouter(server, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infow("startup", "status", "image server started", "address", httpServer.Addr,
			"root", cfg.Images.Root, "capacity", cfg.Cache.Capacity)
		serverErrors <- httpServer.ListenAndServe()
	}()

	go server.StartStatsMonitor(ctx)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-shutdown:
		log.Infow("shutdown", "status", "image server stopping", "address", httpServer.Addr)
		cancel()

		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()

		if err := httpServer.Shutdown(sctx); err != nil {
			httpServer.Close()
			return err
		}
	}

	log.Infow("shutdown", "status", "image server stopped", "address", httpServer.Addr)
	return rpcListener.Close()
}
