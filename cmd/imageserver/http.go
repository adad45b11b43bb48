package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	core "github.com/pyropy/imgserve/core/imageserver"
)

const notFoundPage = `<!DOCTYPE html><html lang='en' style='height: 100%%;'><head><meta charset='utf-8'><title>Resource Not Found</title></head>` +
	`<body style='height: 100%%;margin: 0;'><div style='display: flex;flex-direction: column;justify-content: center;height: 100%%;'>` +
	`<h1 style='text-align:center;font-size:100px;margin:0;'>404 Not Found</h1><h1 style='text-align:center;'>%s</h1></div></body></html>`

// NewRouter routes image requests through the cache and serves everything
// else from the static root.
func NewRouter(server *core.ImageServer, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/image/*", serveImage(server))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Method(http.MethodGet, "/*", staticFiles(http.Dir(server.Cfg.Images.Root)))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "Resource was not found.")
	})

	return r
}

func serveImage(server *core.ImageServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := server.NewRequest(chi.URLParam(r, "*"), r.URL.Query().Get("width"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		img, err := server.Serve(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", img.ContentType)
		w.Header().Set("ETag", img.ETag)
		w.Header().Set("Cache-Control", "public, max-age=86400")

		if r.Header.Get("If-None-Match") == img.ETag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
		if _, err := w.Write(img.Data); err != nil {
			log.Infow("http", "status", "write failed", "path", r.URL.Path, "error", err)
		}
	}
}

// staticFiles serves files from root. Anything that cannot be opened gets the
// html not found page instead of the file server's plain text one.
func staticFiles(root http.FileSystem) http.Handler {
	files := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := root.Open(path.Clean("/" + r.URL.Path))
		if err != nil {
			writeNotFound(w, "Resource was not found.")
			return
		}
		f.Close()

		files.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrImageNotFound):
		writeNotFound(w, "Resource was not found.")
	case errors.Is(err, core.ErrInvalidPath),
		errors.Is(err, core.ErrInvalidContentType),
		errors.Is(err, core.ErrNonStandardWidth):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrWidthTooLarge):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		log.Errorw("http", "status", "image request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "unable to serve image", http.StatusInternalServerError)
	}
}

func writeNotFound(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, notFoundPage, html.EscapeString(reason))
}

type requestIDKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		id, _ := r.Context().Value(requestIDKey{}).(string)
		log.Infow("http",
			"request", id,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"latency", time.Since(start),
		)
	})
}
