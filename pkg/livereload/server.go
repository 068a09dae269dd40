package livereload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Options configures the development server.
type Options struct {
	Root    string // directory served at "/"
	Addr    string // host:port to listen on
	CORS    bool
	Metrics http.Handler // served at MetricsPath when set
}

// Server serves the build directory with the live-reload client injected
// into every HTML page.
type Server struct {
	opts  Options
	hub   *Hub
	files http.Handler
}

// NewServer creates a server bound to hub.
func NewServer(opts Options, hub *Hub) *Server {
	return &Server{
		opts:  opts,
		hub:   hub,
		files: http.FileServer(http.Dir(opts.Root)),
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EventsPath, s.hub)
	mux.HandleFunc(ScriptPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(Script))
	})
	if s.opts.Metrics != nil {
		mux.Handle(MetricsPath, s.opts.Metrics)
	}
	mux.HandleFunc("/", s.serveStatic)

	if !s.opts.CORS {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		mux.ServeHTTP(w, r)
	})
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then disconnects live-reload clients and shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	slog.Info("serving", "root", s.opts.Root, "url", "http://"+ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}
	if path.Ext(name) != ".html" {
		s.files.ServeHTTP(w, r)
		return
	}

	file := filepath.Join(s.opts.Root, filepath.FromSlash(name))
	data, err := os.ReadFile(file)
	if err != nil {
		s.files.ServeHTTP(w, r)
		return
	}
	info, err := os.Stat(file)
	if err != nil {
		s.files.ServeHTTP(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, path.Base(name), info.ModTime(), bytes.NewReader(InjectScript(data)))
}

// InjectScript inserts the client script tag before the closing body tag,
// or appends it when the page has none.
func InjectScript(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, page...), []byte(scriptTag)...)
	}
	out := make([]byte, 0, len(page)+len(scriptTag))
	out = append(out, page[:idx]...)
	out = append(out, scriptTag...)
	return append(out, page[idx:]...)
}
