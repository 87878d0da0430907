package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"example.com/timelinefeed/internal/feed"
	"example.com/timelinefeed/internal/live"
	"example.com/timelinefeed/internal/logger"
	"example.com/timelinefeed/internal/middleware"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
)

const (
	defaultFeedLimit = 50
	tokenTTL         = 24 * time.Hour
)

type Server struct {
	engine   *feed.Engine
	hub      *live.Hub
	secret   []byte
	upgrader websocket.Upgrader
	closing  chan struct{}
}

// Config holds the listener settings. TLS is enabled when both files are set.
type Config struct {
	Addr        string
	TLSCertFile string
	TLSKeyFile  string
}

var logg = logger.New()

func New(engine *feed.Engine, hub *live.Hub, secret []byte) *Server {
	return &Server{
		engine: engine,
		hub:    hub,
		secret: secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		closing: make(chan struct{}),
	}
}

// Routes wires every endpoint. Only POST /users is reachable without a token.
func (s *Server) Routes() http.Handler {
	auth := middleware.JWTAuth(s.secret)
	api := func(h http.HandlerFunc) http.Handler {
		return gzhttp.GzipHandler(auth(h))
	}

	mux := http.NewServeMux()

	mux.Handle("POST /users", gzhttp.GzipHandler(http.HandlerFunc(s.createUserHandler)))

	mux.Handle("POST /posts", api(s.createPostHandler))
	mux.Handle("POST /follow", api(s.followHandler))
	mux.Handle("DELETE /follow", api(s.unfollowHandler))
	mux.Handle("GET /feed", api(s.getFeedHandler))
	mux.Handle("GET /timeline/{owner}", api(s.getTimelineHandler))
	mux.Handle("POST /timeline/viewers", api(s.allowViewerHandler))
	mux.Handle("POST /messages", api(s.sendDirectMessageHandler))
	mux.Handle("GET /inbox", api(s.getInboxHandler))

	// websocket upgrades need the raw connection, so no gzip here
	mux.Handle("GET /stream", auth(http.HandlerFunc(s.streamHandler)))

	return logg.RequestLogger(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, s *Server, cfg Config) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second, // prevent slowloris attacks
	}
	// hijacked stream connections are not tracked by Shutdown
	srv.RegisterOnShutdown(func() { close(s.closing) })

	go func() {
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			logg.Info("server", "Starting HTTPS server on "+cfg.Addr)
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			logg.Info("server", "Starting HTTP server on "+cfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}
