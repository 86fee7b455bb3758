package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/facade"
)

// NewServer creates the HTTP bridge for f. Metrics from gatherer are served
// at /metrics when gatherer is non-nil.
func NewServer(f *facade.Facade, gatherer prometheus.Gatherer, log *zap.Logger, bind string, port int) *http.Server {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handlers{facade: f}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		renderJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	mux.HandleFunc("GET /context", h.HandleContext)
	mux.HandleFunc("GET /context/players", h.HandleContextPlayers)
	mux.HandleFunc("POST /context/choose", h.HandleContextChoose)
	mux.HandleFunc("POST /context/create", h.HandleContextCreate)
	mux.HandleFunc("POST /context/switch", h.HandleContextSwitch)
	mux.HandleFunc("POST /context/invite", h.HandleContextInvite)
	mux.HandleFunc("POST /context/share", h.HandleContextShare)
	mux.HandleFunc("POST /context/share-link", h.HandleContextShareLink)
	mux.HandleFunc("POST /context/update", h.HandleContextUpdate)
	mux.HandleFunc("GET /context/size", h.HandleContextSize)

	mux.HandleFunc("GET /player", h.HandlePlayer)
	mux.HandleFunc("GET /player/data", h.HandlePlayerGetData)
	mux.HandleFunc("PUT /player/data", h.HandlePlayerSetData)
	mux.HandleFunc("POST /player/data/flush", h.HandlePlayerFlushData)
	mux.HandleFunc("GET /player/connected", h.HandlePlayerConnected)
	mux.HandleFunc("GET /player/signed-info", h.HandlePlayerSignedInfo)
	mux.HandleFunc("GET /player/asid", h.HandlePlayerASID)
	mux.HandleFunc("GET /player/signed-asid", h.HandlePlayerSignedASID)
	mux.HandleFunc("GET /player/bot", h.HandlePlayerCanSubscribeBot)
	mux.HandleFunc("POST /player/bot", h.HandlePlayerSubscribeBot)

	mux.HandleFunc("GET /leaderboards/{name}", h.HandleLeaderboard)
	mux.HandleFunc("POST /leaderboards/{name}/entries", h.HandleSendEntry)
	mux.HandleFunc("GET /leaderboards/{name}/entries", h.HandleEntries)
	mux.HandleFunc("GET /leaderboards/{name}/entries/me", h.HandlePlayerEntry)
	mux.HandleFunc("GET /leaderboards/{name}/count", h.HandleEntryCount)
	mux.HandleFunc("GET /leaderboards/{name}/connected", h.HandleConnectedEntries)

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           accessLog(log, securityHeaders(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// responseHeaders are set on every bridge response. The bridge only ever
// returns JSON, so nothing may be framed, sniffed or loaded from it.
var responseHeaders = [][2]string{
	{"Content-Security-Policy", "default-src 'none'"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Cache-Control", "no-store"},
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, kv := range responseHeaders {
			w.Header().Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// accessLog logs every request at debug.
func accessLog(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// shutdownGrace bounds how long in-flight requests get after a stop signal.
const shutdownGrace = 5 * time.Second

// Run serves srv until ctx is cancelled or the process gets SIGINT/SIGTERM,
// then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if host, _, err := net.SplitHostPort(srv.Addr); err == nil {
		if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
			log.Warn("bridge is bound to all interfaces", zap.String("addr", srv.Addr))
		}
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()
	log.Info("wortal bridge listening", zap.String("addr", "http://"+srv.Addr))

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("bridge shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
