package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minotaur-io/minotaur/component"
	"github.com/minotaur-io/minotaur/logger"
)

// opsServer serves /metrics, /healthz, and /version.
type opsServer struct {
	server *http.Server
	log    *logger.Logger

	mu           sync.RWMutex
	healthSource func(ctx context.Context) []component.Health
	versionInfo  any
}

func newOpsServer(cfg Config, sentryEnabled bool, log *logger.Logger) *opsServer {
	o := &opsServer{log: log.WithComponent("ops")}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Gather, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", o.handleHealthz)
	mux.HandleFunc("/version", o.handleVersion)

	var handler http.Handler = mux
	if sentryEnabled {
		handler = sentryhttp.New(sentryhttp.Options{}).Handle(mux)
	}

	o.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.OpsBind, strconv.Itoa(cfg.OpsPort)),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return o
}

func (o *opsServer) setHealthSource(fn func(ctx context.Context) []component.Health) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.healthSource = fn
}

func (o *opsServer) setVersionInfo(info any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.versionInfo = info
}

func (o *opsServer) start() error {
	ln, err := net.Listen("tcp", o.server.Addr)
	if err != nil {
		return fmt.Errorf("ops endpoint listen on %s: %w", o.server.Addr, err)
	}

	o.log.Info("Ops endpoint listening", map[string]interface{}{
		"addr": o.server.Addr,
	})

	go func() {
		if err := o.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			o.log.Error("Ops endpoint failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
	return nil
}

func (o *opsServer) stop(ctx context.Context) error {
	return o.server.Shutdown(ctx)
}

func (o *opsServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	o.mu.RLock()
	source := o.healthSource
	o.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if source == nil {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		return
	}

	results := source(r.Context())
	status := http.StatusOK
	for _, h := range results {
		if h.Status == component.StatusUnhealthy {
			status = http.StatusServiceUnavailable
			break
		}
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     statusWord(status),
		"components": results,
	})
}

func (o *opsServer) handleVersion(w http.ResponseWriter, _ *http.Request) {
	o.mu.RLock()
	info := o.versionInfo
	o.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if info == nil {
		info = map[string]string{"version": "unknown"}
	}
	_ = json.NewEncoder(w).Encode(info)
}

func statusWord(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}
