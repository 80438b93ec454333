package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// HealthzServer answers liveness checks and exposes the summary of the most
// recent run on /status.
type HealthzServer struct {
	ctx    context.Context
	server *http.Server

	mu     sync.Mutex
	source func() *types.RunReport
}

// runStatus is the body served on /status.
type runStatus struct {
	RunID    string        `json:"run_id"`
	Tool     string        `json:"tool"`
	Summary  types.Summary `json:"summary"`
	Failures bool          `json:"has_failures"`
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	hdlr.HandleFunc("/status", h.HandleStatus)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	server := &http.Server{
		Handler: c.Handler(hdlr),
		Addr:    addr,
	}
	h.server = server
	h.ctx = ctx
	return h.server.ListenAndServe()
}

// SetReportSource sets where /status reads the latest run report from.
func (h *HealthzServer) SetReportSource(fn func() *types.RunReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = fn
}

func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

// HandleStatus responds 204 until a run has completed.
func (h *HealthzServer) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	source := h.source
	h.mu.Unlock()

	var report *types.RunReport
	if source != nil {
		report = source()
	}
	if report == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(runStatus{
		RunID:    report.RunID,
		Tool:     report.Results.Tool,
		Summary:  report.Results.Summary,
		Failures: report.HasFailures(),
	})
	if err != nil {
		log.Warn("Failed to write run status", "path", r.URL.Path, "err", err)
	}
}
