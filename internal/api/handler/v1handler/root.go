package v1handler

import (
	"net/http"
	"research/pkg/domain"
)

// ServiceInfo is the public service descriptor served at the root path.
type ServiceInfo struct {
	Service string   `json:"service"`
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Modes   []string `json:"modes"`
}

// Root serves the service descriptor. It doubles as a liveness probe.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, ServiceInfo{
		Service: "Deep Research Service",
		Status:  "running",
		Version: "1.0.0",
		Modes:   []string{string(domain.ModeIterative), string(domain.ModeDeep)},
	})
}

// Health serves the health probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "healthy"})
}
