package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"firewall-discovery-go/internal/domain"
	"firewall-discovery-go/internal/service"
	"firewall-discovery-go/internal/storage"
)

type Handler struct {
	discovery *service.DiscoveryService
	rules     *service.RuleCheckService
	audit     *storage.Audit // nil when the audit trail is disabled
	version   string
}

func NewHandler(discovery *service.DiscoveryService, rules *service.RuleCheckService, audit *storage.Audit, version string) *Handler {
	return &Handler{discovery: discovery, rules: rules, audit: audit, version: version}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.health)
	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/discover-firewalls", h.discoverFirewalls)
		r.Post("/check-connectivity", h.checkConnectivity)
		r.Get("/audit", h.auditLog)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, 200, map[string]any{"status": "healthy", "version": h.version})
}

type discoverRequest struct {
	ApplicationName string `json:"application_name"`
	Hostname        string `json:"hostname"`
}

func (h *Handler) discoverFirewalls(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"detail": "invalid request body: " + err.Error()})
		return
	}

	slog.Info("discovering firewalls",
		"application", req.ApplicationName, "hostname", req.Hostname)

	result, err := h.discovery.Discover(r.Context(), req.ApplicationName, req.Hostname)
	if err != nil {
		if errors.Is(err, service.ErrMissingTarget) {
			writeJSON(w, 400, map[string]any{"detail": err.Error()})
			return
		}
		slog.Error("firewall discovery failed", "err", err)
		writeJSON(w, 500, map[string]any{"detail": err.Error()})
		return
	}

	h.recordAudit(r, domain.AuditEntry{
		Kind:    "discover",
		Target:  firstNonEmpty(req.ApplicationName, req.Hostname),
		Outcome: discoveryOutcome(result),
	})
	writeJSON(w, 200, result)
}

type connectivityRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Port        int    `json:"port"`
	Protocol    string `json:"protocol"`
}

func (h *Handler) checkConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"detail": "invalid request body: " + err.Error()})
		return
	}
	if req.Source == "" || req.Destination == "" {
		writeJSON(w, 400, map[string]any{"detail": "source and destination must be provided"})
		return
	}
	if req.Protocol == "" {
		req.Protocol = "TCP"
	}

	slog.Info("checking connectivity",
		"source", req.Source, "destination", req.Destination,
		"port", req.Port, "protocol", req.Protocol)

	// Source and destination discovery are independent.
	var sourceResult, destResult *domain.DiscoveryResult
	g, gCtx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		sourceResult, err = h.discoverEndpoint(gCtx, req.Source)
		return err
	})
	g.Go(func() error {
		var err error
		destResult, err = h.discoverEndpoint(gCtx, req.Destination)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("connectivity check failed", "err", err)
		writeJSON(w, 500, map[string]any{"detail": err.Error()})
		return
	}

	ruleResults := h.rules.CheckConnectivity(r.Context(), sourceResult, destResult, req.Port, req.Protocol)

	h.recordAudit(r, domain.AuditEntry{
		Kind:        "connectivity",
		Source:      req.Source,
		Destination: req.Destination,
		Port:        req.Port,
		Protocol:    req.Protocol,
		Outcome:     connectivityOutcome(ruleResults),
	})

	writeJSON(w, 200, map[string]any{
		"source":                req.Source,
		"destination":           req.Destination,
		"port":                  req.Port,
		"protocol":              req.Protocol,
		"source_firewalls":      sourceResult,
		"destination_firewalls": destResult,
		"rule_results":          ruleResults,
	})
}

// discoverEndpoint routes a bare connectivity endpoint string through the
// hostname-vs-application heuristic before discovery.
func (h *Handler) discoverEndpoint(ctx context.Context, value string) (*domain.DiscoveryResult, error) {
	if IsHostname(value) {
		return h.discovery.Discover(ctx, "", value)
	}
	return h.discovery.Discover(ctx, value, "")
}

func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, 200, []domain.AuditEntry{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, 500, map[string]any{"detail": err.Error()})
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, 200, entries)
}

func (h *Handler) recordAudit(r *http.Request, e domain.AuditEntry) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), e); err != nil {
		slog.Warn("audit write failed", "kind", e.Kind, "err", err)
	}
}

// IsHostname guesses whether a bare string names a host rather than an
// application: FQDN-like values contain dots, and machine names tend to be
// heavily hyphenated. Known to misfire on names like "my-app-server".
func IsHostname(value string) bool {
	return strings.Contains(value, ".") || strings.Count(value, "-") > 2
}

func discoveryOutcome(r *domain.DiscoveryResult) string {
	if r.ApplicationName == "" && !r.Found {
		return "not_found"
	}
	var applicable []string
	for _, p := range domain.Platforms() {
		if r.Summary[p] {
			applicable = append(applicable, string(p))
		}
	}
	return fmt.Sprintf("hosts=%d platforms=%s", len(r.Hosts), strings.Join(applicable, ","))
}

func connectivityOutcome(results domain.ConnectivityResult) string {
	var parts []string
	for _, p := range domain.Platforms() {
		if res := results[p]; res != nil {
			parts = append(parts, string(p)+"="+string(res.Status))
		}
	}
	if len(parts) == 0 {
		return "no_applicable_platforms"
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
