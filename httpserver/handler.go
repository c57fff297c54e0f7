package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tairon-ai/phala-worker-registry/api"
	"github.com/tairon-ai/phala-worker-registry/attestation"
	"github.com/tairon-ai/phala-worker-registry/discovery"
	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

const (
	// defaultListLimit applies when a listing request omits the limit.
	defaultListLimit = 10

	// maxBodySize is the maximum allowed request body size (1MB), enough
	// for any raw attestation quote.
	maxBodySize = 1024 * 1024
)

// Handler processes HTTP requests for the worker registry service.
type Handler struct {
	enricher *discovery.Enricher
	resolver *attestation.Resolver
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler with the specified
// dependencies.
func NewHandler(enricher *discovery.Enricher, resolver *attestation.Resolver, log *slog.Logger) *Handler {
	return &Handler{
		enricher: enricher,
		resolver: resolver,
		log:      log,
	}
}

// HandleListWorkers serves the filtered worker listing.
//
// URL format: GET /api/workers?limit=N&online=true&category=gpu
//
// Response: JSON with totalKnown, shown, processed and the record list.
func (h *Handler) HandleListWorkers(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit: must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	filters := discovery.Filters{}
	if raw := r.URL.Query().Get("online"); raw != "" {
		online, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid online flag: must be a boolean", http.StatusBadRequest)
			return
		}
		filters.OnlineOnly = online
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, err := interfaces.ParseCapabilityCategory(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filters.Category = &category
	}

	res, err := h.enricher.List(r.Context(), limit, filters)
	if err != nil {
		h.log.Error("Worker listing failed", "err", err, "limit", limit)
		if errors.Is(err, interfaces.ErrSourceUnavailable) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, api.ListWorkersResponseFrom(res))
}

// HandleGetWorker serves a single enriched worker record.
//
// URL format: GET /api/workers/{pubkey}
func (h *Handler) HandleGetWorker(w http.ResponseWriter, r *http.Request) {
	pubkey, ok := h.parsePubkey(w, r)
	if !ok {
		return
	}

	rec, err := h.enricher.Get(r.Context(), pubkey)
	if err != nil {
		if errors.Is(err, interfaces.ErrWorkerNotFound) {
			http.Error(w, "Worker not found", http.StatusNotFound)
			return
		}
		h.log.Error("Worker lookup failed", "err", err, "pubkey", pubkey.String())
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, rec)
}

// HandleVerifyAttestation resolves a worker's attestation.
//
// URL format: POST /api/workers/{pubkey}/attestation
// Request body: optional raw attestation quote.
func (h *Handler) HandleVerifyAttestation(w http.ResponseWriter, r *http.Request) {
	pubkey, ok := h.parsePubkey(w, r)
	if !ok {
		return
	}

	reportData, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.log.Error("Failed to read request body", "err", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	res, err := h.resolver.Verify(r.Context(), pubkey, reportData)
	if err != nil {
		if errors.Is(err, interfaces.ErrWorkerNotFound) {
			http.Error(w, "Worker not found", http.StatusNotFound)
			return
		}
		h.log.Error("Attestation verification failed", "err", err, "pubkey", pubkey.String())
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, res)
}

func (h *Handler) parsePubkey(w http.ResponseWriter, r *http.Request) (interfaces.WorkerPubkey, bool) {
	raw := r.PathValue("pubkey")
	if raw == "" {
		http.Error(w, "Missing worker pubkey in URL", http.StatusBadRequest)
		return interfaces.WorkerPubkey{}, false
	}

	pubkey, err := interfaces.NewWorkerPubkeyFromHex(raw)
	if err != nil {
		h.log.Debug("Invalid worker pubkey", "err", err, "pubkey", raw)
		http.Error(w, "Invalid worker pubkey format", http.StatusBadRequest)
		return interfaces.WorkerPubkey{}, false
	}
	return pubkey, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
