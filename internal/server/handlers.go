package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"hookbox/internal/event"

	"github.com/go-chi/chi/v5"
)

const (
	EventHeader    = "X-GitHub-Event"
	DeliveryHeader = "X-GitHub-Delivery"

	RecentRunsLimit = 20  // Default number of runs returned by /status
	MaxRunsLimit    = 500 // Upper bound for ?limit=
)

// HandlePing answers liveness probes without authentication.
func (s *Server) HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

// HandleWebhook authenticates a delivery, matches it against the rules and
// schedules every matching handler. The response never waits for handlers.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	eventName := r.Header.Get(EventHeader)
	if eventName == "" {
		s.respondError(w, http.StatusBadRequest, "Missing "+EventHeader+" header")
		return
	}

	deliveryID := r.Header.Get(DeliveryHeader)
	if deliveryID == "" {
		s.respondError(w, http.StatusBadRequest, "Missing "+DeliveryHeader+" header")
		return
	}

	logger := s.logger.With("delivery", deliveryID, "event", eventName)

	// ContentLength can be -1 if not set, so the read below is checked too
	if r.ContentLength > s.maxPayloadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxPayloadBytes+1))
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		s.respondError(w, http.StatusBadRequest, "Failed to read payload")
		return
	}
	if int64(len(body)) > s.maxPayloadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	// Authenticate before looking at the body
	if !VerifySignature(body, r.Header.Get(SignatureHeader), s.secret) {
		logger.Warn("Rejected delivery with invalid signature")
		s.respondError(w, http.StatusForbidden, "Invalid signature")
		return
	}

	ev, err := event.New(eventName, deliveryID, r.Header.Get("Content-Type"), body)
	if err != nil {
		logger.Warn("Failed to parse payload", "error", err)
		s.respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	matched := s.rules.Match(ev.Name, ev.Subject())
	if len(matched) == 0 {
		logger.Info("No rule matched", "repository", ev.Repository())
	}
	s.dispatcher.Dispatch(r.Context(), matched, ev)

	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":      "ok",
		"rules":       s.rules.Names(),
		"rule_count":  s.rules.Len(),
		"fingerprint": s.rules.Fingerprint(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleStatus returns the most recent handler runs and the latest run per rule.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusServiceUnavailable, "History not enabled")
		return
	}

	limit := RecentRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, MaxRunsLimit)
	}

	recent, err := s.history.GetRecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to get recent runs", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch status")
		return
	}

	latest, err := s.history.GetLatestRunByRule(r.Context())
	if err != nil {
		s.logger.Error("Failed to get latest runs", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch status")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"fingerprint": s.rules.Fingerprint(),
		"latest":      latest,
		"recent_runs": recent,
	})
}

// HandleDeliveryStatus returns every handler run recorded for one delivery.
func (s *Server) HandleDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusServiceUnavailable, "History not enabled")
		return
	}

	deliveryID := chi.URLParam(r, "deliveryID")

	runs, err := s.history.GetRunsForDelivery(r.Context(), deliveryID)
	if err != nil {
		s.logger.Error("Failed to get delivery runs", "error", err, "delivery", deliveryID)
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch status")
		return
	}
	if len(runs) == 0 {
		s.respondError(w, http.StatusNotFound, "Unknown delivery")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"delivery_id": deliveryID,
		"runs":        runs,
	})
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
