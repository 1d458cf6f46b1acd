package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/sdrshnv/deid/internal/classifier"
	"github.com/sdrshnv/deid/internal/otel"
	"github.com/sdrshnv/deid/internal/requestctx"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}
	if s.version != "" {
		resp["version"] = s.version
	}
	writeJSON(w, http.StatusOK, resp)
}

type redactRequest struct {
	Text *string `json:"text"`
}

type redactResponse struct {
	Redacted string                 `json:"redacted"`
	Entities []classifier.PIIEntity `json:"entities"`
	Degraded bool                   `json:"degraded"`
	RunID    string                 `json:"run_id"`
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var req redactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds 1 MiB")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", `missing "text" field`)
		return
	}

	res, err := s.redactor.Analyze(r.Context(), *req.Text)
	if err != nil {
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Func(otel.LogTraceFields(r.Context())).
			Msg("redact_failed")
		writeError(w, http.StatusInternalServerError, "internal", "redaction failed")
		return
	}

	log.Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("caller", requestctx.Caller(r.Context())).
		Str("run_id", res.RunID).
		Int("entities", len(res.Entities)).
		Bool("degraded", res.Degraded).
		Msg("redact_served")

	writeJSON(w, http.StatusOK, redactResponse{
		Redacted: res.Redacted,
		Entities: res.Entities,
		Degraded: res.Degraded,
		RunID:    res.RunID,
	})
}

func (s *Server) handleInferenceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"available":     s.redactor.CheckInferenceAvailable(r.Context()),
		"names_enabled": s.redactor.NamesEnabled(),
	})
}
