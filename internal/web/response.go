package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"recipe-planner/internal/apperr"
)

const maxBodyBytes = 1 << 20

// APIResponse is the envelope of every JSON API response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) ok(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// writeError maps an application error onto its status and envelope.
// Validation errors carry their field messages in data.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// Client went away; nobody is listening.
		return
	}

	if appErr, ok := apperr.As(err); ok {
		status := appErr.StatusCode()
		if status >= http.StatusInternalServerError {
			s.log.Error("request failed",
				zap.String("request_id", RequestIDFrom(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		resp := APIResponse{Error: string(appErr.Kind), Message: appErr.Message}
		if len(appErr.Fields) > 0 {
			resp.Data = appErr.Fields
		}
		s.writeJSON(w, status, resp)
		return
	}

	s.log.Error("unexpected error",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	s.writeJSON(w, http.StatusInternalServerError, APIResponse{
		Error:   "INTERNAL_ERROR",
		Message: "something went wrong",
	})
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, APIResponse{Error: "BAD_REQUEST", Message: message})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// download writes data as a JSON file attachment.
func download(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
