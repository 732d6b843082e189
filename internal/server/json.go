package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/figura/pkg/errors"
)

type errResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("json encode failed", "err", err)
	}
}

// writeError maps err to a status. Aborts get 499 with no body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() == nil && stderrors.Is(err, context.DeadlineExceeded) {
		err = errors.Wrap(errors.ErrCodeTimeout, err, "request timed out")
	} else if errors.IsAborted(err) || r.Context().Err() != nil {
		s.Logger.Debug("request aborted", "path", r.URL.Path, "request_id", w.Header().Get(headerRequestID))
		w.WriteHeader(StatusClientClosed)
		return
	}
	status := errors.HTTPStatus(err)
	msg := err.Error()
	if status >= 500 {
		s.Logger.Error("request failed", "path", r.URL.Path, "err", err)
		msg = errors.UserMessage(err)
	}
	s.writeJSON(w, status, errResponse{Error: msg, Code: errors.GetCode(err)})
}

// decode reads a JSON body bounded by MaxBodyBytes.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
