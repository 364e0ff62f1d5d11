package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn().Err(err).Msg("error encoding response")
	}
}

// internalError hides engine failures from clients and logs them.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Str("op", op).Msg("store failure")
	s.writeJSON(w, http.StatusInternalServerError, newErrorResponse("internal"))
}

// key returns the decoded {key} parameter. Keys with reserved characters
// arrive percent-encoded and chi then matches against the raw path.
func key(r *http.Request) ([]byte, error) {
	k := chi.URLParam(r, "key")
	if r.URL.RawPath != "" {
		var err error
		if k, err = url.PathUnescape(k); err != nil {
			return nil, err
		}
	}
	return []byte(k), nil
}

// writable reports whether writes are currently accepted.
func (s *Server) writable(w http.ResponseWriter) bool {
	if s.cfg.GateWrites && !s.elector.IsLeader() {
		s.writeJSON(w, http.StatusServiceUnavailable, newErrorResponse("not leader"))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Leader bool   `json:"leader"`
	}{"ok", s.elector.IsLeader()})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	k, err := key(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse("malformed key"))
		return
	}
	if !s.writable(w) {
		return
	}

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, newErrorResponse("value too large"))
			return
		}
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse("failed to read body"))
		return
	}

	if err := s.store.Put(k, value); err != nil {
		s.internalError(w, r, "put", err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSuccessResponse())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	k, err := key(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse("malformed key"))
		return
	}

	value, found, err := s.store.Get(k)
	if err != nil {
		s.internalError(w, r, "get", err)
		return
	}
	if value == nil {
		value = []byte{}
	}
	s.writeJSON(w, http.StatusOK, GetResponse{Value: value, Found: found})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	k, err := key(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse("malformed key"))
		return
	}
	if !s.writable(w) {
		return
	}

	if err := s.store.Delete(k); err != nil {
		s.internalError(w, r, "delete", err)
		return
	}
	s.writeJSON(w, http.StatusOK, DeleteResponse{Removed: true})
}
