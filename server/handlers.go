package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"xhsmcp/queue"
	"xhsmcp/xiaohongshu"
)

func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding response failed", "err", err)
	}
}

func (s *Server) writeSuccessResponse(w http.ResponseWriter, data any) {
	s.writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSONResponse(w, statusCode, map[string]any{
		"success": false,
		"message": message,
	})
}

// writeActionError maps an action error to a status code.
func (s *Server) writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, xiaohongshu.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, queue.ErrClosed):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	s.writeErrorResponse(w, err.Error(), code)
}

// intQuery returns the integer query parameter or def when it is absent or
// not a number.
func intQuery(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheckLogin(w http.ResponseWriter, r *http.Request) {
	status, err := s.checkLogin(r.Context())
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeSuccessResponse(w, status)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	timeout := time.Duration(intQuery(r, "timeout_seconds", 0)) * time.Second
	status, err := s.login(r.Context(), timeout)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeSuccessResponse(w, status)
}

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	page := intQuery(r, "page", xiaohongshu.DefaultPage)
	size := intQuery(r, "size", xiaohongshu.DefaultSize)

	res, err := s.feeds(r.Context(), page, size)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeSuccessResponse(w, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intQuery(r, "page", xiaohongshu.DefaultPage)
	size := intQuery(r, "size", xiaohongshu.DefaultSize)

	res, err := s.search(r.Context(), q.Get("keyword"), page, size)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeSuccessResponse(w, res)
}

func (s *Server) handleNoteDetail(w http.ResponseWriter, r *http.Request) {
	res, err := s.noteDetail(r.Context(), r.URL.Query().Get("note_id"))
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeSuccessResponse(w, res)
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	var req xiaohongshu.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.comment(r.Context(), req)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeSuccessResponse(w, res)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req xiaohongshu.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.publish(r.Context(), req)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeSuccessResponse(w, res)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.queue.Job(mux.Vars(r)["id"])
	if !ok {
		s.writeErrorResponse(w, "job not found", http.StatusNotFound)
		return
	}
	s.writeSuccessResponse(w, job)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeErrorResponse(w, "history is not configured", http.StatusServiceUnavailable)
		return
	}
	episodes, err := s.history.Recent(r.Context(), intQuery(r, "limit", 0))
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeSuccessResponse(w, map[string]any{"episodes": episodes, "count": len(episodes)})
}

func (s *Server) handleLoginProbe(w http.ResponseWriter, r *http.Request) {
	if s.probe == nil {
		s.writeErrorResponse(w, "login probe is not scheduled", http.StatusServiceUnavailable)
		return
	}
	snap, ok := s.probe.Last()
	if !ok {
		s.writeErrorResponse(w, "login probe has not run yet", http.StatusNotFound)
		return
	}
	s.writeSuccessResponse(w, snap)
}
