package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/climate-bridge/internal/bridge"
)

// maxWait caps the wait_ms query parameter below the default write timeout.
const maxWait = 20 * time.Second

// handleTelemetry answers with the cached telemetry, first waiting up to
// wait_ms for a fresh sensor reading. wait_ms=0 answers immediately.
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	wait := s.bridge.QueryDeadline()
	if raw := r.URL.Query().Get("wait_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			writeError(w, r, http.StatusBadRequest, CodeInvalidParam, "wait_ms must be a non-negative integer")
			return
		}
		wait = maxWait
		if ms < int(maxWait/time.Millisecond) {
			wait = time.Duration(ms) * time.Millisecond
		}
	}

	res := s.bridge.Query(r.Context(), wait)
	annotate(r, "wait_ms", wait.Milliseconds(), "timed_out", res.TimedOut, "stale", res.IsStale)
	writeJSON(w, http.StatusOK, res)
}

// handleCommand executes a control action or a text command.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req bridge.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidBody, "invalid JSON body: "+err.Error())
		return
	}
	if req.Action == "" {
		writeError(w, r, http.StatusBadRequest, CodeMissingAction, "action is required")
		return
	}
	req.Source = "api"

	resp := newCommandResponse(s.bridge.Execute(r.Context(), req), requestID(r.Context()))
	annotate(r, "action", req.Action, "success", resp.Success)
	if resp.Code != "" {
		annotate(r, "result_code", resp.Code)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleJournal lists recent commands.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, r, http.StatusNotFound, CodeJournalDisabled, "command journal is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, CodeInvalidParam, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.journal.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing journal failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, CodeInternal, "failed to list journal")
		return
	}

	annotate(r, "entries", len(entries))
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
