package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/climate-bridge/internal/bridge"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Request errors.
const (
	CodeInvalidBody     = "invalid_body"
	CodeInvalidParam    = "invalid_parameter"
	CodeMissingAction   = "missing_action"
	CodeJournalDisabled = "journal_disabled"
	CodeInternal        = "internal_error"
)

// Command outcomes. These ride on 200 responses whose result failed.
const (
	CodeDeviceOffline = "device_offline"
	CodeInvalidRelay  = "invalid_relay"
	CodeInvalidMode   = "invalid_mode"
	CodeMissingState  = "missing_state"
	CodeEmptyConfig   = "empty_config"
	CodeEmptyText     = "empty_text"
	CodeUnknownAction = "unknown_action"
)

var resultCodes = map[string]string{
	bridge.MessageOffline:       CodeDeviceOffline,
	bridge.MessageInvalidRelay:  CodeInvalidRelay,
	bridge.MessageInvalidMode:   CodeInvalidMode,
	bridge.MessageMissingState:  CodeMissingState,
	bridge.MessageEmptyConfig:   CodeEmptyConfig,
	bridge.MessageEmptyText:     CodeEmptyText,
	bridge.MessageUnknownAction: CodeUnknownAction,
}

// CommandResponse is a bridge result as sent to HTTP and WebSocket callers.
type CommandResponse struct {
	bridge.Result

	// Code is set only when the result failed.
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func newCommandResponse(res bridge.Result, requestID string) CommandResponse {
	out := CommandResponse{Result: res, RequestID: requestID}
	if !res.Success {
		out.Code = resultCodes[res.Message]
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes the error envelope, tagged with the request ID, and adds
// the code to the request log line.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	annotate(r, "error_code", code)
	writeJSON(w, status, Error{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: requestID(r.Context()),
	})
}
