package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/matzehuels/stubdex/pkg/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Code: errors.ErrCodeInternal, Message: "encode response"})
	}
	writeBody(w, status, body)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// statusOf maps an error code to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error. Internal errors are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{
		Code:      errors.GetCode(err),
		Message:   message(err),
		RequestID: RequestID(r.Context()),
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", body.RequestID)
		body.Code = errors.ErrCodeInternal
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}

// message renders err without its code prefix, keeping the context added
// by wrapping.
func message(err error) string {
	msg := err.Error()
	if code := errors.GetCode(err); code != "" {
		msg = strings.TrimPrefix(msg, string(code)+": ")
	}
	return msg
}

func errNotFound(path string) error {
	return errors.New(errors.ErrCodeNotFound, "no route for %s", path)
}
