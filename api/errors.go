package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/monitoring"
)

// HTTPError carries a status code and a user-facing message.
type HTTPError struct {
	cause   error
	Code    int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }
func (e *HTTPError) Unwrap() error { return e.cause }

func badRequest(msg string, cause error) *HTTPError {
	return &HTTPError{cause: cause, Code: http.StatusBadRequest, Message: msg}
}

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var he *HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrStateConflict), errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrCapacity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type appHandler func(w http.ResponseWriter, r *http.Request) error

// handle adapts an appHandler, writing {"error": msg} on failure. Server
// errors are logged and reported; their details are not exposed.
func handle(log logger.Logger, h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		code := StatusFor(err)
		msg := err.Error()
		if code >= http.StatusInternalServerError {
			log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
			monitoring.Capture(err, "http", "path", r.URL.Path)
			msg = http.StatusText(code)
		} else {
			log.Debugf("%s %s: %d %v", r.Method, r.URL.Path, code, err)
		}
		writeJSON(w, code, map[string]string{"error": msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decode(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return badRequest("invalid request payload: "+err.Error(), err)
	}
	return nil
}
