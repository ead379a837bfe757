package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/userdb"
)

const (
	contentTypeJSON    = "application/json; charset=utf-8"
	contentTypeMsgpack = "application/msgpack"
)

type errorBody struct {
	Error     string `json:"error" msgpack:"error"`
	RequestID string `json:"request_id,omitempty" msgpack:"request_id,omitempty"`
}

// render writes v as msgpack when the client asks for it and as JSON
// otherwise.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, v any) {
	if strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		b, err := msgpack.Marshal(v)
		if err != nil {
			s.log.ErrorContext(r.Context(), "encode response", "error", err, "request_id", RequestID(r.Context()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		w.Write(b)
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.log.ErrorContext(r.Context(), "encode response", "error", err, "request_id", RequestID(r.Context()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(append(b, '\n'))
}

// fail maps err to a status code and a message safe to show to clients.
// Anything that is not a known client error is logged and reported as an
// internal error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	} else {
		s.log.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.render(w, r, status, errorBody{Error: msg, RequestID: RequestID(r.Context())})
}

func classify(err error) (int, string) {
	var (
		ce userdb.ConstraintError
		nf *userdb.NotFoundError
	)
	switch {
	case userdb.IsUserError(err):
		return http.StatusBadRequest, userMessage(err)
	case errors.As(err, &nf):
		// The key is left out: it echoes caller input.
		return http.StatusNotFound, nf.Label() + " not found"
	case userdb.IsNotFound(err):
		return http.StatusNotFound, "not found"
	case errors.As(err, &ce):
		return http.StatusConflict, ce.Error()
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

// userMessage returns the message of the innermost user error in err so
// that driver context wrapped around it is not exposed.
func userMessage(err error) string {
	var (
		mf *userdb.MissingFieldError
		ut *userdb.UnknownTypeError
		am *userdb.ArityMismatchError
		ve *userdb.ValidationError
	)
	switch {
	case errors.As(err, &mf):
		return mf.Error()
	case errors.As(err, &ut):
		return ut.Error()
	case errors.As(err, &am):
		return am.Error()
	case errors.As(err, &ve):
		return ve.Error()
	}
	return err.Error()
}
