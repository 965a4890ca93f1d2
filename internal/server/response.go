package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/project"
)

const maxBodyBytes = 10 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch errdef.CodeOf(err) {
	case errdef.CodeNotFound:
		return http.StatusNotFound
	case errdef.CodeValidation, errdef.CodeImport:
		return http.StatusBadRequest
	case errdef.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondErr logs server-side failures in full but only sends their short
// message, so causes such as file paths stay out of responses.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		respondError(w, status, errdef.Message(err))
		return
	}
	respondError(w, status, err.Error())
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errdef.New(errdef.CodeValidation, "request body too large")
		}
		return nil, errdef.Wrap(errdef.CodeValidation, err, "read request body")
	}
	return data, nil
}

// decodeJSON fills v from the request body. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		if errdef.CodeOf(err) != errdef.CodeUnknown {
			return err
		}
		return errdef.Wrap(errdef.CodeValidation, err, "invalid JSON body")
	}
	return nil
}

// activeProject writes a 404 and returns false when the session has none.
func (s *Server) activeProject(w http.ResponseWriter, r *http.Request) (*project.Project, bool) {
	p, ok := s.reg.Active(sessionID(r))
	if !ok {
		respondError(w, http.StatusNotFound, "no active project")
		return nil, false
	}
	return p, true
}
