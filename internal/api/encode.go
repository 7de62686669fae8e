package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

const maxBodyBytes = 1 << 16

// decode reads a JSON object body. On failure it writes a 400 and reports
// false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		s.logger.Debug("bad request body", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusBadRequest, msgInvalidParam)
		return nil, false
	}
	if body == nil {
		writeMessage(w, http.StatusBadRequest, msgMissingParam)
		return nil, false
	}
	return body, true
}

// requireString extracts a non-empty string field.
func requireString(w http.ResponseWriter, body map[string]any, key string) (string, bool) {
	raw, present := body[key]
	if !present || raw == nil {
		writeMessage(w, http.StatusBadRequest, msgMissingParam)
		return "", false
	}
	v, ok := raw.(string)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidParam)
		return "", false
	}
	if v == "" {
		writeMessage(w, http.StatusBadRequest, msgMissingParam)
		return "", false
	}
	return v, true
}

func optionalString(w http.ResponseWriter, body map[string]any, key string) (string, bool) {
	raw, present := body[key]
	if !present || raw == nil {
		return "", true
	}
	v, ok := raw.(string)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidParam)
		return "", false
	}
	return v, true
}

func optionalBool(w http.ResponseWriter, body map[string]any, key string, def bool) (bool, bool) {
	raw, present := body[key]
	if !present || raw == nil {
		return def, true
	}
	v, ok := raw.(bool)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidParam)
		return false, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageResponse{Message: msg})
}

var viewFuncs = map[string]any{
	"date": func(t time.Time) string { return t.Format("Mon 2 Jan 2006") },
}
