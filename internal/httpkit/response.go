// Package httpkit holds the small request/response helpers shared by
// every HTTP handler: JSON decoding with a body cap, the response
// envelope, CORS, and Postgres error classification.
package httpkit

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes caps JSON request bodies. Lesson scripts are text and
// fit comfortably; media uploads go through multipart, not JSON.
const maxBodyBytes = 1 << 20

// ErrorEnvelope is the uniform error response shape.
type ErrorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// DecodeJSON reads a JSON request body into v. Unknown fields are
// rejected so client typos surface as 400s instead of silently
// dropped options.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// WriteJSON writes body as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteErr writes the error envelope. code is a stable machine-readable
// identifier; details carries field-level context for clients.
func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	var env ErrorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details
	WriteJSON(w, status, env)
}
