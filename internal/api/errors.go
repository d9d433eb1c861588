package api

import (
	"encoding/json"
	"net/http"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Code       string `json:"code,omitempty"`
	MaxSize    int64  `json:"maxSize,omitempty"`
	ActualSize int64  `json:"actualSize,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch apperr.GetCode(err) {
	case apperr.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.ErrCodeMissingFile, apperr.ErrCodeUnsupportedType,
		apperr.ErrCodeEmptyOrCorrupt, apperr.ErrCodeInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders err. Tool and I/O failures get the generic summary
// with the specific message moved into details.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{
		Error:   apperr.UserMessage(err),
		Details: apperr.Details(err),
		Code:    string(apperr.GetCode(err)),
	}
	if status == http.StatusInternalServerError {
		msg := body.Error
		body.Error = "Failed to process image"
		switch {
		case body.Details == "":
			body.Details = msg
		case msg != "":
			body.Details = msg + ": " + body.Details
		}
	}
	writeJSON(w, status, body)
}
