package server

import (
	"encoding/json"
	"net/http"

	"github.com/tanaylab/mcbrowse/pkg/bridge"
	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnknownOption, errors.ErrCodeInvalidOption,
		errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeSchemaMismatch, errors.ErrCodeEmptyData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	info := bridge.NewErrorInfo(err)
	writeJSON(w, statusFor(errors.Code(info.Code)), map[string]any{"error": info})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
