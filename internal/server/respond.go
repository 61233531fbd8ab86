package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pingraph/pkg/cache"
	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/store"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code  pgerrors.Code `json:"code"`
	Error string        `json:"error"`
}

var sentinelCodes = map[error]pgerrors.Code{
	store.ErrNotFound:        pgerrors.ErrCodeNotFound,
	nodegraph.ErrUnknownType: pgerrors.ErrCodeUnknownType,
	nodegraph.ErrUnsupported: pgerrors.ErrCodeUnsupported,
	cache.ErrNetwork:         pgerrors.ErrCodeNetwork,
}

var codeStatus = map[pgerrors.Code]int{
	pgerrors.ErrCodeInvalidInput:  http.StatusBadRequest,
	pgerrors.ErrCodeInvalidFormat: http.StatusBadRequest,
	pgerrors.ErrCodeInvalidID:     http.StatusBadRequest,
	pgerrors.ErrCodeInvalidType:   http.StatusBadRequest,
	pgerrors.ErrCodeUnknownType:   http.StatusUnprocessableEntity,
	pgerrors.ErrCodeNotFound:      http.StatusNotFound,
	pgerrors.ErrCodeConflict:      http.StatusConflict,
	pgerrors.ErrCodeUnsupported:   http.StatusNotImplemented,
	pgerrors.ErrCodeNetwork:       http.StatusBadGateway,
	pgerrors.ErrCodeTimeout:       http.StatusGatewayTimeout,
}

// statusOf maps an error onto its code and HTTP status.
func statusOf(err error) (pgerrors.Code, int) {
	code := pgerrors.CodeOf(err, sentinelCodes, pgerrors.ErrCodeInternal)
	if status, ok := codeStatus[code]; ok {
		return code, status
	}
	return code, http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// respondError writes err as JSON. Server-side failures are logged; client
// errors are not.
func respondError(w http.ResponseWriter, logger *log.Logger, err error) {
	code, status := statusOf(err)
	msg := pgerrors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "err", err)
		if code == pgerrors.ErrCodeInternal {
			msg = "internal error"
		}
	}
	respondJSON(w, status, errorBody{Code: code, Error: msg})
}

var contentTypes = map[string]string{
	"json": "application/json",
	"yaml": "application/yaml",
	"toml": "application/toml",
	"dot":  "text/vnd.graphviz",
	"svg":  "image/svg+xml",
	"png":  "image/png",
	"pdf":  "application/pdf",
}

func contentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// formatOf returns the snapshot format named by a Content-Type header, or ""
// when the header names none.
func formatOf(ct string) string {
	for _, format := range []string{"json", "yaml", "toml"} {
		if ct == contentTypes[format] {
			return format
		}
	}
	switch ct {
	case "application/x-yaml", "text/yaml":
		return "yaml"
	}
	return ""
}
