package routing

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hexacore/hexacore/pkg/httperr"
)

// ErrorEnvelope is the only error shape the API emits. Detail is always
// a sanitized string; infrastructure causes and tenant data never appear.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code string, detail string) {
	WriteJSON(w, status, ErrorEnvelope{
		Error:   code,
		Detail:  detail,
		TraceID: traceIDFromRequest(r),
	})
}

// WriteErr maps a typed error onto the envelope.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := httperr.KindOf(err)
	WriteError(w, r, statusFor(kind), string(kind), httperr.SafeDetail(err))
}

func statusFor(kind httperr.Kind) int {
	switch kind {
	case httperr.KindMissingAuthorization, httperr.KindInvalidTokenFormat, httperr.KindUserNotFound:
		return http.StatusUnauthorized
	case httperr.KindOrganizationMismatch, httperr.KindCrossTenant:
		return http.StatusForbidden
	case httperr.KindValidation, httperr.KindTypeMismatch, httperr.KindMalformedExpression:
		return http.StatusBadRequest
	case httperr.KindNotFound:
		return http.StatusNotFound
	case httperr.KindPendingConfirmation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func traceIDFromRequest(r *http.Request) string {
	traceparent := strings.TrimSpace(r.Header.Get("traceparent"))
	if traceparent == "" {
		return ""
	}
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return ""
	}
	traceID := strings.ToLower(parts[1])
	if len(traceID) != 32 || traceID == "00000000000000000000000000000000" {
		return ""
	}
	for _, ch := range traceID {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return ""
		}
	}
	return traceID
}
