package routing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hexacore/hexacore/pkg/httperr"
)

func TestRouter_ParamsAndDispatch(t *testing.T) {
	r := NewRouter()
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/api/v1/org/{orgId}/resource/{id}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		p := Params(req)
		WriteJSON(w, http.StatusOK, map[string]string{"org": p["orgId"], "id": p["id"]})
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/org/org-a/resource/dash", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["org"] != "org-a" || got["id"] != "dash" {
		t.Fatalf("got=%v", got)
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	r := NewRouter()
	r.Handle(RouteClassOps, http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code=%d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Error != "not_found" {
		t.Fatalf("env=%+v", env)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("code=%d", rec.Code)
	}
}

func TestRouter_PanicRecovery(t *testing.T) {
	r := NewRouter()
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("secret detail that must not leak")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Error != "internal_error" || env.Detail != "internal error" {
		t.Fatalf("env=%+v", env)
	}
	if strings.Contains(rec.Body.String(), "secret detail") {
		t.Fatalf("body leaks: %s", rec.Body.String())
	}
}

func TestRouter_InvalidPatternPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewRouter().Handle(RouteClassOps, http.MethodGet, "bad", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
}

func TestWriteErr_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{httperr.NewMissingAuthorization("x"), http.StatusUnauthorized, "missing_authorization"},
		{httperr.NewOrganizationMismatch(), http.StatusForbidden, "organization_mismatch"},
		{httperr.NewCrossTenant(), http.StatusForbidden, "cross_tenant"},
		{httperr.NewValidation("bad"), http.StatusBadRequest, "validation_error"},
		{httperr.NewMalformedExpression(), http.StatusBadRequest, "malformed_expression"},
		{httperr.NewNotFound("entity not found"), http.StatusNotFound, "not_found"},
		{httperr.NewPendingConfirmation("pending"), http.StatusConflict, "pending_confirmation"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteErr(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%s: code=%d", tc.code, rec.Code)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		if env.Error != tc.code {
			t.Fatalf("env=%+v want code %s", env, tc.code)
		}
	}
}

func TestWriteErr_StoreCauseHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErr(rec, httptest.NewRequest(http.MethodGet, "/", nil), httperr.NewStore("aggregate", errAuth))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Detail != "internal error" {
		t.Fatalf("detail=%q", env.Detail)
	}
}

var errAuth = &authError{}

type authError struct{}

func (*authError) Error() string { return "pq: password authentication failed" }

func TestTraceIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	if got := traceIDFromRequest(req); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("got=%q", got)
	}

	for _, bad := range []string{"", "junk", "00-zzzz-span-01", "00-00000000000000000000000000000000-span-01"} {
		req.Header.Set("traceparent", bad)
		if got := traceIDFromRequest(req); got != "" {
			t.Fatalf("traceparent %q: got=%q", bad, got)
		}
	}
}
