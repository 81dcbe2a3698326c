package telemetry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hexacore/hexacore/pkg/httperr"
)

func TestNew_LevelParsing(t *testing.T) {
	if _, err := New(""); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := New("debug"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := New("nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestIdentity_OmitsPII(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	log.Info("request", Identity("u-1", "manager", "org-a")...)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["user_id"] != "u-1" || fields["role"] != "manager" || fields["organization_id"] != "org-a" {
		t.Fatalf("fields=%v", fields)
	}
	if _, ok := fields["email"]; ok {
		t.Fatal("email logged")
	}
	if _, ok := fields["permissions"]; ok {
		t.Fatal("permissions logged")
	}
}

func TestSafeError_SanitizesStoreCause(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	cause := errors.New("pq: password authentication failed for user admin")
	log.Warn("query failed", SafeError(httperr.NewStore("aggregate", cause)))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d", len(entries))
	}
	got, _ := entries[0].ContextMap()["error"].(string)
	if got != "internal error" {
		t.Fatalf("error=%q", got)
	}
}

func TestSafeError_Nil(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	zap.New(core).Info("ok", SafeError(nil))
	if len(logs.All()[0].Context) != 0 {
		t.Fatal("nil error produced a field")
	}
}

func TestRedactEmail(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"no-at-sign":       "***",
		"@example.com":     "***",
		"mina@example.com": "m***@example.com",
	}
	for in, want := range cases {
		if got := RedactEmail(in); got != want {
			t.Fatalf("RedactEmail(%q)=%q want %q", in, got, want)
		}
	}
}
