package httperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{NewMissingAuthorization("no bearer"), KindMissingAuthorization},
		{NewInvalidTokenFormat("bad claims"), KindInvalidTokenFormat},
		{NewUserNotFound("unknown user"), KindUserNotFound},
		{NewOrganizationMismatch(), KindOrganizationMismatch},
		{NewValidation("missing %s", "type"), KindValidation},
		{NewTypeMismatch("price", "number", "text"), KindTypeMismatch},
		{NewCrossTenant(), KindCrossTenant},
		{NewNotFound("entity not found"), KindNotFound},
		{NewMalformedExpression(), KindMalformedExpression},
		{NewPendingConfirmation("confirmation required"), KindPendingConfirmation},
		{NewStore("entity insert", errors.New("conn refused")), KindStore},
		{errors.New("anything else"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v)=%q want %q", tc.err, got, tc.want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewCrossTenant())
	if !IsCrossTenant(err) {
		t.Fatal("expected cross-tenant match through wrapping")
	}
	if KindOf(err) != KindCrossTenant {
		t.Fatalf("kind=%q", KindOf(err))
	}
}

func TestStoreError_HidesCause(t *testing.T) {
	cause := errors.New("pq: relation core_entities does not exist")
	err := NewStore("entity read", cause)
	if strings.Contains(err.Error(), "core_entities") {
		t.Fatalf("store error leaked cause: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to reach cause")
	}
	if SafeDetail(err) != "internal error" {
		t.Fatalf("detail=%q", SafeDetail(err))
	}
}

func TestOrganizationMismatch_NoTenantData(t *testing.T) {
	err := NewOrganizationMismatch()
	if strings.ContainsAny(err.Error(), "0123456789") {
		t.Fatalf("mismatch message carries identifiers: %q", err.Error())
	}
}

func TestMalformedExpression_NeverEchoes(t *testing.T) {
	err := NewMalformedExpression()
	if err.Error() != "rejected: invalid field/path" {
		t.Fatalf("msg=%q", err.Error())
	}
}

func TestSafeDetail_PassesTypedMessages(t *testing.T) {
	if got := SafeDetail(NewValidation("entity type required")); got != "entity type required" {
		t.Fatalf("detail=%q", got)
	}
}
