// Package httperr carries the typed error classes shared by the policy
// gateway, the entity store and the HTTP surface. Each class maps to one
// wire-level error kind; messages must stay safe to return to callers
// (no tenant identifiers, emails or raw rejected expressions).
package httperr

import (
	"errors"
	"fmt"
)

// Kind is the wire-level error identifier used in response envelopes.
type Kind string

const (
	KindMissingAuthorization Kind = "missing_authorization"
	KindInvalidTokenFormat   Kind = "invalid_token_format"
	KindUserNotFound         Kind = "user_not_found"
	KindOrganizationMismatch Kind = "organization_mismatch"
	KindValidation           Kind = "validation_error"
	KindTypeMismatch         Kind = "type_mismatch"
	KindCrossTenant          Kind = "cross_tenant"
	KindNotFound             Kind = "not_found"
	KindMalformedExpression  Kind = "malformed_expression"
	KindPendingConfirmation  Kind = "pending_confirmation"
	KindStore                Kind = "store_error"
	KindInternal             Kind = "internal_error"
)

type MissingAuthorizationError struct{ msg string }

func (e *MissingAuthorizationError) Error() string { return e.msg }

func NewMissingAuthorization(msg string) error { return &MissingAuthorizationError{msg: msg} }

type InvalidTokenFormatError struct{ msg string }

func (e *InvalidTokenFormatError) Error() string { return e.msg }

func NewInvalidTokenFormat(msg string) error { return &InvalidTokenFormatError{msg: msg} }

type UserNotFoundError struct{ msg string }

func (e *UserNotFoundError) Error() string { return e.msg }

func NewUserNotFound(msg string) error { return &UserNotFoundError{msg: msg} }

// OrganizationMismatchError is the fatal tenant-boundary violation raised
// before any condition evaluation. It never carries the requested or the
// caller's organization id.
type OrganizationMismatchError struct{}

func (e *OrganizationMismatchError) Error() string { return "organization mismatch" }

func NewOrganizationMismatch() error { return &OrganizationMismatchError{} }

type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

func NewValidation(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// TypeMismatchError reports a dynamic field write whose value type
// conflicts with the type previously declared for that field.
type TypeMismatchError struct {
	Field    string
	Declared string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q declared as %s, got %s", e.Field, e.Declared, e.Got)
}

func NewTypeMismatch(field, declared, got string) error {
	return &TypeMismatchError{Field: field, Declared: declared, Got: got}
}

// CrossTenantError reports a write whose endpoints span two organizations.
// The message never names the foreign organization.
type CrossTenantError struct{}

func (e *CrossTenantError) Error() string { return "record endpoints span organizations" }

func NewCrossTenant() error { return &CrossTenantError{} }

type NotFoundError struct{ msg string }

func (e *NotFoundError) Error() string { return e.msg }

func NewNotFound(msg string) error { return &NotFoundError{msg: msg} }

// MalformedExpressionError rejects a hostile or malformed field path or
// template before it reaches resolution or query dispatch. The raw
// expression content is deliberately not retained.
type MalformedExpressionError struct{}

func (e *MalformedExpressionError) Error() string { return "rejected: invalid field/path" }

func NewMalformedExpression() error { return &MalformedExpressionError{} }

type PendingConfirmationError struct{ msg string }

func (e *PendingConfirmationError) Error() string { return e.msg }

func NewPendingConfirmation(msg string) error { return &PendingConfirmationError{msg: msg} }

// StoreError is the sanitized wrapper over backing-store failures. The
// wrapped cause is available for logs via Unwrap but must not be written
// to response bodies.
type StoreError struct {
	op    string
	cause error
}

func (e *StoreError) Error() string { return "store failure during " + e.op }

func (e *StoreError) Unwrap() error { return e.cause }

func NewStore(op string, cause error) error { return &StoreError{op: op, cause: cause} }

func IsMissingAuthorization(err error) bool { return is[*MissingAuthorizationError](err) }
func IsInvalidTokenFormat(err error) bool   { return is[*InvalidTokenFormatError](err) }
func IsUserNotFound(err error) bool         { return is[*UserNotFoundError](err) }
func IsOrganizationMismatch(err error) bool { return is[*OrganizationMismatchError](err) }
func IsValidation(err error) bool           { return is[*ValidationError](err) }
func IsTypeMismatch(err error) bool         { return is[*TypeMismatchError](err) }
func IsCrossTenant(err error) bool          { return is[*CrossTenantError](err) }
func IsNotFound(err error) bool             { return is[*NotFoundError](err) }
func IsMalformedExpression(err error) bool  { return is[*MalformedExpressionError](err) }
func IsPendingConfirmation(err error) bool  { return is[*PendingConfirmationError](err) }
func IsStore(err error) bool                { return is[*StoreError](err) }

func is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// KindOf maps an error to its wire-level kind. Unknown errors map to
// internal_error so backing-store details never leak by default.
func KindOf(err error) Kind {
	switch {
	case IsMissingAuthorization(err):
		return KindMissingAuthorization
	case IsInvalidTokenFormat(err):
		return KindInvalidTokenFormat
	case IsUserNotFound(err):
		return KindUserNotFound
	case IsOrganizationMismatch(err):
		return KindOrganizationMismatch
	case IsValidation(err):
		return KindValidation
	case IsTypeMismatch(err):
		return KindTypeMismatch
	case IsCrossTenant(err):
		return KindCrossTenant
	case IsNotFound(err):
		return KindNotFound
	case IsMalformedExpression(err):
		return KindMalformedExpression
	case IsPendingConfirmation(err):
		return KindPendingConfirmation
	case IsStore(err):
		return KindStore
	default:
		return KindInternal
	}
}

// SafeDetail returns the message callers may see. Store failures and
// unclassified errors collapse to a generic string.
func SafeDetail(err error) string {
	switch KindOf(err) {
	case KindStore, KindInternal:
		return "internal error"
	default:
		return err.Error()
	}
}
