// Package telemetry builds the process logger and keeps identity data
// out of it. Log lines carry user ids and roles; permission lists and
// tokens never reach a sink, and emails only in redacted form.
package telemetry

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hexacore/hexacore/pkg/httperr"
)

// New builds a production logger at the given level. An empty level
// means info.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// Identity returns the loggable slice of an identity. Email and
// permissions are deliberately absent.
func Identity(userID, role, orgID string) []zap.Field {
	return []zap.Field{
		zap.String("user_id", userID),
		zap.String("role", role),
		zap.String("organization_id", orgID),
	}
}

// SafeError renders an error for logging through the same sanitizer the
// HTTP envelope uses, so store and internal causes stay opaque.
func SafeError(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", httperr.SafeDetail(err))
}

// RedactEmail masks the local part of an address, keeping one leading
// character and the domain for correlation.
func RedactEmail(addr string) string {
	if addr == "" {
		return ""
	}
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}
