package server

import (
	"context"

	"github.com/hexacore/hexacore/internal/policy"
)

type claimsCtxKey struct{}

func withClaims(ctx context.Context, c policy.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, c)
}

func currentClaims(ctx context.Context) (policy.Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey{}).(policy.Claims)
	return c, ok
}
