package auth

import (
	"context"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

type ctxKey struct{}

// WithUser stores the signed-in user in ctx.
func WithUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom returns the user stored by WithUser.
func UserFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(domain.User)
	return u, ok && u.ID != ""
}
