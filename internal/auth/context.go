package auth

import (
	"context"
	"errors"
)

// Identity travels on the request context from the token middleware down to
// the call and reporting services. Workspace scoping everywhere below HTTP
// reads it from here, never from request parameters.

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxWorkspaceID
	ctxRole
)

func WithIdentity(ctx context.Context, userID, workspaceID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxWorkspaceID, workspaceID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("auth: no user identity in context")
}

// WorkspaceID returns the tenant the request is authenticated for.
func WorkspaceID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxWorkspaceID).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("auth: no workspace in context")
}

func Role(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxRole).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("auth: no role in context")
}
