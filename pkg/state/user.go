package state

import (
	"context"
)

const (
	CurrentUserId      = "CurrentUserId"
	CurrentWorkspaceId = "CurrentWorkspaceId"
	CurrentUserIP      = "CurrentIP"
)

// CurrentUser returns the current user's ID as uint from the context.
func CurrentUser(ctx context.Context) uint {
	value := ctx.Value(CurrentUserId)
	if value == nil {
		return 0
	}

	userID, ok := value.(uint)
	if !ok {
		return 0
	}

	return userID
}

// CurrentWorkspace returns the workspace the authenticated user belongs to.
// Every collaborator query is scoped by this value.
func CurrentWorkspace(ctx context.Context) uint {
	value := ctx.Value(CurrentWorkspaceId)
	if value == nil {
		return 0
	}

	workspaceID, ok := value.(uint)
	if !ok {
		return 0
	}

	return workspaceID
}

func SetCurrentUser(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, CurrentUserId, userID)
}

func SetCurrentWorkspace(ctx context.Context, workspaceID uint) context.Context {
	return context.WithValue(ctx, CurrentWorkspaceId, workspaceID)
}
