package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/api/middleware"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
)

// requestActor is the authenticated identity handlers pass down to services.
type requestActor struct {
	UserID  uuid.UUID
	StoreID *uuid.UUID
	Role    enums.UserRole
}

func actorFromContext(ctx context.Context) (requestActor, error) {
	rawUserID := middleware.UserIDFromContext(ctx)
	if rawUserID == "" {
		return requestActor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	role, err := enums.ParseUserRole(middleware.RoleFromContext(ctx))
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}

	actor := requestActor{UserID: userID, Role: role}
	if rawStoreID := middleware.StoreIDFromContext(ctx); rawStoreID != "" {
		storeID, parseErr := uuid.Parse(rawStoreID)
		if parseErr != nil {
			return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, parseErr, "invalid store id")
		}
		actor.StoreID = &storeID
	}
	return actor, nil
}
