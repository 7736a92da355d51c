package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kartly/storefront-backend/api/middleware"
	"github.com/kartly/storefront-backend/api/responses"
	"github.com/kartly/storefront-backend/internal/users"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/logger"
)

// MembershipReader returns a user's lifetime spend and tier.
type MembershipReader interface {
	Membership(ctx context.Context, userID uuid.UUID) (*users.Membership, error)
}

// Membership returns {totalSpent, memberStatus} for the caller.
func Membership(svc MembershipReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		membership, err := svc.Membership(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, membership)
	}
}
