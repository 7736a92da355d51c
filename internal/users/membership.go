package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
)

var (
	silverThreshold   = decimal.NewFromInt(5000)
	goldThreshold     = decimal.NewFromInt(20000)
	platinumThreshold = decimal.NewFromInt(50000)
)

// MemberStatusFor derives the loyalty tier from lifetime spend.
func MemberStatusFor(totalSpent decimal.Decimal) enums.MemberStatus {
	switch {
	case totalSpent.GreaterThanOrEqual(platinumThreshold):
		return enums.MemberStatusPlatinum
	case totalSpent.GreaterThanOrEqual(goldThreshold):
		return enums.MemberStatusGold
	case totalSpent.GreaterThanOrEqual(silverThreshold):
		return enums.MemberStatusSilver
	default:
		return enums.MemberStatusBronze
	}
}

// Membership is the caller's loyalty summary.
type Membership struct {
	TotalSpent   decimal.Decimal    `json:"totalSpent"`
	MemberStatus enums.MemberStatus `json:"memberStatus"`
}

// Service answers profile level questions about a user.
type Service struct {
	repo *Repository
}

// NewService wires the users service.
func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &Service{repo: repo}, nil
}

// Membership returns the user's lifetime spend and the tier derived from it.
func (s *Service) Membership(ctx context.Context, userID uuid.UUID) (*Membership, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return &Membership{
		TotalSpent:   user.TotalSpent,
		MemberStatus: MemberStatusFor(user.TotalSpent),
	}, nil
}
