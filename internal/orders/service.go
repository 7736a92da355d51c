package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/outbox"
	"github.com/kartly/storefront-backend/pkg/outbox/payloads"
	"github.com/kartly/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

// DeliveryNotifier tells the shopper their order arrived.
type DeliveryNotifier interface {
	SendOrderDelivered(ctx context.Context, order *models.Order) error
}

// Service exposes order history reads and admin fulfilment updates.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetail, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDetail, error)
}

// UpdateStatusInput carries an admin fulfilment transition.
type UpdateStatusInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	TrackingNumber *string
	ActorUserID    uuid.UUID
	ActorRole      enums.UserRole
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	notifier DeliveryNotifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, notifier DeliveryNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("delivery notifier required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		notifier: notifier,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetail, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindForUser(ctx, orderID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return NewOrderDetail(order), nil
}

// UpdateStatus moves an order forward along its fulfilment path. Reaching
// delivered stamps delivered_at and asks for a delivery notification once the
// transaction has committed.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDetail, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").WithDetails(map[string]any{
			"status": input.Status,
		})
	}

	var (
		updated *models.Order
		from    enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID, true)
		if errors.Is(err, ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		from = order.Status
		if !order.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").WithDetails(map[string]any{
				"from": order.Status,
				"to":   input.Status,
			})
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":     input.Status,
			"updated_at": now,
		}
		order.Status = input.Status
		order.UpdatedAt = now
		if input.TrackingNumber != nil {
			tracking := strings.TrimSpace(*input.TrackingNumber)
			if tracking != "" {
				updates["tracking_number"] = tracking
				order.TrackingNumber = &tracking
			}
		}
		if input.Status == enums.OrderStatusDelivered {
			updates["delivered_at"] = now
			order.DeliveredAt = &now
		}
		if err := repo.UpdateStatus(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				From:      from,
				To:        input.Status,
				ChangedAt: now,
			},
		}
		if _, err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status change")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": updated.ID.String(),
		"from":     from,
		"to":       updated.Status,
	})
	s.logg.Info(logCtx, "order status updated")

	if updated.Status == enums.OrderStatusDelivered {
		if err := s.notifier.SendOrderDelivered(ctx, updated); err != nil {
			s.logg.Error(logCtx, "order delivered notification failed", err)
		}
	}
	return NewOrderDetail(updated), nil
}
