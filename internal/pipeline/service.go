package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/pkg/auth"
	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service moves orders through the fixed department sequence and manages the
// cut sub-status and per-department ordering.
type Service interface {
	Advance(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error)
	MoveTo(ctx context.Context, orderID uuid.UUID, target enums.Department, actor auth.Actor) (*orders.OrderView, error)
	Reorder(ctx context.Context, orderID uuid.UUID, direction enums.ReorderDirection) error
	SetCutStatus(ctx context.Context, orderID uuid.UUID, status enums.CutStatus, actor auth.Actor) (*orders.OrderView, error)
}

type service struct {
	repo   orders.Repository
	tx     txRunner
	outbox outboxPublisher
}

// OrderMovedEvent is emitted on every department transition.
type OrderMovedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	From        enums.Department `json:"from"`
	To          enums.Department `json:"to"`
	MovedBy     string           `json:"moved_by"`
	// Seconds spent in the departed-from department. Zero when the order
	// was reopened out of completed, which keeps no open history entry.
	TimeInDepartmentSeconds int64 `json:"time_in_department_seconds"`
}

// CutStatusChangedEvent is emitted when the cut sub-status toggles.
type CutStatusChangedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	From        enums.CutStatus  `json:"from"`
	To          enums.CutStatus  `json:"to"`
	Department  enums.Department `json:"department"`
}

// NewService builds the pipeline service with the required dependencies.
func NewService(repo orders.Repository, tx txRunner, ob outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: ob}, nil
}

func (s *service) Advance(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.CurrentDepartment.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already completed").
				WithDetails(map[string]any{"order_number": order.OrderNumber})
		}
		next, ok := order.CurrentDepartment.Next()
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no next department").
				WithDetails(map[string]any{"order_number": order.OrderNumber})
		}
		return s.applyMove(ctx, tx, order, next, actor)
	})
	if err != nil {
		return nil, err
	}
	return s.fetchView(ctx, orderID)
}

func (s *service) MoveTo(ctx context.Context, orderID uuid.UUID, target enums.Department, actor auth.Actor) (*orders.OrderView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target department")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if !actor.HasDepartment(order.CurrentDepartment) || !actor.HasDepartment(target) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "department scope does not cover this move").
					WithDetails(map[string]any{"order_number": order.OrderNumber})
			}
		}
		if order.CurrentDepartment == target {
			return nil
		}
		return s.applyMove(ctx, tx, order, target, actor)
	})
	if err != nil {
		return nil, err
	}
	return s.fetchView(ctx, orderID)
}

// applyMove closes the open history entry, opens a fresh one for the target
// (completed gets no entry, it is a placement rather than a department) and
// updates the order row under its version guard.
func (s *service) applyMove(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.Department, actor auth.Actor) error {
	repo := s.repo.WithTx(tx)
	now := time.Now()

	var stayedSeconds int64
	if open, err := repo.FindOpenHistory(ctx, order.ID); err == nil {
		stayedSeconds = int64(now.Sub(open.StartedAt).Seconds())
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open department history")
	}

	if err := repo.CloseOpenHistory(ctx, order.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close department history")
	}
	if !target.IsTerminal() {
		entry := &models.DepartmentHistory{
			OrderID:    order.ID,
			Department: target,
			StartedAt:  now,
			MovedBy:    actor.DisplayName,
		}
		if err := repo.CreateHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open department history")
		}
	}

	position := 0
	if !target.IsTerminal() {
		maxPos, err := repo.MaxPosition(ctx, target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve department position")
		}
		position = maxPos + 1
	}

	from := order.CurrentDepartment
	updates := map[string]any{
		"current_department": target,
		"position":           position,
		"last_moved_by":      actor.DisplayName,
		"last_moved_at":      now,
		"last_moved_from":    from,
		"last_moved_to":      target,
	}
	if err := repo.UpdateOrderVersioned(ctx, order.ID, order.Version, updates); err != nil {
		return mapVersionedErr(err)
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderMoved,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         orders.ActorRef(actor),
		Data: OrderMovedEvent{
			OrderID:                 order.ID,
			OrderNumber:             order.OrderNumber,
			From:                    from,
			To:                      target,
			MovedBy:                 actor.DisplayName,
			TimeInDepartmentSeconds: stayedSeconds,
		},
	})
}

func (s *service) Reorder(ctx context.Context, orderID uuid.UUID, direction enums.ReorderDirection) error {
	if !direction.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid reorder direction")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		neighbor, err := repo.FindNeighbor(ctx, order.CurrentDepartment, order.Position, direction)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find neighbor")
		}
		if neighbor == nil {
			// Boundary: first order moving up or last moving down.
			return nil
		}

		if err := repo.UpdateOrderVersioned(ctx, order.ID, order.Version, map[string]any{
			"position": neighbor.Position,
		}); err != nil {
			return mapVersionedErr(err)
		}
		if err := repo.SetPosition(ctx, neighbor.ID, order.Position); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "swap neighbor position")
		}
		return nil
	})
}

func (s *service) SetCutStatus(ctx context.Context, orderID uuid.UUID, status enums.CutStatus, actor auth.Actor) (*orders.OrderView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if status != enums.CutStatusWaiting && status != enums.CutStatusCut {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cut status must be waiting or cut")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !order.ProductType.IsCuttable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cut status not applicable to this product type").
				WithDetails(map[string]any{
					"order_number": order.OrderNumber,
					"product_type": order.ProductType,
				})
		}
		if order.CutStatus == status {
			return nil
		}

		if err := repo.UpdateOrderVersioned(ctx, order.ID, order.Version, map[string]any{
			"cut_status": status,
		}); err != nil {
			return mapVersionedErr(err)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCutStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         orders.ActorRef(actor),
			Data: CutStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        order.CutStatus,
				To:          status,
				Department:  order.CurrentDepartment,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.fetchView(ctx, orderID)
}

func (s *service) fetchView(ctx context.Context, orderID uuid.UUID) (*orders.OrderView, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	view := orders.BuildOrderView(order)
	return &view, nil
}

func loadOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func mapVersionedErr(err error) error {
	switch {
	case errors.Is(err, orders.ErrVersionMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order changed concurrently")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
}
