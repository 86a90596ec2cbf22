package queues

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/pkg/auth"
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

// TogglePayload carries the per-queue inputs of a toggle request.
type TogglePayload struct {
	Enable       bool
	Reason       *string
	FixNotes     *string
	VendorStatus *enums.ExternalVendorStatus
}

// Service manages the exception queues layered on top of department
// placement. Flags are independent; none of these operations touches
// current_department.
type Service interface {
	Toggle(ctx context.Context, orderID uuid.UUID, queue enums.QueueName, payload TogglePayload, actor auth.Actor) (*orders.OrderView, error)

	AddHold(ctx context.Context, orderID uuid.UUID, reason string, actor auth.Actor) (*orders.OrderView, error)
	RemoveHold(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error)
	SetRush(ctx context.Context, orderID uuid.UUID, reason *string, actor auth.Actor) (*orders.OrderView, error)
	ClearRush(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error)
	SetRedo(ctx context.Context, orderID uuid.UUID, reason *string, actor auth.Actor) (*orders.OrderView, error)
	ClearRedo(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error)
	AddRefinish(ctx context.Context, orderID uuid.UUID, fixNotes string, actor auth.Actor) (*orders.OrderView, error)
	RemoveRefinish(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error)
	SetExternalStatus(ctx context.Context, orderID uuid.UUID, status enums.ExternalVendorStatus, actor auth.Actor) (*orders.OrderView, error)
}

type service struct {
	repo   orders.Repository
	tx     txRunner
	outbox outboxPublisher
}

// QueueToggledEvent is emitted on every queue flag change.
type QueueToggledEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Queue       enums.QueueName `json:"queue"`
	Enabled     bool            `json:"enabled"`
	Value       *string         `json:"value,omitempty"`
}

// NewService builds the queues service with the required dependencies.
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

func (s *service) Toggle(ctx context.Context, orderID uuid.UUID, queue enums.QueueName, payload TogglePayload, actor auth.Actor) (*orders.OrderView, error) {
	switch queue {
	case enums.QueueHold:
		if payload.Enable {
			reason := ""
			if payload.Reason != nil {
				reason = *payload.Reason
			}
			return s.AddHold(ctx, orderID, reason, actor)
		}
		return s.RemoveHold(ctx, orderID, actor)
	case enums.QueueRush:
		if payload.Enable {
			return s.SetRush(ctx, orderID, payload.Reason, actor)
		}
		return s.ClearRush(ctx, orderID, actor)
	case enums.QueueRedo:
		if payload.Enable {
			return s.SetRedo(ctx, orderID, payload.Reason, actor)
		}
		return s.ClearRedo(ctx, orderID, actor)
	case enums.QueueRefinish:
		if payload.Enable {
			notes := ""
			if payload.FixNotes != nil {
				notes = *payload.FixNotes
			}
			return s.AddRefinish(ctx, orderID, notes, actor)
		}
		return s.RemoveRefinish(ctx, orderID, actor)
	case enums.QueueExternalVendor:
		if payload.VendorStatus == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor status required")
		}
		return s.SetExternalStatus(ctx, orderID, *payload.VendorStatus, actor)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid queue name")
	}
}

func (s *service) AddHold(ctx context.Context, orderID uuid.UUID, reason string, actor auth.Actor) (*orders.OrderView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hold reason required")
	}
	now := time.Now()
	return s.apply(ctx, orderID, actor, enums.QueueHold, true, &reason, map[string]any{
		"on_hold":     true,
		"hold_reason": reason,
		"hold_at":     now,
	})
}

func (s *service) RemoveHold(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error) {
	return s.apply(ctx, orderID, actor, enums.QueueHold, false, nil, map[string]any{
		"on_hold":     false,
		"hold_reason": nil,
		"hold_at":     nil,
	})
}

func (s *service) SetRush(ctx context.Context, orderID uuid.UUID, reason *string, actor auth.Actor) (*orders.OrderView, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rush flag requires the admin role")
	}
	now := time.Now()
	updates := map[string]any{
		"is_rush": true,
		"rush_at": now,
	}
	if reason != nil {
		updates["rush_reason"] = strings.TrimSpace(*reason)
	}
	return s.apply(ctx, orderID, actor, enums.QueueRush, true, reason, updates)
}

func (s *service) ClearRush(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rush flag requires the admin role")
	}
	return s.apply(ctx, orderID, actor, enums.QueueRush, false, nil, map[string]any{
		"is_rush":     false,
		"rush_reason": nil,
		"rush_at":     nil,
	})
}

func (s *service) SetRedo(ctx context.Context, orderID uuid.UUID, reason *string, actor auth.Actor) (*orders.OrderView, error) {
	now := time.Now()
	updates := map[string]any{
		"is_redo": true,
		"redo_at": now,
	}
	if reason != nil {
		updates["redo_reason"] = strings.TrimSpace(*reason)
	}
	return s.apply(ctx, orderID, actor, enums.QueueRedo, true, reason, updates)
}

func (s *service) ClearRedo(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error) {
	return s.apply(ctx, orderID, actor, enums.QueueRedo, false, nil, map[string]any{
		"is_redo":     false,
		"redo_reason": nil,
		"redo_at":     nil,
	})
}

func (s *service) AddRefinish(ctx context.Context, orderID uuid.UUID, fixNotes string, actor auth.Actor) (*orders.OrderView, error) {
	fixNotes = strings.TrimSpace(fixNotes)
	if fixNotes == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refinish fix notes required")
	}
	return s.apply(ctx, orderID, actor, enums.QueueRefinish, true, &fixNotes, map[string]any{
		"is_refinish":        true,
		"refinish_fix_notes": fixNotes,
	})
}

func (s *service) RemoveRefinish(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*orders.OrderView, error) {
	return s.apply(ctx, orderID, actor, enums.QueueRefinish, false, nil, map[string]any{
		"is_refinish":        false,
		"refinish_fix_notes": nil,
	})
}

func (s *service) SetExternalStatus(ctx context.Context, orderID uuid.UUID, status enums.ExternalVendorStatus, actor auth.Actor) (*orders.OrderView, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid external vendor status")
	}
	value := status.String()
	// Vendor handoffs are externally driven; any status may follow any other.
	return s.apply(ctx, orderID, actor, enums.QueueExternalVendor, status != enums.ExternalVendorNotSent, &value, map[string]any{
		"external_vendor_status": status,
	})
}

func (s *service) apply(ctx context.Context, orderID uuid.UUID, actor auth.Actor, queue enums.QueueName, enabled bool, value *string, updates map[string]any) (*orders.OrderView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := repo.UpdateOrderVersioned(ctx, order.ID, order.Version, updates); err != nil {
			return mapVersionedErr(err)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderQueueToggled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         orders.ActorRef(actor),
			Data: QueueToggledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Queue:       queue,
				Enabled:     enabled,
				Value:       value,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	view := orders.BuildOrderView(order)
	return &view, nil
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
