package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

// PostPaymentInput carries one deposit posting. Amount is in dollars and is
// converted to cents before it touches storage.
type PostPaymentInput struct {
	Amount decimal.Decimal
	Method *enums.PaymentMethod
	Note   *string
}

// Service is the payment ledger: immutable postings against an order's
// invoice, with the priority classification always derived on read.
type Service interface {
	PostPayment(ctx context.Context, orderID uuid.UUID, input PostPaymentInput, actor auth.Actor) (*orders.OrderView, error)
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]orders.PaymentView, error)
}

type service struct {
	repo   orders.Repository
	tx     txRunner
	outbox outboxPublisher
}

// PaymentPostedEvent is emitted for every ledger posting.
type PaymentPostedEvent struct {
	OrderID      uuid.UUID            `json:"order_id"`
	OrderNumber  string               `json:"order_number"`
	PaymentID    uuid.UUID            `json:"payment_id"`
	AmountCents  int64                `json:"amount_cents"`
	Method       *enums.PaymentMethod `json:"method,omitempty"`
	DepositCents int64                `json:"deposit_cents"`
}

// NewService builds the payments service with the required dependencies.
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

var centsFactor = decimal.NewFromInt(100)

func (s *service) PostPayment(ctx context.Context, orderID uuid.UUID, input PostPaymentInput, actor auth.Actor) (*orders.OrderView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if input.Method != nil && !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	amountCents := input.Amount.Mul(centsFactor).Round(0).IntPart()
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be at least one cent")
	}

	var note *string
	if input.Note != nil {
		trimmed := strings.TrimSpace(*input.Note)
		if trimmed != "" {
			note = &trimmed
		}
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

		event := &models.PaymentEvent{
			OrderID:     order.ID,
			AmountCents: amountCents,
			Method:      input.Method,
			Note:        note,
			PostedBy:    actor.UserID,
		}
		if _, err := repo.CreatePayment(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}

		newDeposit := order.DepositCents + amountCents
		if err := repo.UpdateOrderVersioned(ctx, order.ID, order.Version, map[string]any{
			"deposit_cents": newDeposit,
		}); err != nil {
			return mapVersionedErr(err)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentPosted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         orders.ActorRef(actor),
			Data: PaymentPostedEvent{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				PaymentID:    event.ID,
				AmountCents:  amountCents,
				Method:       input.Method,
				DepositCents: newDeposit,
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

func (s *service) ListPayments(ctx context.Context, orderID uuid.UUID) ([]orders.PaymentView, error) {
	if _, err := s.repo.FindOrder(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	events, err := s.repo.ListPayments(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return orders.BuildPaymentViews(events), nil
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
