package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wheelworks/shopfloor-backend/pkg/auth"
	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/outbox"
	"github.com/wheelworks/shopfloor-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order CRUD plus note and attachment operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput, actor auth.Actor) (*OrderView, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderView, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	Update(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput, actor auth.Actor) (*OrderView, error)
	Delete(ctx context.Context, orderID uuid.UUID, actor auth.Actor) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]HistoryEntry, error)

	AddNote(ctx context.Context, orderID uuid.UUID, input NoteInput, actor auth.Actor) (*NoteView, error)
	EditNote(ctx context.Context, orderID, noteID uuid.UUID, input NoteInput, actor auth.Actor) (*NoteView, error)
	DeleteNote(ctx context.Context, orderID, noteID uuid.UUID, actor auth.Actor) error
	ListNotes(ctx context.Context, orderID uuid.UUID) ([]NoteView, error)

	AddAttachment(ctx context.Context, orderID uuid.UUID, input AttachmentInput, actor auth.Actor) (*AttachmentView, error)
	ListAttachments(ctx context.Context, orderID uuid.UUID) ([]AttachmentView, error)
	DeleteAttachment(ctx context.Context, orderID, attachmentID uuid.UUID, actor auth.Actor) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// OrderCreatedEvent is emitted when an order is opened.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	Customer      string            `json:"customer"`
	ProductType   enums.ProductType `json:"product_type"`
	Department    enums.Department  `json:"department"`
	LinkedOrderID *uuid.UUID        `json:"linked_order_id,omitempty"`
}

// OrderUpdatedEvent is emitted on a privileged field edit.
type OrderUpdatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Fields      []string  `json:"fields"`
}

// OrderDeletedEvent is emitted when an order is removed.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// OrderNoteAddedEvent is emitted when a note lands on an order.
type OrderNoteAddedEvent struct {
	OrderID    uuid.UUID        `json:"order_id"`
	NoteID     uuid.UUID        `json:"note_id"`
	Department enums.Department `json:"department"`
}

// NewService builds the orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher) (Service, error) {
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

// ActorRef converts the authenticated actor into the outbox reference.
func ActorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:      actor.UserID,
		DisplayName: actor.DisplayName,
		Role:        actor.Role.String(),
	}
}

func (s *service) Create(ctx context.Context, input CreateOrderInput, actor auth.Actor) (*OrderView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orderNumber := strings.ToUpper(strings.TrimSpace(input.OrderNumber))
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if strings.TrimSpace(input.Customer) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	if !input.ProductType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product type")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.PaymentTotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment total must not be negative")
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	cutStatus := enums.CutStatusNone
	if input.ProductType.IsCuttable() {
		cutStatus = enums.CutStatusWaiting
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := ensureOrderNumberFree(ctx, repo, orderNumber); err != nil {
			return err
		}

		department := enums.DepartmentReceived
		if input.LinkedOrderID != nil {
			parent, err := repo.FindOrder(ctx, *input.LinkedOrderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "linked order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load linked order")
			}
			// Spawned orders start where their parent currently sits; a
			// completed parent still intakes the child at received.
			if !parent.CurrentDepartment.IsTerminal() {
				department = parent.CurrentDepartment
			}
		}

		maxPos, err := repo.MaxPosition(ctx, department)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve department position")
		}

		now := time.Now()
		order := &models.Order{
			OrderNumber:       orderNumber,
			Customer:          strings.TrimSpace(input.Customer),
			ProductType:       input.ProductType,
			Quantity:          input.Quantity,
			RimSize:           input.RimSize,
			CurrentDepartment: department,
			Position:          maxPos + 1,
			CutStatus:         cutStatus,
			PaymentTotalCents: input.PaymentTotalCents,
			OrderDate:         orderDate,
			LinkedOrderID:     input.LinkedOrderID,
			Version:           1,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		entry := &models.DepartmentHistory{
			OrderID:    order.ID,
			Department: department,
			StartedAt:  now,
			MovedBy:    actor.DisplayName,
		}
		if err := repo.CreateHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open department history")
		}

		created = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         ActorRef(actor),
			Data: OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				Customer:      order.Customer,
				ProductType:   order.ProductType,
				Department:    department,
				LinkedOrderID: order.LinkedOrderID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, created.ID)
}

// ensureOrderNumberFree surfaces a taken order number as a conflict instead
// of letting the unique index bounce the insert as a dependency failure.
func ensureOrderNumberFree(ctx context.Context, repo Repository, orderNumber string) error {
	existing, err := repo.FindOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "order number already in use").
		WithDetails(map[string]any{"order_id": existing.ID})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	view := BuildOrderView(order)
	return &view, nil
}

// ListHistory returns the full department trail for an order, oldest stay
// first. Every order opens a history entry at creation, so an empty trail
// means the order does not exist.
func (s *service) ListHistory(ctx context.Context, orderID uuid.UUID) ([]HistoryEntry, error) {
	entries, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list department history")
	}
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	views := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		views = append(views, HistoryEntry{
			ID:          entry.ID,
			Department:  entry.Department,
			StartedAt:   entry.StartedAt,
			CompletedAt: entry.CompletedAt,
			MovedBy:     entry.MovedBy,
		})
	}
	return views, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	rows, nextCursor, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{NextCursor: nextCursor}
	for i := range rows {
		list.Orders = append(list.Orders, BuildOrderView(&rows[i]))
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput, actor auth.Actor) (*OrderView, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order edits require the admin role")
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

		updates := map[string]any{}
		fields := []string{}

		if input.OrderNumber != nil {
			number := strings.ToUpper(strings.TrimSpace(*input.OrderNumber))
			if number == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "order number required")
			}
			if number != order.OrderNumber {
				if err := ensureOrderNumberFree(ctx, repo, number); err != nil {
					return err
				}
			}
			updates["order_number"] = number
			fields = append(fields, "order_number")
		}
		if input.Customer != nil {
			customer := strings.TrimSpace(*input.Customer)
			if customer == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "customer required")
			}
			updates["customer"] = customer
			fields = append(fields, "customer")
		}
		if input.ProductType != nil {
			if !input.ProductType.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid product type")
			}
			updates["product_type"] = *input.ProductType
			fields = append(fields, "product_type")
			// Keep cut status consistent with the new type.
			if !input.ProductType.IsCuttable() {
				updates["cut_status"] = enums.CutStatusNone
			} else if order.CutStatus == enums.CutStatusNone {
				updates["cut_status"] = enums.CutStatusWaiting
			}
		}
		if input.Quantity != nil {
			if *input.Quantity <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
			}
			updates["quantity"] = *input.Quantity
			fields = append(fields, "quantity")
		}
		if input.RimSize != nil {
			updates["rim_size"] = *input.RimSize
			fields = append(fields, "rim_size")
		}
		if input.PaymentTotalCents != nil {
			if *input.PaymentTotalCents < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "payment total must not be negative")
			}
			updates["payment_total_cents"] = *input.PaymentTotalCents
			fields = append(fields, "payment_total_cents")
		}
		if input.OrderDate != nil {
			updates["order_date"] = *input.OrderDate
			fields = append(fields, "order_date")
		}

		if len(updates) == 0 {
			return nil
		}

		if err := repo.UpdateOrderVersioned(ctx, order.ID, order.Version, updates); err != nil {
			return mapVersionedUpdateErr(err)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         ActorRef(actor),
			Data: OrderUpdatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Fields:      fields,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) Delete(ctx context.Context, orderID uuid.UUID, actor auth.Actor) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order deletion requires the admin role")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         ActorRef(actor),
			Data: OrderDeletedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
			},
		}); err != nil {
			return err
		}

		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}

func (s *service) AddNote(ctx context.Context, orderID uuid.UUID, input NoteInput, actor auth.Actor) (*NoteView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note text required")
	}

	var created *models.OrderNote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		note := &models.OrderNote{
			OrderID:    order.ID,
			AuthorID:   actor.UserID,
			AuthorName: actor.DisplayName,
			Text:       text,
			Department: order.CurrentDepartment,
		}
		if _, err := repo.CreateNote(ctx, note); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create note")
		}
		created = note

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderNoteAdded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         ActorRef(actor),
			Data: OrderNoteAddedEvent{
				OrderID:    order.ID,
				NoteID:     note.ID,
				Department: note.Department,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	view := BuildNoteViews([]models.OrderNote{*created})[0]
	return &view, nil
}

func (s *service) EditNote(ctx context.Context, orderID, noteID uuid.UUID, input NoteInput, actor auth.Actor) (*NoteView, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note text required")
	}

	note, err := s.loadOwnNote(ctx, orderID, noteID, actor)
	if err != nil {
		return nil, err
	}

	editedAt := time.Now()
	if err := s.repo.UpdateNote(ctx, note.ID, text, editedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update note")
	}
	note.Text = text
	note.EditedAt = &editedAt
	view := BuildNoteViews([]models.OrderNote{*note})[0]
	return &view, nil
}

func (s *service) DeleteNote(ctx context.Context, orderID, noteID uuid.UUID, actor auth.Actor) error {
	note, err := s.loadOwnNote(ctx, orderID, noteID, actor)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteNote(ctx, note.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete note")
	}
	return nil
}

// loadOwnNote fetches a note and enforces author-only access; not even
// admins may touch another author's note.
func (s *service) loadOwnNote(ctx context.Context, orderID, noteID uuid.UUID, actor auth.Actor) (*models.OrderNote, error) {
	note, err := s.repo.FindNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "note not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load note")
	}
	if note.OrderID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "note not found")
	}
	if note.AuthorID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author may modify this note")
	}
	return note, nil
}

func (s *service) ListNotes(ctx context.Context, orderID uuid.UUID) ([]NoteView, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	notes, err := s.repo.ListNotes(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notes")
	}
	return BuildNoteViews(notes), nil
}

func (s *service) AddAttachment(ctx context.Context, orderID uuid.UUID, input AttachmentInput, actor auth.Actor) (*AttachmentView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.Filename) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename required")
	}
	if strings.TrimSpace(input.StorageRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage reference required")
	}

	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}

	attachment := &models.OrderAttachment{
		OrderID:     orderID,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		UploadedBy:  actor.UserID,
		StorageRef:  input.StorageRef,
	}
	if _, err := s.repo.CreateAttachment(ctx, attachment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create attachment")
	}

	id := attachment.ID
	uploader := attachment.UploadedBy
	created := attachment.CreatedAt
	return &AttachmentView{
		ID:          &id,
		Filename:    attachment.Filename,
		ContentType: attachment.ContentType,
		StorageRef:  attachment.StorageRef,
		UploadedBy:  &uploader,
		CreatedAt:   &created,
	}, nil
}

func (s *service) ListAttachments(ctx context.Context, orderID uuid.UUID) ([]AttachmentView, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	attachments, err := s.repo.ListAttachments(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attachments")
	}
	return BuildAttachmentViews(order, attachments), nil
}

func (s *service) DeleteAttachment(ctx context.Context, orderID, attachmentID uuid.UUID, actor auth.Actor) error {
	attachment, err := s.repo.FindAttachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attachment")
	}
	if attachment.OrderID != orderID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
	}
	if attachment.UploadedBy != actor.UserID && !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "attachment belongs to another uploader")
	}
	if err := s.repo.DeleteAttachment(ctx, attachment.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete attachment")
	}
	return nil
}

// mapVersionedUpdateErr translates repository CAS failures into the shared
// error taxonomy.
func mapVersionedUpdateErr(err error) error {
	switch {
	case errors.Is(err, ErrVersionMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order changed concurrently")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
}
