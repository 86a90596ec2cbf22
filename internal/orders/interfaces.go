package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	"github.com/wheelworks/shopfloor-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate and its
// owned rows (history, notes, attachments, payment events).
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error)
	UpdateOrderVersioned(ctx context.Context, orderID uuid.UUID, expectedVersion int64, updates map[string]any) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	MaxPosition(ctx context.Context, department enums.Department) (int, error)
	FindNeighbor(ctx context.Context, department enums.Department, position int, direction enums.ReorderDirection) (*models.Order, error)
	SetPosition(ctx context.Context, orderID uuid.UUID, position int) error

	CreateHistory(ctx context.Context, entry *models.DepartmentHistory) error
	CloseOpenHistory(ctx context.Context, orderID uuid.UUID, completedAt time.Time) error
	FindOpenHistory(ctx context.Context, orderID uuid.UUID) (*models.DepartmentHistory, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.DepartmentHistory, error)

	CreateNote(ctx context.Context, note *models.OrderNote) (*models.OrderNote, error)
	FindNote(ctx context.Context, noteID uuid.UUID) (*models.OrderNote, error)
	UpdateNote(ctx context.Context, noteID uuid.UUID, text string, editedAt time.Time) error
	DeleteNote(ctx context.Context, noteID uuid.UUID) error
	ListNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error)

	CreateAttachment(ctx context.Context, attachment *models.OrderAttachment) (*models.OrderAttachment, error)
	FindAttachment(ctx context.Context, attachmentID uuid.UUID) (*models.OrderAttachment, error)
	DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error
	ListAttachments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAttachment, error)

	CreatePayment(ctx context.Context, event *models.PaymentEvent) (*models.PaymentEvent, error)
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error)
}
