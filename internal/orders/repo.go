package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	"github.com/wheelworks/shopfloor-backend/pkg/pagination"
)

// ErrVersionMismatch signals that a versioned update lost the write race.
var ErrVersionMismatch = errors.New("order version mismatch")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("started_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})

	if filters.Department != nil {
		query = query.Where("current_department = ?", *filters.Department)
	} else if !filters.IncludeCompleted {
		query = query.Where("current_department <> ?", enums.DepartmentCompleted)
	}
	if filters.ProductType != nil {
		query = query.Where("product_type = ?", *filters.ProductType)
	}
	if filters.Customer != "" {
		query = query.Where("customer = ?", filters.Customer)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > limit {
		last := rows[limit-1]
		rows = rows[:limit]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}

func (r *repository) UpdateOrderVersioned(ctx context.Context, orderID uuid.UUID, expectedVersion int64, updates map[string]any) error {
	payload := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		payload[k] = v
	}
	payload["version"] = expectedVersion + 1

	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, expectedVersion).
		Updates(payload)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ?", orderID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrVersionMismatch
	}
	return nil
}

// DeleteOrder removes the order and its owned rows. SQLite test databases do
// not enforce the FK cascades, so owned tables are cleared explicitly.
func (r *repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.DepartmentHistory{}).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", id).Delete(&models.OrderNote{}).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", id).Delete(&models.OrderAttachment{}).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", id).Delete(&models.PaymentEvent{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.Order{}).Error
}

func (r *repository) MaxPosition(ctx context.Context, department enums.Department) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("current_department = ?", department).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// FindNeighbor returns the adjacent order in the same department list, or
// nil at the boundary.
func (r *repository) FindNeighbor(ctx context.Context, department enums.Department, position int, direction enums.ReorderDirection) (*models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("current_department = ?", department)

	if direction == enums.ReorderUp {
		query = query.Where("position < ?", position).Order("position DESC")
	} else {
		query = query.Where("position > ?", position).Order("position ASC")
	}

	var neighbor models.Order
	err := query.First(&neighbor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &neighbor, nil
}

func (r *repository) SetPosition(ctx context.Context, orderID uuid.UUID, position int) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("position", position).Error
}

func (r *repository) CreateHistory(ctx context.Context, entry *models.DepartmentHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CloseOpenHistory(ctx context.Context, orderID uuid.UUID, completedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.DepartmentHistory{}).
		Where("order_id = ? AND completed_at IS NULL", orderID).
		Update("completed_at", completedAt).Error
}

func (r *repository) FindOpenHistory(ctx context.Context, orderID uuid.UUID) (*models.DepartmentHistory, error) {
	var entry models.DepartmentHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND completed_at IS NULL", orderID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.DepartmentHistory, error) {
	var entries []models.DepartmentHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("started_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) CreateNote(ctx context.Context, note *models.OrderNote) (*models.OrderNote, error) {
	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}

func (r *repository) FindNote(ctx context.Context, noteID uuid.UUID) (*models.OrderNote, error) {
	var note models.OrderNote
	err := r.db.WithContext(ctx).
		Where("id = ?", noteID).
		First(&note).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *repository) UpdateNote(ctx context.Context, noteID uuid.UUID, text string, editedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.OrderNote{}).
		Where("id = ?", noteID).
		Updates(map[string]any{
			"text":      text,
			"edited_at": editedAt,
		}).Error
}

func (r *repository) DeleteNote(ctx context.Context, noteID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", noteID).Delete(&models.OrderNote{}).Error
}

func (r *repository) ListNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&notes).Error
	return notes, err
}

func (r *repository) CreateAttachment(ctx context.Context, attachment *models.OrderAttachment) (*models.OrderAttachment, error) {
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return nil, err
	}
	return attachment, nil
}

func (r *repository) FindAttachment(ctx context.Context, attachmentID uuid.UUID) (*models.OrderAttachment, error) {
	var attachment models.OrderAttachment
	err := r.db.WithContext(ctx).
		Where("id = ?", attachmentID).
		First(&attachment).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *repository) DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", attachmentID).Delete(&models.OrderAttachment{}).Error
}

func (r *repository) ListAttachments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAttachment, error) {
	var attachments []models.OrderAttachment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&attachments).Error
	return attachments, err
}

func (r *repository) CreatePayment(ctx context.Context, event *models.PaymentEvent) (*models.PaymentEvent, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *repository) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
