package views

import (
	"context"

	"gorm.io/gorm"

	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

// Repository is the read-only query surface behind the projection layer.
type Repository interface {
	DepartmentOrders(ctx context.Context, department enums.Department) ([]models.Order, error)
	CutOrders(ctx context.Context) ([]models.Order, error)
	QueueOrders(ctx context.Context, queue enums.QueueName) ([]models.Order, error)
	ActiveOrders(ctx context.Context) ([]models.Order, error)
	CustomerOrders(ctx context.Context, customer string) ([]models.Order, error)
	CountQueue(ctx context.Context, queue enums.QueueName) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a views repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// preFinishingDepartments lists the stages whose views hide cut orders.
func preFinishingDepartments() []enums.Department {
	depts := []enums.Department{}
	for _, d := range enums.PipelineSequence {
		if d.PrecedesFinishing() {
			depts = append(depts, d)
		}
	}
	return depts
}

// DepartmentOrders applies the cut visibility bifurcation: pre-finishing
// views exclude cut orders; the finishing view additionally shows cut orders
// whose stored department still precedes it. current_department is never
// rewritten for this.
func (r *repository) DepartmentOrders(ctx context.Context, department enums.Department) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})

	switch {
	case department.PrecedesFinishing():
		query = query.
			Where("current_department = ?", department).
			Where("cut_status <> ?", enums.CutStatusCut)
	case department == enums.DepartmentFinishing:
		query = query.Where(
			"current_department = ? OR (cut_status = ? AND current_department IN ?)",
			department, enums.CutStatusCut, preFinishingDepartments(),
		)
	default:
		query = query.Where("current_department = ?", department)
	}

	var rows []models.Order
	err := query.
		Order("position ASC").
		Order("order_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CutOrders(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("cut_status = ?", enums.CutStatusCut).
		Where("current_department <> ?", enums.DepartmentCompleted).
		Order("position ASC").
		Order("order_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) QueueOrders(ctx context.Context, queue enums.QueueName) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	query, err := applyQueuePredicate(query, queue)
	if err != nil {
		return nil, err
	}

	var rows []models.Order
	err = query.
		Order("position ASC").
		Order("order_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ActiveOrders(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("current_department <> ?", enums.DepartmentCompleted).
		Order("order_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CustomerOrders(ctx context.Context, customer string) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("customer = ?", customer).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountQueue(ctx context.Context, queue enums.QueueName) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	query, err := applyQueuePredicate(query, queue)
	if err != nil {
		return 0, err
	}
	var count int64
	err = query.Count(&count).Error
	return count, err
}

func applyQueuePredicate(query *gorm.DB, queue enums.QueueName) (*gorm.DB, error) {
	switch queue {
	case enums.QueueHold:
		return query.Where("on_hold = ?", true), nil
	case enums.QueueRush:
		return query.Where("is_rush = ?", true), nil
	case enums.QueueRedo:
		return query.Where("is_redo = ?", true), nil
	case enums.QueueRefinish:
		return query.Where("is_refinish = ?", true), nil
	case enums.QueueExternalVendor:
		return query.Where("external_vendor_status <> ?", enums.ExternalVendorNotSent), nil
	default:
		return nil, gorm.ErrInvalidData
	}
}
