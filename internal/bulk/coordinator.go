package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/pkg/auth"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/logger"
	"github.com/wheelworks/shopfloor-backend/pkg/metrics"
)

// pipelineOps is the slice of the pipeline service the coordinator fans out to.
type pipelineOps interface {
	MoveTo(ctx context.Context, orderID uuid.UUID, target enums.Department, actor auth.Actor) (*orders.OrderView, error)
	SetCutStatus(ctx context.Context, orderID uuid.UUID, status enums.CutStatus, actor auth.Actor) (*orders.OrderView, error)
}

// orderOps is the slice of the orders service the coordinator fans out to.
type orderOps interface {
	Update(ctx context.Context, orderID uuid.UUID, input orders.UpdateOrderInput, actor auth.Actor) (*orders.OrderView, error)
	Delete(ctx context.Context, orderID uuid.UUID, actor auth.Actor) error
}

// Payload carries the operation-specific inputs of a bulk request.
type Payload struct {
	TargetDepartment *enums.Department
	CutStatus        *enums.CutStatus
	Edit             *orders.UpdateOrderInput
}

// Input is one bulk request over an order-id set.
type Input struct {
	OrderIDs  []uuid.UUID
	Operation enums.BulkOperation
	Payload   Payload
	// OnItem, when set, observes each completed item before the batch
	// finishes so callers can report partial progress.
	OnItem func(orderID uuid.UUID, err error)
}

// ItemFailure reports one order that could not be processed.
type ItemFailure struct {
	OrderID uuid.UUID `json:"id"`
	Reason  string    `json:"reason"`
}

// Result reports per-item outcomes; a failure never aborts the batch.
type Result struct {
	Succeeded []uuid.UUID   `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

// Coordinator fans a single operation out over many orders with bounded
// concurrency. Items are independent single-order mutations, never one
// cross-order transaction.
type Coordinator struct {
	pipeline pipelineOps
	orders   orderOps
	workers  int
	metrics  *metrics.BulkOperationMetrics
	logg     *logger.Logger
}

// NewCoordinator builds the bulk coordinator with the required dependencies.
func NewCoordinator(pipeline pipelineOps, orderSvc orderOps, workers int, m *metrics.BulkOperationMetrics, logg *logger.Logger) (*Coordinator, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline service required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if workers <= 0 {
		workers = 1
	}
	return &Coordinator{
		pipeline: pipeline,
		orders:   orderSvc,
		workers:  workers,
		metrics:  m,
		logg:     logg,
	}, nil
}

// Apply processes each order independently and reports both successes and
// failures. Validation of the operation shape happens once, up front; item
// errors are collected, never propagated.
func (c *Coordinator) Apply(ctx context.Context, input Input, actor auth.Actor) (*Result, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.OrderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ids required")
	}
	if !input.Operation.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid bulk operation")
	}
	switch input.Operation {
	case enums.BulkOperationMove:
		if input.Payload.TargetDepartment == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "target department required for move")
		}
	case enums.BulkOperationSetCutStatus:
		if input.Payload.CutStatus == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cut status required")
		}
	case enums.BulkOperationEdit:
		if input.Payload.Edit == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "edit payload required")
		}
	}

	start := time.Now()
	itemErrs := make([]error, len(input.OrderIDs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := c.workers
	if workers > len(input.OrderIDs) {
		workers = len(input.OrderIDs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				orderID := input.OrderIDs[idx]
				err := c.applyOne(ctx, orderID, input, actor)
				itemErrs[idx] = err
				if input.OnItem != nil {
					input.OnItem(orderID, err)
				}
			}
		}()
	}
	for idx := range input.OrderIDs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	result := &Result{
		Succeeded: []uuid.UUID{},
		Failed:    []ItemFailure{},
	}
	for idx, err := range itemErrs {
		if err == nil {
			result.Succeeded = append(result.Succeeded, input.OrderIDs[idx])
			continue
		}
		result.Failed = append(result.Failed, ItemFailure{
			OrderID: input.OrderIDs[idx],
			Reason:  failureReason(err),
		})
	}

	op := input.Operation.String()
	c.metrics.ObserveDuration(op, time.Since(start))
	c.metrics.AddItems(op, "succeeded", len(result.Succeeded))
	c.metrics.AddItems(op, "failed", len(result.Failed))

	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"operation": op,
			"total":     len(input.OrderIDs),
			"succeeded": len(result.Succeeded),
			"failed":    len(result.Failed),
		})
		c.logg.Info(logCtx, "bulk operation finished")
	}

	return result, nil
}

func (c *Coordinator) applyOne(ctx context.Context, orderID uuid.UUID, input Input, actor auth.Actor) error {
	switch input.Operation {
	case enums.BulkOperationMove:
		_, err := c.pipeline.MoveTo(ctx, orderID, *input.Payload.TargetDepartment, actor)
		return err
	case enums.BulkOperationSetCutStatus:
		_, err := c.pipeline.SetCutStatus(ctx, orderID, *input.Payload.CutStatus, actor)
		return err
	case enums.BulkOperationEdit:
		_, err := c.orders.Update(ctx, orderID, *input.Payload.Edit, actor)
		return err
	case enums.BulkOperationDelete:
		return c.orders.Delete(ctx, orderID, actor)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid bulk operation")
	}
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
