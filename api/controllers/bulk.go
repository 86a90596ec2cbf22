package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/api/middleware"
	"github.com/wheelworks/shopfloor-backend/api/responses"
	"github.com/wheelworks/shopfloor-backend/api/validators"
	"github.com/wheelworks/shopfloor-backend/internal/bulk"
	internalorders "github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/logger"
)

type bulkEditPayload struct {
	OrderNumber       *string    `json:"order_number,omitempty"`
	Customer          *string    `json:"customer,omitempty"`
	ProductType       *string    `json:"product_type,omitempty"`
	Quantity          *int       `json:"quantity,omitempty" validate:"omitempty,min=1"`
	RimSize           *string    `json:"rim_size,omitempty"`
	PaymentTotalCents *int64     `json:"payment_total_cents,omitempty" validate:"omitempty,min=0"`
	OrderDate         *time.Time `json:"order_date,omitempty"`
}

type bulkRequest struct {
	OrderIDs         []uuid.UUID      `json:"order_ids" validate:"required,min=1"`
	Operation        string           `json:"operation" validate:"required"`
	TargetDepartment *string          `json:"target_department,omitempty"`
	CutStatus        *string          `json:"cut_status,omitempty"`
	Edit             *bulkEditPayload `json:"edit,omitempty"`
}

// BulkApply fans one operation out over many orders and reports per-item
// outcomes; a failed item never aborts the batch.
func BulkApply(coordinator *bulk.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req bulkRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := bulk.Input{
			OrderIDs:  req.OrderIDs,
			Operation: enums.BulkOperation(req.Operation),
		}
		if req.TargetDepartment != nil {
			dept := enums.Department(*req.TargetDepartment)
			input.Payload.TargetDepartment = &dept
		}
		if req.CutStatus != nil {
			status := enums.CutStatus(*req.CutStatus)
			input.Payload.CutStatus = &status
		}
		if req.Edit != nil {
			edit := internalorders.UpdateOrderInput{
				OrderNumber:       req.Edit.OrderNumber,
				Customer:          req.Edit.Customer,
				Quantity:          req.Edit.Quantity,
				RimSize:           req.Edit.RimSize,
				PaymentTotalCents: req.Edit.PaymentTotalCents,
				OrderDate:         req.Edit.OrderDate,
			}
			if req.Edit.ProductType != nil {
				pt := enums.ProductType(*req.Edit.ProductType)
				edit.ProductType = &pt
			}
			input.Payload.Edit = &edit
		}

		result, err := coordinator.Apply(r.Context(), input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
