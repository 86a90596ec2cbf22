package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/api/middleware"
	"github.com/wheelworks/shopfloor-backend/api/responses"
	"github.com/wheelworks/shopfloor-backend/api/validators"
	internalorders "github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/logger"
	"github.com/wheelworks/shopfloor-backend/pkg/pagination"
)

type createOrderRequest struct {
	OrderNumber       string     `json:"order_number" validate:"required"`
	Customer          string     `json:"customer" validate:"required"`
	ProductType       string     `json:"product_type" validate:"required"`
	Quantity          int        `json:"quantity" validate:"required,min=1"`
	RimSize           *string    `json:"rim_size,omitempty"`
	PaymentTotalCents int64      `json:"payment_total_cents" validate:"min=0"`
	OrderDate         *time.Time `json:"order_date,omitempty"`
	LinkedOrderID     *uuid.UUID `json:"linked_order_id,omitempty"`
}

type updateOrderRequest struct {
	OrderNumber       *string    `json:"order_number,omitempty"`
	Customer          *string    `json:"customer,omitempty"`
	ProductType       *string    `json:"product_type,omitempty"`
	Quantity          *int       `json:"quantity,omitempty" validate:"omitempty,min=1"`
	RimSize           *string    `json:"rim_size,omitempty"`
	PaymentTotalCents *int64     `json:"payment_total_cents,omitempty" validate:"omitempty,min=0"`
	OrderDate         *time.Time `json:"order_date,omitempty"`
}

// CreateOrder opens a new production order at the head of the pipeline.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			OrderNumber:       req.OrderNumber,
			Customer:          req.Customer,
			ProductType:       enums.ProductType(req.ProductType),
			Quantity:          req.Quantity,
			RimSize:           req.RimSize,
			PaymentTotalCents: req.PaymentTotalCents,
			LinkedOrderID:     req.LinkedOrderID,
		}
		if req.OrderDate != nil {
			input.OrderDate = *req.OrderDate
		}

		view, err := svc.Create(r.Context(), input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// GetOrder returns the full order view including department history.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// OrderHistory returns the department trail for one order, oldest stay first.
func OrderHistory(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListHistory(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// ListOrders pages through orders newest first.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UpdateOrder applies a privileged field edit.
func UpdateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.UpdateOrderInput{
			OrderNumber:       req.OrderNumber,
			Customer:          req.Customer,
			Quantity:          req.Quantity,
			RimSize:           req.RimSize,
			PaymentTotalCents: req.PaymentTotalCents,
			OrderDate:         req.OrderDate,
		}
		if req.ProductType != nil {
			pt := enums.ProductType(*req.ProductType)
			input.ProductType = &pt
		}

		view, err := svc.Update(r.Context(), orderID, input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeleteOrder removes an order and everything it owns.
func DeleteOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), orderID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	filters := internalorders.ListFilters{
		Customer: strings.TrimSpace(r.URL.Query().Get("customer")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("department")); raw != "" {
		dept := enums.Department(raw)
		if !dept.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid department filter")
		}
		filters.Department = &dept
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("product_type")); raw != "" {
		pt := enums.ProductType(raw)
		if !pt.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid product type filter")
		}
		filters.ProductType = &pt
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("include_completed")); raw != "" {
		filters.IncludeCompleted = raw == "true" || raw == "1"
	}

	return filters, nil
}
