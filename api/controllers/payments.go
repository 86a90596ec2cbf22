package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/wheelworks/shopfloor-backend/api/middleware"
	"github.com/wheelworks/shopfloor-backend/api/responses"
	"github.com/wheelworks/shopfloor-backend/api/validators"
	"github.com/wheelworks/shopfloor-backend/internal/payments"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/logger"
)

type postPaymentRequest struct {
	// Amount is in dollars; the service converts to cents.
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Method *string         `json:"method,omitempty"`
	Note   *string         `json:"note,omitempty"`
}

// PostPayment appends one immutable ledger posting to an order.
func PostPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req postPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := payments.PostPaymentInput{
			Amount: req.Amount,
			Note:   req.Note,
		}
		if req.Method != nil {
			method := enums.PaymentMethod(*req.Method)
			input.Method = &method
		}

		view, err := svc.PostPayment(r.Context(), orderID, input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// ListPayments returns the order's ledger oldest first.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.ListPayments(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}
