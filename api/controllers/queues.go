package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wheelworks/shopfloor-backend/api/middleware"
	"github.com/wheelworks/shopfloor-backend/api/responses"
	"github.com/wheelworks/shopfloor-backend/api/validators"
	"github.com/wheelworks/shopfloor-backend/internal/queues"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/logger"
)

type toggleQueueRequest struct {
	Enable       bool    `json:"enable"`
	Reason       *string `json:"reason,omitempty"`
	FixNotes     *string `json:"fix_notes,omitempty"`
	VendorStatus *string `json:"vendor_status,omitempty"`
}

// ToggleQueue flips one exception flag on an order. The queue name comes from
// the URL so each queue keeps a stable endpoint.
func ToggleQueue(svc queues.Service, logg *logger.Logger) http.HandlerFunc {
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

		queueName := enums.QueueName(chi.URLParam(r, "queue"))

		var req toggleQueueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := queues.TogglePayload{
			Enable:   req.Enable,
			Reason:   req.Reason,
			FixNotes: req.FixNotes,
		}
		if req.VendorStatus != nil {
			status := enums.ExternalVendorStatus(*req.VendorStatus)
			payload.VendorStatus = &status
		}

		view, err := svc.Toggle(r.Context(), orderID, queueName, payload, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
