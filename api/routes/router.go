package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wheelworks/shopfloor-backend/api/controllers"
	"github.com/wheelworks/shopfloor-backend/api/middleware"
	"github.com/wheelworks/shopfloor-backend/internal/bulk"
	"github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/internal/payments"
	"github.com/wheelworks/shopfloor-backend/internal/pipeline"
	"github.com/wheelworks/shopfloor-backend/internal/queues"
	"github.com/wheelworks/shopfloor-backend/internal/views"
	"github.com/wheelworks/shopfloor-backend/pkg/config"
	"github.com/wheelworks/shopfloor-backend/pkg/db"
	"github.com/wheelworks/shopfloor-backend/pkg/logger"
	"github.com/wheelworks/shopfloor-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    db.Pinger
	Redis *redis.Client

	Orders   orders.Service
	Pipeline pipeline.Service
	Queues   queues.Service
	Payments payments.Service
	Views    views.Service
	Bulk     *bulk.Coordinator
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		// Interface wiring stays conditional so a nil *redis.Client never
		// reaches the middlewares as a non-nil interface.
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			if deps.Redis != nil {
				r.With(middleware.RateLimit(middleware.BulkRateLimitPolicy(), deps.Redis, logg)).
					Post("/bulk", controllers.BulkApply(deps.Bulk, logg))
			} else {
				r.Post("/bulk", controllers.BulkApply(deps.Bulk, logg))
			}

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(deps.Orders, logg))
				r.Get("/history", controllers.OrderHistory(deps.Orders, logg))
				r.With(middleware.RequireAdmin(logg)).Patch("/", controllers.UpdateOrder(deps.Orders, logg))
				r.With(middleware.RequireAdmin(logg)).Delete("/", controllers.DeleteOrder(deps.Orders, logg))

				r.Post("/advance", controllers.AdvanceOrder(deps.Pipeline, logg))
				r.Post("/move", controllers.MoveOrder(deps.Pipeline, logg))
				r.Post("/reorder", controllers.ReorderOrder(deps.Pipeline, logg))
				r.Post("/cut-status", controllers.SetCutStatus(deps.Pipeline, logg))

				r.Post("/queues/{queue}", controllers.ToggleQueue(deps.Queues, logg))

				r.Route("/notes", func(r chi.Router) {
					r.Get("/", controllers.ListNotes(deps.Orders, logg))
					r.Post("/", controllers.AddNote(deps.Orders, logg))
					r.Patch("/{noteId}", controllers.EditNote(deps.Orders, logg))
					r.Delete("/{noteId}", controllers.DeleteNote(deps.Orders, logg))
				})

				r.Route("/attachments", func(r chi.Router) {
					r.Get("/", controllers.ListAttachments(deps.Orders, logg))
					r.Post("/", controllers.AddAttachment(deps.Orders, logg))
					r.Delete("/{attachmentId}", controllers.DeleteAttachment(deps.Orders, logg))
				})

				r.Route("/payments", func(r chi.Router) {
					r.Get("/", controllers.ListPayments(deps.Payments, logg))
					r.Post("/", controllers.PostPayment(deps.Payments, logg))
				})
			})
		})

		r.Route("/views", func(r chi.Router) {
			r.Get("/departments/{department}", controllers.DepartmentView(deps.Views, logg))
			r.Get("/cut", controllers.CutOrdersView(deps.Views, logg))
			r.Get("/queues/{queue}", controllers.QueueView(deps.Views, logg))
			r.Get("/sizes", controllers.SizeGroupsView(deps.Views, logg))
			r.Get("/customers", controllers.CustomerSummaryView(deps.Views, logg))
			r.Get("/badges", controllers.BadgeCountsView(deps.Views, logg))
		})
	})

	return r
}
