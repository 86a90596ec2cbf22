package queues

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/pkg/auth"
	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/outbox"
	"github.com/wheelworks/shopfloor-backend/pkg/pagination"
)

// stubQueuesRepo applies the queue flag update keys so toggles observe each
// other across calls.
type stubQueuesRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubQueuesRepo() *stubQueuesRepo {
	return &stubQueuesRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubQueuesRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubQueuesRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubQueuesRepo) UpdateOrderVersioned(ctx context.Context, orderID uuid.UUID, expectedVersion int64, updates map[string]any) error {
	order, ok := s.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if order.Version != expectedVersion {
		return orders.ErrVersionMismatch
	}
	for key, value := range updates {
		switch key {
		case "on_hold":
			order.OnHold = value.(bool)
		case "hold_reason":
			order.HoldReason = optString(value)
		case "hold_at":
			order.HoldAt = optTime(value)
		case "is_rush":
			order.IsRush = value.(bool)
		case "rush_reason":
			order.RushReason = optString(value)
		case "rush_at":
			order.RushAt = optTime(value)
		case "is_redo":
			order.IsRedo = value.(bool)
		case "redo_reason":
			order.RedoReason = optString(value)
		case "redo_at":
			order.RedoAt = optTime(value)
		case "is_refinish":
			order.IsRefinish = value.(bool)
		case "refinish_fix_notes":
			order.RefinishFixNotes = optString(value)
		case "external_vendor_status":
			order.ExternalVendorStatus = value.(enums.ExternalVendorStatus)
		}
	}
	order.Version = expectedVersion + 1
	return nil
}

func optString(value any) *string {
	if value == nil {
		return nil
	}
	v := value.(string)
	return &v
}

func optTime(value any) *time.Time {
	if value == nil {
		return nil
	}
	v := value.(time.Time)
	return &v
}

func (s *stubQueuesRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) ListOrders(ctx context.Context, params pagination.Params, filters orders.ListFilters) ([]models.Order, string, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

func (s *stubQueuesRepo) MaxPosition(ctx context.Context, department enums.Department) (int, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) FindNeighbor(ctx context.Context, department enums.Department, position int, direction enums.ReorderDirection) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) SetPosition(ctx context.Context, orderID uuid.UUID, position int) error {
	panic("not implemented")
}

func (s *stubQueuesRepo) CreateHistory(ctx context.Context, entry *models.DepartmentHistory) error {
	panic("not implemented")
}

func (s *stubQueuesRepo) CloseOpenHistory(ctx context.Context, orderID uuid.UUID, completedAt time.Time) error {
	panic("not implemented")
}

func (s *stubQueuesRepo) FindOpenHistory(ctx context.Context, orderID uuid.UUID) (*models.DepartmentHistory, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.DepartmentHistory, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) CreateNote(ctx context.Context, note *models.OrderNote) (*models.OrderNote, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) FindNote(ctx context.Context, noteID uuid.UUID) (*models.OrderNote, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) UpdateNote(ctx context.Context, noteID uuid.UUID, text string, editedAt time.Time) error {
	panic("not implemented")
}

func (s *stubQueuesRepo) DeleteNote(ctx context.Context, noteID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubQueuesRepo) ListNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) CreateAttachment(ctx context.Context, attachment *models.OrderAttachment) (*models.OrderAttachment, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) FindAttachment(ctx context.Context, attachmentID uuid.UUID) (*models.OrderAttachment, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubQueuesRepo) ListAttachments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAttachment, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) CreatePayment(ctx context.Context, event *models.PaymentEvent) (*models.PaymentEvent, error) {
	panic("not implemented")
}

func (s *stubQueuesRepo) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error) {
	panic("not implemented")
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func seedOrder(repo *stubQueuesRepo) *models.Order {
	order := &models.Order{
		ID:                   uuid.New(),
		OrderNumber:          "WO-Q1",
		Customer:             "Crossroads Customs",
		ProductType:          enums.ProductTypeRim,
		CurrentDepartment:    enums.DepartmentPaint,
		Position:             2,
		ExternalVendorStatus: enums.ExternalVendorNotSent,
		Version:              1,
	}
	repo.orders[order.ID] = order
	return order
}

func adminActor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), DisplayName: "Morgan", Role: enums.RoleAdmin}
}

func staffActor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), DisplayName: "Riley", Role: enums.RoleStaff}
}

func TestHoldRequiresReason(t *testing.T) {
	repo := newStubQueuesRepo()
	svc, err := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	order := seedOrder(repo)
	_, err = svc.AddHold(context.Background(), order.ID, "   ", staffActor())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	view, err := svc.AddHold(context.Background(), order.ID, "waiting on customer approval", staffActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !view.OnHold || view.HoldReason == nil || view.HoldAt == nil {
		t.Fatalf("expected hold flag with reason and timestamp, got %+v", view)
	}
	if view.CurrentDepartment != enums.DepartmentPaint || view.Position != 2 {
		t.Fatal("hold must not touch department placement")
	}

	view, err = svc.RemoveHold(context.Background(), order.ID, staffActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if view.OnHold || view.HoldReason != nil || view.HoldAt != nil {
		t.Fatalf("expected hold cleared, got %+v", view)
	}
}

func TestRushIsAdminOnly(t *testing.T) {
	repo := newStubQueuesRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order := seedOrder(repo)
	_, err := svc.SetRush(context.Background(), order.ID, nil, staffActor())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for staff, got %v", err)
	}
	_, err = svc.ClearRush(context.Background(), order.ID, staffActor())
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for staff clear, got %v", err)
	}

	// rush reason is optional
	view, err := svc.SetRush(context.Background(), order.ID, nil, adminActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !view.IsRush || view.RushAt == nil {
		t.Fatalf("expected rush flag set, got %+v", view)
	}
}

func TestRefinishRequiresFixNotes(t *testing.T) {
	repo := newStubQueuesRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order := seedOrder(repo)
	_, err := svc.AddRefinish(context.Background(), order.ID, "", staffActor())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	view, err := svc.AddRefinish(context.Background(), order.ID, "orange peel on the lip", staffActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !view.IsRefinish || view.RefinishFixNotes == nil {
		t.Fatalf("expected refinish with fix notes, got %+v", view)
	}
}

func TestQueueFlagsAreIndependent(t *testing.T) {
	repo := newStubQueuesRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order := seedOrder(repo)
	if _, err := svc.AddHold(context.Background(), order.ID, "blocked", staffActor()); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if _, err := svc.SetRush(context.Background(), order.ID, nil, adminActor()); err != nil {
		t.Fatalf("rush: %v", err)
	}
	if _, err := svc.SetRedo(context.Background(), order.ID, nil, staffActor()); err != nil {
		t.Fatalf("redo: %v", err)
	}
	view, err := svc.AddRefinish(context.Background(), order.ID, "rework lip", staffActor())
	if err != nil {
		t.Fatalf("refinish: %v", err)
	}
	if !view.OnHold || !view.IsRush || !view.IsRedo || !view.IsRefinish {
		t.Fatalf("expected all four flags, got %+v", view)
	}

	// clearing one leaves the other three alone
	view, err = svc.ClearRedo(context.Background(), order.ID, staffActor())
	if err != nil {
		t.Fatalf("clear redo: %v", err)
	}
	if view.IsRedo {
		t.Fatal("expected redo cleared")
	}
	if !view.OnHold || !view.IsRush || !view.IsRefinish {
		t.Fatalf("expected remaining flags untouched, got %+v", view)
	}
}

func TestExternalStatusAnyTransition(t *testing.T) {
	repo := newStubQueuesRepo()
	publisher := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, publisher)

	order := seedOrder(repo)
	// externally driven, so any order of statuses is accepted
	sequence := []enums.ExternalVendorStatus{
		enums.ExternalVendorAtVendor,
		enums.ExternalVendorShippedToVendor,
		enums.ExternalVendorReturned,
		enums.ExternalVendorWaitingShipping,
		enums.ExternalVendorNotSent,
	}
	var view *orders.OrderView
	var err error
	for _, status := range sequence {
		view, err = svc.SetExternalStatus(context.Background(), order.ID, status, staffActor())
		if err != nil {
			t.Fatalf("set %s: %v", status, err)
		}
	}
	if view.ExternalVendorStatus != enums.ExternalVendorNotSent {
		t.Fatalf("expected not_sent after full cycle, got %s", view.ExternalVendorStatus)
	}

	_, err = svc.SetExternalStatus(context.Background(), order.ID, "lost_in_transit", staffActor())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	last := publisher.events[len(publisher.events)-1]
	data, ok := last.Data.(QueueToggledEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", last.Data)
	}
	if data.Queue != enums.QueueExternalVendor || data.Enabled {
		t.Fatalf("not_sent must report the queue disabled, got %+v", data)
	}
}

func TestToggleDispatch(t *testing.T) {
	repo := newStubQueuesRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order := seedOrder(repo)
	reason := "customer callback"
	view, err := svc.Toggle(context.Background(), order.ID, enums.QueueHold, TogglePayload{Enable: true, Reason: &reason}, staffActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !view.OnHold {
		t.Fatal("expected hold enabled via toggle")
	}

	_, err = svc.Toggle(context.Background(), order.ID, enums.QueueExternalVendor, TogglePayload{}, staffActor())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected vendor status required, got %v", err)
	}

	_, err = svc.Toggle(context.Background(), order.ID, "priority", TogglePayload{}, staffActor())
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected invalid queue name, got %v", err)
	}
}
