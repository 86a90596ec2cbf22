package pipeline

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

// stubPipelineRepo keeps orders and history in memory and applies the update
// keys the pipeline writes, so sequential moves observe each other.
type stubPipelineRepo struct {
	orders  map[uuid.UUID]*models.Order
	history []*models.DepartmentHistory
}

func newStubPipelineRepo() *stubPipelineRepo {
	return &stubPipelineRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubPipelineRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubPipelineRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	copied.History = nil
	for _, entry := range s.history {
		if entry.OrderID == id {
			copied.History = append(copied.History, *entry)
		}
	}
	return &copied, nil
}

func (s *stubPipelineRepo) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) ListOrders(ctx context.Context, params pagination.Params, filters orders.ListFilters) ([]models.Order, string, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) UpdateOrderVersioned(ctx context.Context, orderID uuid.UUID, expectedVersion int64, updates map[string]any) error {
	order, ok := s.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if order.Version != expectedVersion {
		return orders.ErrVersionMismatch
	}
	for key, value := range updates {
		switch key {
		case "current_department":
			if v, ok := value.(enums.Department); ok {
				order.CurrentDepartment = v
			}
		case "position":
			if v, ok := value.(int); ok {
				order.Position = v
			}
		case "cut_status":
			if v, ok := value.(enums.CutStatus); ok {
				order.CutStatus = v
			}
		}
	}
	order.Version = expectedVersion + 1
	return nil
}

func (s *stubPipelineRepo) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

func (s *stubPipelineRepo) MaxPosition(ctx context.Context, department enums.Department) (int, error) {
	max := 0
	for _, order := range s.orders {
		if order.CurrentDepartment == department && order.Position > max {
			max = order.Position
		}
	}
	return max, nil
}

func (s *stubPipelineRepo) FindNeighbor(ctx context.Context, department enums.Department, position int, direction enums.ReorderDirection) (*models.Order, error) {
	var best *models.Order
	for _, order := range s.orders {
		if order.CurrentDepartment != department {
			continue
		}
		if direction == enums.ReorderUp {
			if order.Position < position && (best == nil || order.Position > best.Position) {
				best = order
			}
		} else {
			if order.Position > position && (best == nil || order.Position < best.Position) {
				best = order
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (s *stubPipelineRepo) SetPosition(ctx context.Context, orderID uuid.UUID, position int) error {
	order, ok := s.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Position = position
	return nil
}

func (s *stubPipelineRepo) CreateHistory(ctx context.Context, entry *models.DepartmentHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	copied := *entry
	s.history = append(s.history, &copied)
	return nil
}

func (s *stubPipelineRepo) CloseOpenHistory(ctx context.Context, orderID uuid.UUID, completedAt time.Time) error {
	for _, entry := range s.history {
		if entry.OrderID == orderID && entry.CompletedAt == nil {
			at := completedAt
			entry.CompletedAt = &at
		}
	}
	return nil
}

func (s *stubPipelineRepo) FindOpenHistory(ctx context.Context, orderID uuid.UUID) (*models.DepartmentHistory, error) {
	for _, entry := range s.history {
		if entry.OrderID == orderID && entry.CompletedAt == nil {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPipelineRepo) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.DepartmentHistory, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) CreateNote(ctx context.Context, note *models.OrderNote) (*models.OrderNote, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) FindNote(ctx context.Context, noteID uuid.UUID) (*models.OrderNote, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) UpdateNote(ctx context.Context, noteID uuid.UUID, text string, editedAt time.Time) error {
	panic("not implemented")
}

func (s *stubPipelineRepo) DeleteNote(ctx context.Context, noteID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubPipelineRepo) ListNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) CreateAttachment(ctx context.Context, attachment *models.OrderAttachment) (*models.OrderAttachment, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) FindAttachment(ctx context.Context, attachmentID uuid.UUID) (*models.OrderAttachment, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubPipelineRepo) ListAttachments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAttachment, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) CreatePayment(ctx context.Context, event *models.PaymentEvent) (*models.PaymentEvent, error) {
	panic("not implemented")
}

func (s *stubPipelineRepo) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error) {
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

func seedOrder(repo *stubPipelineRepo, department enums.Department, position int) *models.Order {
	order := &models.Order{
		ID:                uuid.New(),
		OrderNumber:       "WO-" + uuid.NewString()[:8],
		Customer:          "Crossroads Customs",
		ProductType:       enums.ProductTypeRim,
		Quantity:          4,
		CurrentDepartment: department,
		Position:          position,
		CutStatus:         enums.CutStatusNone,
		Version:           1,
	}
	repo.orders[order.ID] = order
	repo.history = append(repo.history, &models.DepartmentHistory{
		ID:         uuid.New(),
		OrderID:    order.ID,
		Department: department,
		StartedAt:  time.Now().Add(-time.Hour),
		MovedBy:    "intake",
	})
	return order
}

func adminActor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), DisplayName: "Morgan", Role: enums.RoleAdmin}
}

func staffActor(departments ...enums.Department) auth.Actor {
	return auth.Actor{UserID: uuid.New(), DisplayName: "Riley", Role: enums.RoleStaff, Departments: departments}
}

func TestAdvanceWalksTheSequence(t *testing.T) {
	repo := newStubPipelineRepo()
	publisher := &stubOutboxPublisher{}
	svc, err := NewService(repo, stubTxRunner{}, publisher)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	order := seedOrder(repo, enums.DepartmentReceived, 1)
	actor := staffActor()

	var view *orders.OrderView
	for i := 0; i < 3; i++ {
		view, err = svc.Advance(context.Background(), order.ID, actor)
		if err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
	}
	if view.CurrentDepartment != enums.DepartmentPaint {
		t.Fatalf("three advances from received must land on paint, got %s", view.CurrentDepartment)
	}
	if len(view.History) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(view.History))
	}
	closed := 0
	for _, entry := range view.History {
		if entry.CompletedAt != nil {
			closed++
		}
	}
	if closed != 3 {
		t.Fatalf("expected 3 closed entries, got %d", closed)
	}
	if view.OpenHistory == nil || view.OpenHistory.Department != enums.DepartmentPaint {
		t.Fatal("expected open entry for paint")
	}
	if len(publisher.events) != 3 {
		t.Fatalf("expected one move event per advance, got %d", len(publisher.events))
	}
}

func TestMoveEventCarriesTimeInDepartment(t *testing.T) {
	repo := newStubPipelineRepo()
	publisher := &stubOutboxPublisher{}
	svc, err := NewService(repo, stubTxRunner{}, publisher)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	order := seedOrder(repo, enums.DepartmentReceived, 1)
	if _, err := svc.Advance(context.Background(), order.ID, staffActor()); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one move event, got %d", len(publisher.events))
	}
	moved, ok := publisher.events[0].Data.(OrderMovedEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", publisher.events[0].Data)
	}
	// The seeded open entry started an hour ago.
	if moved.TimeInDepartmentSeconds < 3590 || moved.TimeInDepartmentSeconds > 3610 {
		t.Fatalf("expected roughly an hour in received, got %ds", moved.TimeInDepartmentSeconds)
	}
}

func TestAdvanceFromShippingCompletes(t *testing.T) {
	repo := newStubPipelineRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order := seedOrder(repo, enums.DepartmentShipping, 1)
	view, err := svc.Advance(context.Background(), order.ID, staffActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if view.CurrentDepartment != enums.DepartmentCompleted {
		t.Fatalf("expected completed, got %s", view.CurrentDepartment)
	}
	// completed is a placement, not a department stay
	if view.OpenHistory != nil {
		t.Fatalf("completed must not open a history entry, got %+v", view.OpenHistory)
	}
	if view.Position != 0 {
		t.Fatalf("completed orders leave the position list, got %d", view.Position)
	}
}

func TestAdvanceTerminalIsStateConflict(t *testing.T) {
	repo := newStubPipelineRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order := seedOrder(repo, enums.DepartmentCompleted, 0)
	_, err := svc.Advance(context.Background(), order.ID, staffActor())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestMoveToChecksDepartmentScope(t *testing.T) {
	repo := newStubPipelineRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order := seedOrder(repo, enums.DepartmentPaint, 1)

	// staff scoped to paint only cannot push into quality
	_, err := svc.MoveTo(context.Background(), order.ID, enums.DepartmentQuality, staffActor(enums.DepartmentPaint))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// both source and target in scope works, including backward moves
	view, err := svc.MoveTo(context.Background(), order.ID, enums.DepartmentDesign, staffActor(enums.DepartmentPaint, enums.DepartmentDesign))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if view.CurrentDepartment != enums.DepartmentDesign {
		t.Fatalf("expected design, got %s", view.CurrentDepartment)
	}
	// a backward move appends a fresh stay rather than reopening the old one
	if len(view.History) != 2 {
		t.Fatalf("expected a fresh design entry, got %d entries", len(view.History))
	}
}

func TestMoveToAdminSkipsScope(t *testing.T) {
	repo := newStubPipelineRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	order := seedOrder(repo, enums.DepartmentReceived, 1)
	view, err := svc.MoveTo(context.Background(), order.ID, enums.DepartmentShipping, adminActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if view.CurrentDepartment != enums.DepartmentShipping {
		t.Fatalf("expected shipping, got %s", view.CurrentDepartment)
	}
}

func TestMoveToSameDepartmentIsNoOp(t *testing.T) {
	repo := newStubPipelineRepo()
	publisher := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, publisher)

	order := seedOrder(repo, enums.DepartmentPaint, 3)
	view, err := svc.MoveTo(context.Background(), order.ID, enums.DepartmentPaint, adminActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if view.Position != 3 || view.Version != 1 {
		t.Fatalf("no-op move must not touch the row, got position %d version %d", view.Position, view.Version)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("no-op move must not emit, got %d events", len(publisher.events))
	}
}

func TestMoveToInvalidTarget(t *testing.T) {
	repo := newStubPipelineRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.MoveTo(context.Background(), uuid.New(), "warehouse", adminActor())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReorderSwapsNeighbors(t *testing.T) {
	repo := newStubPipelineRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	first := seedOrder(repo, enums.DepartmentMachining, 1)
	second := seedOrder(repo, enums.DepartmentMachining, 2)

	if err := svc.Reorder(context.Background(), second.ID, enums.ReorderUp); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.orders[second.ID].Position != 1 || repo.orders[first.ID].Position != 2 {
		t.Fatalf("expected swap, got %d and %d", repo.orders[second.ID].Position, repo.orders[first.ID].Position)
	}

	// swapping back restores the original layout
	if err := svc.Reorder(context.Background(), second.ID, enums.ReorderDown); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.orders[second.ID].Position != 2 || repo.orders[first.ID].Position != 1 {
		t.Fatalf("expected original layout, got %d and %d", repo.orders[second.ID].Position, repo.orders[first.ID].Position)
	}
}

func TestReorderBoundaryIsNoOp(t *testing.T) {
	repo := newStubPipelineRepo()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	only := seedOrder(repo, enums.DepartmentMachining, 1)
	if err := svc.Reorder(context.Background(), only.ID, enums.ReorderUp); err != nil {
		t.Fatalf("expected boundary no-op, got %v", err)
	}
	if err := svc.Reorder(context.Background(), only.ID, enums.ReorderDown); err != nil {
		t.Fatalf("expected boundary no-op, got %v", err)
	}
	if repo.orders[only.ID].Position != 1 || repo.orders[only.ID].Version != 1 {
		t.Fatal("boundary reorder must not touch the row")
	}
}

func TestSetCutStatusRules(t *testing.T) {
	repo := newStubPipelineRepo()
	publisher := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, publisher)

	rim := seedOrder(repo, enums.DepartmentDesign, 1)
	_, err := svc.SetCutStatus(context.Background(), rim.ID, enums.CutStatusCut, staffActor())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("rim must reject cut status, got %v", err)
	}

	capOrder := seedOrder(repo, enums.DepartmentDesign, 2)
	capOrder.ProductType = enums.ProductTypeCapThreeBar
	capOrder.CutStatus = enums.CutStatusWaiting

	view, err := svc.SetCutStatus(context.Background(), capOrder.ID, enums.CutStatusCut, staffActor())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if view.CutStatus != enums.CutStatusCut {
		t.Fatalf("expected cut, got %s", view.CutStatus)
	}
	if view.CurrentDepartment != enums.DepartmentDesign {
		t.Fatalf("cut must not move the order, got %s", view.CurrentDepartment)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderCutStatusChanged {
		t.Fatalf("expected cut status event, got %+v", publisher.events)
	}

	// same-status set is a silent no-op
	view, err = svc.SetCutStatus(context.Background(), capOrder.ID, enums.CutStatusCut, staffActor())
	if err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("no-op must not emit, got %d events", len(publisher.events))
	}

	_, err = svc.SetCutStatus(context.Background(), capOrder.ID, enums.CutStatusNone, staffActor())
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("none is not settable, got %v", err)
	}
}
