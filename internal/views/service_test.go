package views

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
)

type stubViewsRepo struct {
	departmentRows []models.Order
	cutRows        []models.Order
	queueRows      []models.Order
	activeRows     []models.Order
	customerRows   []models.Order
	counts         map[enums.QueueName]int64
	countErr       error
	countCalls     int
}

func (s *stubViewsRepo) DepartmentOrders(ctx context.Context, department enums.Department) ([]models.Order, error) {
	return s.departmentRows, nil
}

func (s *stubViewsRepo) CutOrders(ctx context.Context) ([]models.Order, error) {
	return s.cutRows, nil
}

func (s *stubViewsRepo) QueueOrders(ctx context.Context, queue enums.QueueName) ([]models.Order, error) {
	return s.queueRows, nil
}

func (s *stubViewsRepo) ActiveOrders(ctx context.Context) ([]models.Order, error) {
	return s.activeRows, nil
}

func (s *stubViewsRepo) CustomerOrders(ctx context.Context, customer string) ([]models.Order, error) {
	return s.customerRows, nil
}

func (s *stubViewsRepo) CountQueue(ctx context.Context, queue enums.QueueName) (int64, error) {
	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.counts[queue], nil
}

type stubBadgeCache struct {
	data    map[string]string
	getErr  error
	setErr  error
	setKeys []string
}

func newStubBadgeCache() *stubBadgeCache {
	return &stubBadgeCache{data: map[string]string{}}
}

func (s *stubBadgeCache) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.data[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return value, nil
}

func (s *stubBadgeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = fmt.Sprint(value)
	s.setKeys = append(s.setKeys, key)
	return nil
}

func (s *stubBadgeCache) BadgeKey(queue string) string {
	return "badge:" + queue
}

func viewOrder(number string, department enums.Department, rimSize *string) models.Order {
	return models.Order{
		ID:                   uuid.New(),
		OrderNumber:          number,
		Customer:             "Crossroads Customs",
		ProductType:          enums.ProductTypeRim,
		Quantity:             4,
		RimSize:              rimSize,
		CurrentDepartment:    department,
		CutStatus:            enums.CutStatusNone,
		ExternalVendorStatus: enums.ExternalVendorNotSent,
		OrderDate:            time.Now().UTC(),
		Version:              1,
	}
}

func TestDepartmentViewValidatesInput(t *testing.T) {
	svc, err := NewService(&stubViewsRepo{}, nil, 0, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	_, err = svc.DepartmentView(context.Background(), enums.Department("warehouse"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.QueueView(context.Background(), enums.QueueName("priority"))
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSizeGroupsBucketsBySizeWithNoSizeLast(t *testing.T) {
	size19 := "19"
	size17 := "17"
	repo := &stubViewsRepo{activeRows: []models.Order{
		viewOrder("WO-500", enums.DepartmentPaint, &size19),
		viewOrder("WO-501", enums.DepartmentDesign, &size17),
		viewOrder("WO-502", enums.DepartmentDesign, nil),
		viewOrder("WO-503", enums.DepartmentMachining, &size19),
	}}
	svc, _ := NewService(repo, nil, 0, nil)

	groups, err := svc.SizeGroups(context.Background())
	if err != nil {
		t.Fatalf("size groups: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(groups))
	}
	if groups[0].Size != "17" || groups[1].Size != "19" {
		t.Fatalf("sized buckets must sort ascending, got %s then %s", groups[0].Size, groups[1].Size)
	}
	if groups[2].Size != "no size" {
		t.Fatalf("no-size bucket must sort last, got %s", groups[2].Size)
	}
	if len(groups[1].Orders) != 2 {
		t.Fatalf("expected two 19s, got %d", len(groups[1].Orders))
	}
}

func TestCustomerSummaryAggregates(t *testing.T) {
	rush := viewOrder("WO-511", enums.DepartmentPaint, nil)
	rush.IsRush = true
	repo := &stubViewsRepo{customerRows: []models.Order{
		viewOrder("WO-510", enums.DepartmentDesign, nil),
		rush,
		viewOrder("WO-512", enums.DepartmentCompleted, nil),
		viewOrder("WO-513", enums.DepartmentPaint, nil),
	}}
	svc, _ := NewService(repo, nil, 0, nil)

	summary, err := svc.CustomerSummary(context.Background(), "Crossroads Customs")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 4 || summary.Active != 3 || summary.Completed != 1 || summary.Rush != 1 {
		t.Fatalf("unexpected tallies: %+v", summary)
	}
	if summary.Departments[enums.DepartmentPaint] != 2 {
		t.Fatalf("expected 2 active in paint, got %d", summary.Departments[enums.DepartmentPaint])
	}
	if _, ok := summary.Departments[enums.DepartmentCompleted]; ok {
		t.Fatal("completed orders must not count toward a department")
	}

	if _, err := svc.CustomerSummary(context.Background(), ""); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for blank customer")
	}
}

func TestBadgeCountsServeFromCache(t *testing.T) {
	repo := &stubViewsRepo{counts: map[enums.QueueName]int64{enums.QueueRush: 7}}
	cache := newStubBadgeCache()
	cache.data["badge:hold"] = "3"
	svc, _ := NewService(repo, cache, time.Minute, nil)

	counts, err := svc.BadgeCounts(context.Background())
	if err != nil {
		t.Fatalf("badge counts: %v", err)
	}
	if counts[enums.QueueHold] != 3 {
		t.Fatalf("expected cached hold count 3, got %d", counts[enums.QueueHold])
	}
	if counts[enums.QueueRush] != 7 {
		t.Fatalf("expected store rush count 7, got %d", counts[enums.QueueRush])
	}
	// Four queues missed the cache and got their counts written back.
	if len(cache.setKeys) != 4 {
		t.Fatalf("expected 4 cache writes, got %d", len(cache.setKeys))
	}
	if repo.countCalls != 4 {
		t.Fatalf("cached queue must not hit the store, got %d calls", repo.countCalls)
	}
}

func TestBadgeCountsDegradeToZero(t *testing.T) {
	repo := &stubViewsRepo{countErr: errors.New("db down")}
	svc, _ := NewService(repo, nil, 0, nil)

	counts, err := svc.BadgeCounts(context.Background())
	if err != nil {
		t.Fatalf("badges must never fail the request: %v", err)
	}
	for queue, count := range counts {
		if count != 0 {
			t.Fatalf("%s: expected degraded zero, got %d", queue, count)
		}
	}
	if len(counts) != 5 {
		t.Fatalf("expected all five queues reported, got %d", len(counts))
	}
}

func TestBadgeCountsIgnoreCorruptCacheValue(t *testing.T) {
	repo := &stubViewsRepo{counts: map[enums.QueueName]int64{enums.QueueHold: 2}}
	cache := newStubBadgeCache()
	cache.data["badge:hold"] = "not-a-number"
	svc, _ := NewService(repo, cache, time.Minute, nil)

	counts, err := svc.BadgeCounts(context.Background())
	if err != nil {
		t.Fatalf("badge counts: %v", err)
	}
	if counts[enums.QueueHold] != 2 {
		t.Fatalf("expected store fallback 2, got %d", counts[enums.QueueHold])
	}
}
