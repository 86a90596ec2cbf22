package views

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
	pkgerrors "github.com/wheelworks/shopfloor-backend/pkg/errors"
	"github.com/wheelworks/shopfloor-backend/pkg/logger"
)

const noSizeBucket = "no size"

type badgeCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	BadgeKey(queue string) string
}

// Service is the read-only projection layer. Nothing here mutates state.
type Service interface {
	DepartmentView(ctx context.Context, department enums.Department) ([]orders.OrderView, error)
	CutOrders(ctx context.Context) ([]orders.OrderView, error)
	QueueView(ctx context.Context, queue enums.QueueName) ([]orders.OrderView, error)
	SizeGroups(ctx context.Context) ([]SizeGroup, error)
	CustomerSummary(ctx context.Context, customer string) (*CustomerSummary, error)
	BadgeCounts(ctx context.Context) (BadgeCounts, error)
}

type service struct {
	repo     Repository
	cache    badgeCache
	badgeTTL time.Duration
	logg     *logger.Logger
}

// NewService builds the views service. The badge cache may be nil; counts
// then always come straight from the store.
func NewService(repo Repository, cache badgeCache, badgeTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("views repository required")
	}
	if badgeTTL <= 0 {
		badgeTTL = 30 * time.Second
	}
	return &service{repo: repo, cache: cache, badgeTTL: badgeTTL, logg: logg}, nil
}

func (s *service) DepartmentView(ctx context.Context, department enums.Department) ([]orders.OrderView, error) {
	if !department.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid department")
	}
	rows, err := s.repo.DepartmentOrders(ctx, department)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load department view")
	}
	return buildViews(rows), nil
}

func (s *service) CutOrders(ctx context.Context) ([]orders.OrderView, error) {
	rows, err := s.repo.CutOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cut orders")
	}
	return buildViews(rows), nil
}

func (s *service) QueueView(ctx context.Context, queue enums.QueueName) ([]orders.OrderView, error) {
	if !queue.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid queue name")
	}
	rows, err := s.repo.QueueOrders(ctx, queue)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load queue view")
	}
	return buildViews(rows), nil
}

func (s *service) SizeGroups(ctx context.Context) ([]SizeGroup, error) {
	rows, err := s.repo.ActiveOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active orders")
	}

	buckets := map[string][]orders.OrderView{}
	for i := range rows {
		size := noSizeBucket
		if rows[i].RimSize != nil && *rows[i].RimSize != "" {
			size = *rows[i].RimSize
		}
		buckets[size] = append(buckets[size], orders.BuildOrderView(&rows[i]))
	}

	sizes := make([]string, 0, len(buckets))
	for size := range buckets {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool {
		// The no-size bucket always sorts last.
		if sizes[i] == noSizeBucket {
			return false
		}
		if sizes[j] == noSizeBucket {
			return true
		}
		return sizes[i] < sizes[j]
	})

	groups := make([]SizeGroup, 0, len(sizes))
	for _, size := range sizes {
		groups = append(groups, SizeGroup{Size: size, Orders: buckets[size]})
	}
	return groups, nil
}

func (s *service) CustomerSummary(ctx context.Context, customer string) (*CustomerSummary, error) {
	if customer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	rows, err := s.repo.CustomerOrders(ctx, customer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer orders")
	}

	summary := &CustomerSummary{
		Customer:    customer,
		Departments: map[enums.Department]int{},
	}
	for i := range rows {
		order := &rows[i]
		summary.Total++
		if order.CurrentDepartment.IsTerminal() {
			summary.Completed++
		} else {
			summary.Active++
			summary.Departments[order.CurrentDepartment]++
		}
		if order.IsRush {
			summary.Rush++
		}
		summary.Orders = append(summary.Orders, orders.BuildOrderView(order))
	}
	return summary, nil
}

// BadgeCounts serves per-queue counters from the cache when fresh enough and
// falls back to the store. Counter failures degrade to zero; badges never
// block the primary view.
func (s *service) BadgeCounts(ctx context.Context) (BadgeCounts, error) {
	counts := BadgeCounts{}
	for _, queue := range []enums.QueueName{
		enums.QueueHold,
		enums.QueueRush,
		enums.QueueRedo,
		enums.QueueRefinish,
		enums.QueueExternalVendor,
	} {
		counts[queue] = s.badgeCount(ctx, queue)
	}
	return counts, nil
}

func (s *service) badgeCount(ctx context.Context, queue enums.QueueName) int64 {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, s.cache.BadgeKey(queue.String())); err == nil {
			if count, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
				return count
			}
		}
	}

	count, err := s.repo.CountQueue(ctx, queue)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("badge count for %s unavailable, degrading to zero", queue))
		}
		return 0
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cache.BadgeKey(queue.String()), count, s.badgeTTL); err != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("badge count cache write for %s failed", queue))
		}
	}
	return count
}

func buildViews(rows []models.Order) []orders.OrderView {
	result := make([]orders.OrderView, 0, len(rows))
	for i := range rows {
		result = append(result, orders.BuildOrderView(&rows[i]))
	}
	return result
}
