package views

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

func setupViewsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer TEXT NOT NULL,
  product_type TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  rim_size TEXT,
  current_department TEXT NOT NULL DEFAULT 'received',
  position INTEGER NOT NULL DEFAULT 0,
  cut_status TEXT NOT NULL DEFAULT 'none',
  on_hold INTEGER NOT NULL DEFAULT 0,
  hold_reason TEXT,
  hold_at DATETIME,
  is_rush INTEGER NOT NULL DEFAULT 0,
  rush_reason TEXT,
  rush_at DATETIME,
  is_redo INTEGER NOT NULL DEFAULT 0,
  redo_reason TEXT,
  redo_at DATETIME,
  is_refinish INTEGER NOT NULL DEFAULT 0,
  refinish_fix_notes TEXT,
  external_vendor_status TEXT NOT NULL DEFAULT 'not_sent',
  payment_total_cents INTEGER NOT NULL DEFAULT 0,
  deposit_cents INTEGER NOT NULL DEFAULT 0,
  order_date DATETIME NOT NULL,
  last_moved_by TEXT,
  last_moved_at DATETIME,
  last_moved_from TEXT,
  last_moved_to TEXT,
  linked_order_id TEXT,
  legacy_attachment_name TEXT,
  legacy_attachment_type TEXT,
  legacy_attachment_ref TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

type orderSeed struct {
	number     string
	customer   string
	product    enums.ProductType
	department enums.Department
	position   int
	mutate     func(*models.Order)
}

func seedOrders(t *testing.T, db *gorm.DB, seeds ...orderSeed) map[string]*models.Order {
	t.Helper()
	created := map[string]*models.Order{}
	for _, seed := range seeds {
		order := &models.Order{
			ID:                   uuid.New(),
			OrderNumber:          seed.number,
			Customer:             seed.customer,
			ProductType:          seed.product,
			Quantity:             4,
			CurrentDepartment:    seed.department,
			Position:             seed.position,
			CutStatus:            enums.CutStatusNone,
			ExternalVendorStatus: enums.ExternalVendorNotSent,
			OrderDate:            time.Now().UTC(),
			Version:              1,
		}
		if seed.mutate != nil {
			seed.mutate(order)
		}
		require.NoError(t, db.Create(order).Error)
		created[seed.number] = order
	}
	return created
}

func numbersOf(rows []models.Order) []string {
	result := make([]string, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.OrderNumber)
	}
	return result
}

func TestDepartmentOrdersCutBifurcation(t *testing.T) {
	db := setupViewsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedOrders(t, db,
		orderSeed{number: "WO-400", customer: "A", product: enums.ProductTypeCapStandard, department: enums.DepartmentDesign, position: 1},
		orderSeed{number: "WO-401", customer: "A", product: enums.ProductTypeCapStandard, department: enums.DepartmentDesign, position: 2,
			mutate: func(o *models.Order) { o.CutStatus = enums.CutStatusCut }},
		orderSeed{number: "WO-402", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentFinishing, position: 1},
	)

	// Cut orders vanish from the pre-finishing view their row still points at.
	design, err := repo.DepartmentOrders(ctx, enums.DepartmentDesign)
	require.NoError(t, err)
	assert.Equal(t, []string{"WO-400"}, numbersOf(design))

	// The finishing view picks them up alongside its own orders.
	finishing, err := repo.DepartmentOrders(ctx, enums.DepartmentFinishing)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"WO-401", "WO-402"}, numbersOf(finishing))

	// Visibility is a view concern; the stored department never moved.
	var stored models.Order
	require.NoError(t, db.Where("order_number = ?", "WO-401").First(&stored).Error)
	assert.Equal(t, enums.DepartmentDesign, stored.CurrentDepartment)
}

func TestDepartmentOrdersPostFinishingUnaffected(t *testing.T) {
	db := setupViewsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedOrders(t, db,
		orderSeed{number: "WO-410", customer: "A", product: enums.ProductTypeCapBullet, department: enums.DepartmentQuality, position: 1,
			mutate: func(o *models.Order) { o.CutStatus = enums.CutStatusCut }},
	)

	quality, err := repo.DepartmentOrders(ctx, enums.DepartmentQuality)
	require.NoError(t, err)
	assert.Equal(t, []string{"WO-410"}, numbersOf(quality))

	finishing, err := repo.DepartmentOrders(ctx, enums.DepartmentFinishing)
	require.NoError(t, err)
	assert.Empty(t, finishing)
}

func TestDepartmentOrdersSortByPosition(t *testing.T) {
	db := setupViewsTestDB(t)
	repo := NewRepository(db)

	seedOrders(t, db,
		orderSeed{number: "WO-422", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentPaint, position: 3},
		orderSeed{number: "WO-420", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentPaint, position: 1},
		orderSeed{number: "WO-421", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentPaint, position: 2},
	)

	rows, err := repo.DepartmentOrders(context.Background(), enums.DepartmentPaint)
	require.NoError(t, err)
	assert.Equal(t, []string{"WO-420", "WO-421", "WO-422"}, numbersOf(rows))
}

func TestCutOrdersExcludeCompleted(t *testing.T) {
	db := setupViewsTestDB(t)
	repo := NewRepository(db)

	seedOrders(t, db,
		orderSeed{number: "WO-430", customer: "A", product: enums.ProductTypeCapTwoBar, department: enums.DepartmentMachining, position: 1,
			mutate: func(o *models.Order) { o.CutStatus = enums.CutStatusCut }},
		orderSeed{number: "WO-431", customer: "A", product: enums.ProductTypeCapTwoBar, department: enums.DepartmentCompleted, position: 0,
			mutate: func(o *models.Order) { o.CutStatus = enums.CutStatusCut }},
		orderSeed{number: "WO-432", customer: "A", product: enums.ProductTypeCapTwoBar, department: enums.DepartmentMachining, position: 2,
			mutate: func(o *models.Order) { o.CutStatus = enums.CutStatusWaiting }},
	)

	rows, err := repo.CutOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"WO-430"}, numbersOf(rows))
}

func TestQueuePredicates(t *testing.T) {
	db := setupViewsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	reason := "waiting on chrome"
	seedOrders(t, db,
		orderSeed{number: "WO-440", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentPaint, position: 1,
			mutate: func(o *models.Order) { o.OnHold = true; o.HoldReason = &reason }},
		orderSeed{number: "WO-441", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentDesign, position: 1,
			mutate: func(o *models.Order) { o.IsRush = true }},
		orderSeed{number: "WO-442", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentMachining, position: 1,
			mutate: func(o *models.Order) { o.IsRedo = true; o.IsRefinish = true }},
		orderSeed{number: "WO-443", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentPaint, position: 2,
			mutate: func(o *models.Order) { o.ExternalVendorStatus = enums.ExternalVendorAtVendor }},
		orderSeed{number: "WO-444", customer: "A", product: enums.ProductTypeRim, department: enums.DepartmentPaint, position: 3},
	)

	cases := []struct {
		queue enums.QueueName
		want  []string
	}{
		{enums.QueueHold, []string{"WO-440"}},
		{enums.QueueRush, []string{"WO-441"}},
		{enums.QueueRedo, []string{"WO-442"}},
		{enums.QueueRefinish, []string{"WO-442"}},
		{enums.QueueExternalVendor, []string{"WO-443"}},
	}
	for _, tc := range cases {
		rows, err := repo.QueueOrders(ctx, tc.queue)
		require.NoError(t, err, tc.queue)
		assert.Equal(t, tc.want, numbersOf(rows), tc.queue)

		count, err := repo.CountQueue(ctx, tc.queue)
		require.NoError(t, err, tc.queue)
		assert.Equal(t, int64(len(tc.want)), count, tc.queue)
	}

	_, err := repo.QueueOrders(ctx, enums.QueueName("priority"))
	assert.Error(t, err)
}

func TestActiveOrdersAndCustomerOrders(t *testing.T) {
	db := setupViewsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedOrders(t, db,
		orderSeed{number: "WO-450", customer: "Crossroads Customs", product: enums.ProductTypeRim, department: enums.DepartmentPaint, position: 1,
			mutate: func(o *models.Order) { o.CreatedAt = base }},
		orderSeed{number: "WO-451", customer: "Crossroads Customs", product: enums.ProductTypeRim, department: enums.DepartmentCompleted, position: 0,
			mutate: func(o *models.Order) { o.CreatedAt = base.Add(time.Hour) }},
		orderSeed{number: "WO-452", customer: "Lakeside Motors", product: enums.ProductTypeRim, department: enums.DepartmentDesign, position: 1,
			mutate: func(o *models.Order) { o.CreatedAt = base.Add(2 * time.Hour) }},
	)

	active, err := repo.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"WO-450", "WO-452"}, numbersOf(active))

	customer, err := repo.CustomerOrders(ctx, "Crossroads Customs")
	require.NoError(t, err)
	assert.Equal(t, []string{"WO-451", "WO-450"}, numbersOf(customer))
}
