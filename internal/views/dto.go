package views

import (
	"github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

// SizeGroup buckets active orders sharing one rim size.
type SizeGroup struct {
	Size   string             `json:"size"`
	Orders []orders.OrderView `json:"orders"`
}

// CustomerSummary aggregates everything known about one customer's orders.
type CustomerSummary struct {
	Customer    string                   `json:"customer"`
	Total       int                      `json:"total"`
	Active      int                      `json:"active"`
	Completed   int                      `json:"completed"`
	Rush        int                      `json:"rush"`
	Departments map[enums.Department]int `json:"departments"`
	Orders      []orders.OrderView       `json:"orders"`
}

// BadgeCounts carries the per-queue counters shown on dashboard badges.
type BadgeCounts map[enums.QueueName]int64
