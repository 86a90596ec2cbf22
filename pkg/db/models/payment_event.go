package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

// PaymentEvent records one immutable deposit posting against an order's
// invoice. The order's running deposit total is the sum of these rows.
type PaymentEvent struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	AmountCents int64                `gorm:"column:amount_cents;not null"`
	Method      *enums.PaymentMethod `gorm:"column:method;type:text"`
	Note        *string              `gorm:"column:note"`
	PostedBy    uuid.UUID            `gorm:"column:posted_by;type:uuid;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
