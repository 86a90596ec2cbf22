package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

// DepartmentHistory is one append-only entry per department stay. Duration is
// always derived from the timestamps at read time, never cached.
type DepartmentHistory struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	Department  enums.Department `gorm:"column:department;type:text;not null"`
	StartedAt   time.Time        `gorm:"column:started_at;not null"`
	CompletedAt *time.Time       `gorm:"column:completed_at"`
	MovedBy     string           `gorm:"column:moved_by;not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
}
