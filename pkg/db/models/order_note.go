package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

// OrderNote belongs to exactly one order. Only the author may edit or delete
// their own note.
type OrderNote struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	AuthorID   uuid.UUID        `gorm:"column:author_id;type:uuid;not null"`
	AuthorName string           `gorm:"column:author_name;not null"`
	Text       string           `gorm:"column:text;not null"`
	Department enums.Department `gorm:"column:department;type:text;not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	EditedAt   *time.Time       `gorm:"column:edited_at"`
}
