package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderAttachment holds metadata only; the binary lives in external storage
// referenced by StorageRef.
type OrderAttachment struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Filename    string    `gorm:"column:filename;not null"`
	ContentType string    `gorm:"column:content_type;not null"`
	UploadedBy  uuid.UUID `gorm:"column:uploaded_by;type:uuid;not null"`
	StorageRef  string    `gorm:"column:storage_ref;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
