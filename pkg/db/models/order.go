package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

// Order is the central production record. Department placement, queue flags,
// cut status and payment state are orthogonal dimensions kept flat on the one
// row so queries can intersect them freely.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	Customer    string            `gorm:"column:customer;not null"`
	ProductType enums.ProductType `gorm:"column:product_type;type:text;not null"`
	Quantity    int               `gorm:"column:quantity;not null"`
	RimSize     *string           `gorm:"column:rim_size"`

	CurrentDepartment enums.Department `gorm:"column:current_department;type:text;not null;default:'received'"`
	Position          int              `gorm:"column:position;not null;default:0"`
	CutStatus         enums.CutStatus  `gorm:"column:cut_status;type:text;not null;default:'none'"`

	OnHold     bool       `gorm:"column:on_hold;not null;default:false"`
	HoldReason *string    `gorm:"column:hold_reason"`
	HoldAt     *time.Time `gorm:"column:hold_at"`
	IsRush     bool       `gorm:"column:is_rush;not null;default:false"`
	RushReason *string    `gorm:"column:rush_reason"`
	RushAt     *time.Time `gorm:"column:rush_at"`
	IsRedo     bool       `gorm:"column:is_redo;not null;default:false"`
	RedoReason *string    `gorm:"column:redo_reason"`
	RedoAt     *time.Time `gorm:"column:redo_at"`

	IsRefinish       bool    `gorm:"column:is_refinish;not null;default:false"`
	RefinishFixNotes *string `gorm:"column:refinish_fix_notes"`

	ExternalVendorStatus enums.ExternalVendorStatus `gorm:"column:external_vendor_status;type:text;not null;default:'not_sent'"`

	PaymentTotalCents int64 `gorm:"column:payment_total_cents;not null;default:0"`
	DepositCents      int64 `gorm:"column:deposit_cents;not null;default:0"`

	OrderDate     time.Time         `gorm:"column:order_date;not null"`
	LastMovedBy   *string           `gorm:"column:last_moved_by"`
	LastMovedAt   *time.Time        `gorm:"column:last_moved_at"`
	LastMovedFrom *enums.Department `gorm:"column:last_moved_from;type:text"`
	LastMovedTo   *enums.Department `gorm:"column:last_moved_to;type:text"`

	LinkedOrderID *uuid.UUID `gorm:"column:linked_order_id;type:uuid"`

	// Legacy single inline attachment, kept readable for records created
	// before attachments moved to their own table.
	LegacyAttachmentName *string `gorm:"column:legacy_attachment_name"`
	LegacyAttachmentType *string `gorm:"column:legacy_attachment_type"`
	LegacyAttachmentRef  *string `gorm:"column:legacy_attachment_ref"`

	// Version guards every read-modify-write; a stale version loses the race.
	Version int64 `gorm:"column:version;not null;default:1"`

	History     []DepartmentHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Notes       []OrderNote         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Attachments []OrderAttachment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments    []PaymentEvent      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
