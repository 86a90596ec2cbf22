package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

// ListFilters describe the inputs supported by the orders list.
type ListFilters struct {
	Department       *enums.Department
	ProductType      *enums.ProductType
	Customer         string
	IncludeCompleted bool
}

// CreateOrderInput carries everything needed to open a new production order.
type CreateOrderInput struct {
	OrderNumber       string
	Customer          string
	ProductType       enums.ProductType
	Quantity          int
	RimSize           *string
	PaymentTotalCents int64
	OrderDate         time.Time
	LinkedOrderID     *uuid.UUID
}

// UpdateOrderInput is the privileged field edit; nil fields are untouched.
type UpdateOrderInput struct {
	OrderNumber       *string
	Customer          *string
	ProductType       *enums.ProductType
	Quantity          *int
	RimSize           *string
	PaymentTotalCents *int64
	OrderDate         *time.Time
}

// NoteInput carries the text of a new or edited note.
type NoteInput struct {
	Text string
}

// AttachmentInput carries attachment metadata; bytes live in external storage.
type AttachmentInput struct {
	Filename    string
	ContentType string
	StorageRef  string
}

// HistoryEntry is one department stay as exposed to consumers.
type HistoryEntry struct {
	ID          uuid.UUID        `json:"id"`
	Department  enums.Department `json:"department"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	MovedBy     string           `json:"moved_by"`
}

// AttachmentView unifies row-based and legacy inline attachments on read.
type AttachmentView struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	StorageRef  string     `json:"storage_ref"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	Legacy      bool       `json:"legacy"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// NoteView is a note as exposed to consumers.
type NoteView struct {
	ID         uuid.UUID        `json:"id"`
	AuthorID   uuid.UUID        `json:"author_id"`
	AuthorName string           `json:"author_name"`
	Text       string           `json:"text"`
	Department enums.Department `json:"department"`
	CreatedAt  time.Time        `json:"created_at"`
	EditedAt   *time.Time       `json:"edited_at,omitempty"`
}

// PaymentView is one immutable ledger posting as exposed to consumers.
type PaymentView struct {
	ID          uuid.UUID            `json:"id"`
	AmountCents int64                `json:"amount_cents"`
	Method      *enums.PaymentMethod `json:"method,omitempty"`
	Note        *string              `json:"note,omitempty"`
	PostedBy    uuid.UUID            `json:"posted_by"`
	CreatedAt   time.Time            `json:"created_at"`
}

// OrderView is the full order representation every read and mutation returns.
// Derived payment fields are recomputed here on every build so consumers
// never recompute them and stored state never drifts.
type OrderView struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	Customer    string            `json:"customer"`
	ProductType enums.ProductType `json:"product_type"`
	Quantity    int               `json:"quantity"`
	RimSize     *string           `json:"rim_size,omitempty"`

	CurrentDepartment enums.Department `json:"current_department"`
	Position          int              `json:"position"`
	CutStatus         enums.CutStatus  `json:"cut_status"`

	OnHold     bool       `json:"on_hold"`
	HoldReason *string    `json:"hold_reason,omitempty"`
	HoldAt     *time.Time `json:"hold_at,omitempty"`
	IsRush     bool       `json:"is_rush"`
	RushReason *string    `json:"rush_reason,omitempty"`
	RushAt     *time.Time `json:"rush_at,omitempty"`
	IsRedo     bool       `json:"is_redo"`
	RedoReason *string    `json:"redo_reason,omitempty"`
	RedoAt     *time.Time `json:"redo_at,omitempty"`

	IsRefinish       bool    `json:"is_refinish"`
	RefinishFixNotes *string `json:"refinish_fix_notes,omitempty"`

	ExternalVendorStatus enums.ExternalVendorStatus `json:"external_vendor_status"`

	PaymentTotalCents  int64                    `json:"payment_total_cents"`
	DepositCents       int64                    `json:"deposit_cents"`
	BalanceDueCents    int64                    `json:"balance_due_cents"`
	PercentagePaid     decimal.Decimal          `json:"percentage_paid"`
	ProductionPriority enums.ProductionPriority `json:"production_priority"`

	OrderDate     time.Time         `json:"order_date"`
	LastMovedBy   *string           `json:"last_moved_by,omitempty"`
	LastMovedAt   *time.Time        `json:"last_moved_at,omitempty"`
	LastMovedFrom *enums.Department `json:"last_moved_from,omitempty"`
	LastMovedTo   *enums.Department `json:"last_moved_to,omitempty"`

	LinkedOrderID *uuid.UUID `json:"linked_order_id,omitempty"`
	Version       int64      `json:"version"`

	OpenHistory *HistoryEntry  `json:"open_history,omitempty"`
	History     []HistoryEntry `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
