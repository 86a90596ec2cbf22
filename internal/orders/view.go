package orders

import (
	"github.com/shopspring/decimal"

	"github.com/wheelworks/shopfloor-backend/pkg/db/models"
	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// PercentagePaid returns the exact deposit/total ratio as a percentage.
// A zero or negative invoice total yields zero rather than dividing by it.
func PercentagePaid(totalCents, depositCents int64) decimal.Decimal {
	if totalCents <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(depositCents).Mul(hundred).Div(decimal.NewFromInt(totalCents))
}

// BalanceDueCents returns max(0, total - deposit).
func BalanceDueCents(totalCents, depositCents int64) int64 {
	balance := totalCents - depositCents
	if balance < 0 {
		return 0
	}
	return balance
}

// BuildOrderView assembles the consumer-facing representation. Priority is
// classified from the exact ratio before any display rounding.
func BuildOrderView(order *models.Order) OrderView {
	pct := PercentagePaid(order.PaymentTotalCents, order.DepositCents)
	priority := enums.PriorityFromPercentage(pct)

	view := OrderView{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		Customer:             order.Customer,
		ProductType:          order.ProductType,
		Quantity:             order.Quantity,
		RimSize:              order.RimSize,
		CurrentDepartment:    order.CurrentDepartment,
		Position:             order.Position,
		CutStatus:            order.CutStatus,
		OnHold:               order.OnHold,
		HoldReason:           order.HoldReason,
		HoldAt:               order.HoldAt,
		IsRush:               order.IsRush,
		RushReason:           order.RushReason,
		RushAt:               order.RushAt,
		IsRedo:               order.IsRedo,
		RedoReason:           order.RedoReason,
		RedoAt:               order.RedoAt,
		IsRefinish:           order.IsRefinish,
		RefinishFixNotes:     order.RefinishFixNotes,
		ExternalVendorStatus: order.ExternalVendorStatus,
		PaymentTotalCents:    order.PaymentTotalCents,
		DepositCents:         order.DepositCents,
		BalanceDueCents:      BalanceDueCents(order.PaymentTotalCents, order.DepositCents),
		PercentagePaid:       pct.Round(2),
		ProductionPriority:   priority,
		OrderDate:            order.OrderDate,
		LastMovedBy:          order.LastMovedBy,
		LastMovedAt:          order.LastMovedAt,
		LastMovedFrom:        order.LastMovedFrom,
		LastMovedTo:          order.LastMovedTo,
		LinkedOrderID:        order.LinkedOrderID,
		Version:              order.Version,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}

	for _, entry := range order.History {
		he := HistoryEntry{
			ID:          entry.ID,
			Department:  entry.Department,
			StartedAt:   entry.StartedAt,
			CompletedAt: entry.CompletedAt,
			MovedBy:     entry.MovedBy,
		}
		view.History = append(view.History, he)
		if entry.CompletedAt == nil {
			open := he
			view.OpenHistory = &open
		}
	}

	return view
}

// BuildAttachmentViews merges row-based attachments with the legacy inline
// attachment carried on the order itself.
func BuildAttachmentViews(order *models.Order, attachments []models.OrderAttachment) []AttachmentView {
	views := make([]AttachmentView, 0, len(attachments)+1)

	if order.LegacyAttachmentName != nil {
		legacy := AttachmentView{
			Filename: *order.LegacyAttachmentName,
			Legacy:   true,
		}
		if order.LegacyAttachmentType != nil {
			legacy.ContentType = *order.LegacyAttachmentType
		}
		if order.LegacyAttachmentRef != nil {
			legacy.StorageRef = *order.LegacyAttachmentRef
		}
		views = append(views, legacy)
	}

	for i := range attachments {
		att := attachments[i]
		id := att.ID
		uploader := att.UploadedBy
		created := att.CreatedAt
		views = append(views, AttachmentView{
			ID:          &id,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			StorageRef:  att.StorageRef,
			UploadedBy:  &uploader,
			Legacy:      false,
			CreatedAt:   &created,
		})
	}

	return views
}

// BuildNoteViews converts note rows for consumers.
func BuildNoteViews(notes []models.OrderNote) []NoteView {
	views := make([]NoteView, 0, len(notes))
	for _, note := range notes {
		views = append(views, NoteView{
			ID:         note.ID,
			AuthorID:   note.AuthorID,
			AuthorName: note.AuthorName,
			Text:       note.Text,
			Department: note.Department,
			CreatedAt:  note.CreatedAt,
			EditedAt:   note.EditedAt,
		})
	}
	return views
}

// BuildPaymentViews converts ledger rows for consumers.
func BuildPaymentViews(events []models.PaymentEvent) []PaymentView {
	views := make([]PaymentView, 0, len(events))
	for _, event := range events {
		views = append(views, PaymentView{
			ID:          event.ID,
			AmountCents: event.AmountCents,
			Method:      event.Method,
			Note:        event.Note,
			PostedBy:    event.PostedBy,
			CreatedAt:   event.CreatedAt,
		})
	}
	return views
}
