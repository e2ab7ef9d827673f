package models

import (
	"time"

	"github.com/uptrace/bun"
)

// VisitorPass is a visitor authorization record with a validity window
type VisitorPass struct {
	bun.BaseModel `bun:"table:visitor_passes"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email" json:"email"`
	Phone     string    `bun:"phone,notnull" json:"phone"`
	Address   string    `bun:"address,notnull" json:"address"`
	Reason    string    `bun:"reason" json:"reason"`
	DateStart time.Time `bun:"date_start,notnull" json:"dateStart"`
	DateEnd   time.Time `bun:"date_end,notnull" json:"dateEnd"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"-"`
}

// DateRange is the validity window as sent by the intake form
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CreatePassRequest is the body of POST /api/create-pass
type CreatePassRequest struct {
	Name    string    `json:"name" validate:"required"`
	Email   string    `json:"email" validate:"omitempty,email"`
	Phone   string    `json:"phone" validate:"required"`
	Address string    `json:"address" validate:"required"`
	Reason  string    `json:"reason"`
	Date    DateRange `json:"date"`
}

// PassEvent is published when a pass is created or deleted
type PassEvent struct {
	Type       string       `json:"type"`
	PassID     int64        `json:"pass_id"`
	Pass       *VisitorPass `json:"pass,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

const (
	PassEventCreated = "visitor.pass.created"
	PassEventDeleted = "visitor.pass.deleted"
)
