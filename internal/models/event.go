package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	VenueID     *string   `bun:"venue_id,nullzero" json:"venue_id,omitempty"`
	PromoterID  string    `bun:"promoter_id,notnull" json:"promoter_id"`
	StartDate   time.Time `bun:"start_date,notnull" json:"start_date"`
	EndDate     time.Time `bun:"end_date,notnull" json:"end_date"`
	ViewCount   int       `bun:"view_count,notnull,default:0" json:"view_count"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`

	// Relations
	Venue    *Venue    `bun:"rel:belongs-to,join:venue_id=id" json:"venue,omitempty"`
	Promoter *Promoter `bun:"rel:belongs-to,join:promoter_id=id" json:"promoter,omitempty"`
}
