package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EventVendor links a vendor to an event it participates in.
// The (event_id, vendor_id) pair must stay unique.
type EventVendor struct {
	bun.BaseModel `bun:"table:event_vendors"`

	ID        string    `bun:"id,pk" json:"id"`
	EventID   string    `bun:"event_id,notnull,unique:event_vendors_event_vendor" json:"event_id"`
	VendorID  string    `bun:"vendor_id,notnull,unique:event_vendors_event_vendor" json:"vendor_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	// Relations
	Event  *Event  `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
	Vendor *Vendor `bun:"rel:belongs-to,join:vendor_id=id" json:"vendor,omitempty"`
}
