package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Vendor struct {
	bun.BaseModel `bun:"table:vendors"`

	ID           string    `bun:"id,pk" json:"id"`
	BusinessName string    `bun:"business_name,notnull" json:"business_name"`
	VendorType   *string   `bun:"vendor_type,nullzero" json:"vendor_type,omitempty"`
	UserID       *string   `bun:"user_id,nullzero" json:"user_id,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}
