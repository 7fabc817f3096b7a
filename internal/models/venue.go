package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	City      string    `bun:"city,nullzero" json:"city,omitempty"`
	State     string    `bun:"state,nullzero" json:"state,omitempty"`
	Address   string    `bun:"address,nullzero" json:"address,omitempty"`
	PlaceID   *string   `bun:"place_id,nullzero" json:"place_id,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}
