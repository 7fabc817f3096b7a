package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Favoritable types a user can bookmark.
const (
	FavoritableVenue    = "VENUE"
	FavoritableEvent    = "EVENT"
	FavoritableVendor   = "VENDOR"
	FavoritablePromoter = "PROMOTER"
)

// Favorite is a polymorphic bookmark. A user may favorite a given
// (type, id) target at most once.
type Favorite struct {
	bun.BaseModel `bun:"table:favorites"`

	ID              string    `bun:"id,pk" json:"id"`
	UserID          string    `bun:"user_id,notnull,unique:favorites_user_target" json:"user_id"`
	FavoritableType string    `bun:"favoritable_type,notnull,unique:favorites_user_target" json:"favoritable_type"`
	FavoritableID   string    `bun:"favoritable_id,notnull,unique:favorites_user_target" json:"favoritable_id"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
