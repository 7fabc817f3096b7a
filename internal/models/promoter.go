package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Promoter struct {
	bun.BaseModel `bun:"table:promoters"`

	ID          string    `bun:"id,pk" json:"id"`
	CompanyName string    `bun:"company_name,notnull" json:"company_name"`
	UserID      *string   `bun:"user_id,nullzero" json:"user_id,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}
