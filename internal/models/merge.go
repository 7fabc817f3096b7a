package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EntityType selects which record kind a merge or duplicate scan targets.
type EntityType string

const (
	EntityVenues    EntityType = "venues"
	EntityEvents    EntityType = "events"
	EntityVendors   EntityType = "vendors"
	EntityPromoters EntityType = "promoters"
)

// RelationshipCounts tallies rows per relationship kind. Events covers the
// venue/promoter foreign key on events, EventVendors the join table, and
// Favorites the polymorphic bookmarks.
type RelationshipCounts struct {
	Events       int `json:"events,omitempty"`
	EventVendors int `json:"event_vendors,omitempty"`
	Favorites    int `json:"favorites"`
}

// EntityWithCount is a full record annotated with the relationship count
// relevant to its kind (events for venues/promoters, event-vendor links for
// events/vendors).
type EntityWithCount struct {
	Record            interface{} `json:"record"`
	RelationshipCount int         `json:"relationship_count"`
}

// MergePreview is the non-destructive report shown to the operator before a
// merge. Warnings are advisory; CanMerge never blocks in current behavior.
type MergePreview struct {
	Primary                 EntityWithCount    `json:"primary"`
	Duplicate               EntityWithCount    `json:"duplicate"`
	RelationshipsToTransfer RelationshipCounts `json:"relationships_to_transfer"`
	Warnings                []string           `json:"warnings"`
	CanMerge                bool               `json:"can_merge"`
}

// MergeResult reports what a completed merge actually moved.
type MergeResult struct {
	Success                  bool               `json:"success"`
	MergedEntity             EntityWithCount    `json:"merged_entity"`
	TransferredRelationships RelationshipCounts `json:"transferred_relationships"`
	DeletedID                string             `json:"deleted_id"`
}

// MergeRecord is the audit row written inside the merge transaction.
type MergeRecord struct {
	bun.BaseModel `bun:"table:merge_records"`

	ID           string    `bun:"id,pk" json:"id"`
	EntityType   string    `bun:"entity_type,notnull" json:"entity_type"`
	PrimaryID    string    `bun:"primary_id,notnull" json:"primary_id"`
	DuplicateID  string    `bun:"duplicate_id,notnull" json:"duplicate_id"`
	Events       int       `bun:"events,notnull,default:0" json:"events"`
	EventVendors int       `bun:"event_vendors,notnull,default:0" json:"event_vendors"`
	Favorites    int       `bun:"favorites,notnull,default:0" json:"favorites"`
	MergedBy     string    `bun:"merged_by,notnull" json:"merged_by"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// DuplicatePair is one candidate duplicate surfaced by a scan.
type DuplicatePair struct {
	Entity1    interface{} `json:"entity1"`
	Entity2    interface{} `json:"entity2"`
	Similarity float64     `json:"similarity"`
}

// DuplicateScanResult is the response of an admin duplicate scan.
type DuplicateScanResult struct {
	EntityType EntityType      `json:"entity_type"`
	Threshold  float64         `json:"threshold"`
	Scanned    int             `json:"scanned"`
	Pairs      []DuplicatePair `json:"pairs"`
}

// DuplicateScanSummary is the event published after a scan completes.
type DuplicateScanSummary struct {
	EntityType EntityType `json:"entity_type"`
	Threshold  float64    `json:"threshold"`
	Scanned    int        `json:"scanned"`
	PairsFound int        `json:"pairs_found"`
	ScannedAt  time.Time  `json:"scanned_at"`
}
