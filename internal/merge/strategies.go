package merge

import (
	"context"
	"fmt"

	"fairfinder/internal/merge/db"
	"fairfinder/internal/models"
)

// strategy captures everything that differs between the four entity kinds:
// which foreign keys get repointed, which join rows need overlap dedupe,
// which counter carries over, and which warnings the preview raises. The
// favorite transfer is shared and lives in the service.
type strategy struct {
	noun            string
	favoritableType string

	// load returns the record with its relationship count, or nil when the
	// id does not resolve.
	load func(ctx context.Context, store db.Store, id string) (*models.EntityWithCount, error)

	// preview estimates the transferable counts (favorites filled in by the
	// service) and collects advisory warnings.
	preview func(ctx context.Context, store db.Store, primary, duplicate *models.EntityWithCount, primaryID, duplicateID string) (models.RelationshipCounts, []string, error)

	// transfer repoints relationships and merges counters inside the
	// transaction, returning the actual moved counts.
	transfer func(ctx context.Context, tx db.Store, primaryID, duplicateID string) (models.RelationshipCounts, error)

	// remove deletes the duplicate record once nothing references it.
	remove func(ctx context.Context, tx db.Store, id string) error
}

func (s strategy) notFoundErr() error {
	return fmt.Errorf("one or both %s %w", s.noun, ErrNotFound)
}

func venueStrategy() strategy {
	return strategy{
		noun:            "venues",
		favoritableType: models.FavoritableVenue,
		load: func(ctx context.Context, store db.Store, id string) (*models.EntityWithCount, error) {
			venue, err := store.GetVenueByID(ctx, id)
			if err != nil {
				return nil, ignoreNoRows(err)
			}
			count, err := store.CountEventsByVenueID(ctx, id)
			if err != nil {
				return nil, err
			}
			return &models.EntityWithCount{Record: venue, RelationshipCount: count}, nil
		},
		preview: func(ctx context.Context, store db.Store, _, duplicate *models.EntityWithCount, _, duplicateID string) (models.RelationshipCounts, []string, error) {
			return models.RelationshipCounts{Events: duplicate.RelationshipCount}, nil, nil
		},
		transfer: func(ctx context.Context, tx db.Store, primaryID, duplicateID string) (models.RelationshipCounts, error) {
			events, err := tx.RepointEventVenues(ctx, primaryID, duplicateID)
			if err != nil {
				return models.RelationshipCounts{}, err
			}
			return models.RelationshipCounts{Events: events}, nil
		},
		remove: func(ctx context.Context, tx db.Store, id string) error {
			return tx.DeleteVenue(ctx, id)
		},
	}
}

func promoterStrategy() strategy {
	return strategy{
		noun:            "promoters",
		favoritableType: models.FavoritablePromoter,
		load: func(ctx context.Context, store db.Store, id string) (*models.EntityWithCount, error) {
			promoter, err := store.GetPromoterByID(ctx, id)
			if err != nil {
				return nil, ignoreNoRows(err)
			}
			count, err := store.CountEventsByPromoterID(ctx, id)
			if err != nil {
				return nil, err
			}
			return &models.EntityWithCount{Record: promoter, RelationshipCount: count}, nil
		},
		preview: func(ctx context.Context, store db.Store, primary, duplicate *models.EntityWithCount, _, _ string) (models.RelationshipCounts, []string, error) {
			var warnings []string
			p := primary.Record.(*models.Promoter)
			d := duplicate.Record.(*models.Promoter)
			if differentOwners(p.UserID, d.UserID) {
				warnings = append(warnings, "promoters belong to different user accounts; account ownership is not transferred")
			}
			return models.RelationshipCounts{Events: duplicate.RelationshipCount}, warnings, nil
		},
		transfer: func(ctx context.Context, tx db.Store, primaryID, duplicateID string) (models.RelationshipCounts, error) {
			events, err := tx.RepointEventPromoters(ctx, primaryID, duplicateID)
			if err != nil {
				return models.RelationshipCounts{}, err
			}
			return models.RelationshipCounts{Events: events}, nil
		},
		remove: func(ctx context.Context, tx db.Store, id string) error {
			return tx.DeletePromoter(ctx, id)
		},
	}
}

func vendorStrategy() strategy {
	return strategy{
		noun:            "vendors",
		favoritableType: models.FavoritableVendor,
		load: func(ctx context.Context, store db.Store, id string) (*models.EntityWithCount, error) {
			vendor, err := store.GetVendorByID(ctx, id)
			if err != nil {
				return nil, ignoreNoRows(err)
			}
			count, err := store.CountEventVendorsByVendorID(ctx, id)
			if err != nil {
				return nil, err
			}
			return &models.EntityWithCount{Record: vendor, RelationshipCount: count}, nil
		},
		preview: func(ctx context.Context, store db.Store, primary, duplicate *models.EntityWithCount, primaryID, duplicateID string) (models.RelationshipCounts, []string, error) {
			var warnings []string
			p := primary.Record.(*models.Vendor)
			d := duplicate.Record.(*models.Vendor)
			if differentOwners(p.UserID, d.UserID) {
				warnings = append(warnings, "vendors belong to different user accounts; account ownership is not transferred")
			}
			overlap, err := store.CountVendorEventOverlap(ctx, primaryID, duplicateID)
			if err != nil {
				return models.RelationshipCounts{}, nil, err
			}
			if overlap > 0 {
				warnings = append(warnings, fmt.Sprintf("%d event link(s) exist on both vendors and will be dropped from the duplicate", overlap))
			}
			return models.RelationshipCounts{EventVendors: duplicate.RelationshipCount - overlap}, warnings, nil
		},
		transfer: func(ctx context.Context, tx db.Store, primaryID, duplicateID string) (models.RelationshipCounts, error) {
			// Overlapping join rows go first so the repoint cannot create a
			// duplicate (event, vendor) pair.
			if _, err := tx.DeleteOverlappingEventVendorsByVendor(ctx, primaryID, duplicateID); err != nil {
				return models.RelationshipCounts{}, err
			}
			moved, err := tx.RepointEventVendorsByVendor(ctx, primaryID, duplicateID)
			if err != nil {
				return models.RelationshipCounts{}, err
			}
			return models.RelationshipCounts{EventVendors: moved}, nil
		},
		remove: func(ctx context.Context, tx db.Store, id string) error {
			return tx.DeleteVendor(ctx, id)
		},
	}
}

func eventStrategy() strategy {
	return strategy{
		noun:            "events",
		favoritableType: models.FavoritableEvent,
		load: func(ctx context.Context, store db.Store, id string) (*models.EntityWithCount, error) {
			event, err := store.GetEventByID(ctx, id)
			if err != nil {
				return nil, ignoreNoRows(err)
			}
			count, err := store.CountEventVendorsByEventID(ctx, id)
			if err != nil {
				return nil, err
			}
			return &models.EntityWithCount{Record: event, RelationshipCount: count}, nil
		},
		preview: func(ctx context.Context, store db.Store, primary, duplicate *models.EntityWithCount, primaryID, duplicateID string) (models.RelationshipCounts, []string, error) {
			var warnings []string
			p := primary.Record.(*models.Event)
			d := duplicate.Record.(*models.Event)
			if p.PromoterID != d.PromoterID {
				warnings = append(warnings, "events have different promoters; the primary event's promoter is kept")
			}
			if differentVenues(p.VenueID, d.VenueID) {
				warnings = append(warnings, "events are at different venues; the primary event's venue is kept")
			}
			overlap, err := store.CountEventVendorOverlap(ctx, primaryID, duplicateID)
			if err != nil {
				return models.RelationshipCounts{}, nil, err
			}
			if overlap > 0 {
				warnings = append(warnings, fmt.Sprintf("%d vendor link(s) exist on both events and will be dropped from the duplicate", overlap))
			}
			return models.RelationshipCounts{EventVendors: duplicate.RelationshipCount - overlap}, warnings, nil
		},
		transfer: func(ctx context.Context, tx db.Store, primaryID, duplicateID string) (models.RelationshipCounts, error) {
			if _, err := tx.DeleteOverlappingEventVendorsByEvent(ctx, primaryID, duplicateID); err != nil {
				return models.RelationshipCounts{}, err
			}
			moved, err := tx.RepointEventVendorsByEvent(ctx, primaryID, duplicateID)
			if err != nil {
				return models.RelationshipCounts{}, err
			}

			// View counts are additive across a merge.
			duplicate, err := tx.GetEventByID(ctx, duplicateID)
			if err != nil {
				return models.RelationshipCounts{}, err
			}
			if duplicate.ViewCount > 0 {
				if err := tx.AddEventViewCount(ctx, primaryID, duplicate.ViewCount); err != nil {
					return models.RelationshipCounts{}, err
				}
			}

			return models.RelationshipCounts{EventVendors: moved}, nil
		},
		remove: func(ctx context.Context, tx db.Store, id string) error {
			return tx.DeleteEvent(ctx, id)
		},
	}
}

func differentOwners(a, b *string) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return *a != *b
}

func differentVenues(a, b *string) bool {
	return differentOwners(a, b)
}
