// Package merge previews and executes duplicate-record merges. A merge
// always runs Preview → operator decision → Execute; Execute is a single
// transaction that repoints relationships, transfers favorites, aggregates
// counters and deletes the duplicate.
package merge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"fairfinder/internal/merge/db"
	"fairfinder/internal/models"
)

var (
	// ErrUnknownEntityType is returned before any I/O when the entity-type
	// tag is not one of the four supported kinds.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrNotFound wraps every missing-record error so handlers can map it
	// to a 404.
	ErrNotFound = errors.New("not found")

	// ErrMergeInProgress is returned when another merge sharing one of the
	// two ids holds the pair lock.
	ErrMergeInProgress = errors.New("another merge involving these records is in progress")

	errSameRecord = errors.New("primary and duplicate must be different records")
)

// MergeLock serializes merges that share a record id.
type MergeLock interface {
	LockMerge(entityType string, ids []string, token string) (bool, error)
	UnlockMerge(entityType string, ids []string, token string) error
}

// MergePublisher streams completed merges to downstream consumers.
type MergePublisher interface {
	PublishMergeCompleted(record models.MergeRecord) error
}

type MergeService struct {
	DB    db.Store
	Lock  MergeLock
	Kafka MergePublisher

	strategies map[models.EntityType]strategy
}

func NewMergeService(store db.Store, lock MergeLock, kafka MergePublisher) *MergeService {
	s := &MergeService{DB: store, Lock: lock, Kafka: kafka}
	s.strategies = map[models.EntityType]strategy{
		models.EntityVenues:    venueStrategy(),
		models.EntityEvents:    eventStrategy(),
		models.EntityVendors:   vendorStrategy(),
		models.EntityPromoters: promoterStrategy(),
	}
	return s
}

// GetMergePreview loads both records and reports what a merge would
// transfer, plus advisory warnings. Read-only; safe to race with anything.
func (s *MergeService) GetMergePreview(ctx context.Context, entityType models.EntityType, primaryID, duplicateID string) (*models.MergePreview, error) {
	strat, ok := s.strategies[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
	if primaryID == duplicateID {
		return nil, errSameRecord
	}

	primary, duplicate, err := s.loadPair(ctx, strat, primaryID, duplicateID)
	if err != nil {
		return nil, err
	}

	counts, warnings, err := strat.preview(ctx, s.DB, primary, duplicate, primaryID, duplicateID)
	if err != nil {
		return nil, err
	}

	favorites, err := s.DB.CountFavorites(ctx, strat.favoritableType, duplicateID)
	if err != nil {
		return nil, err
	}
	counts.Favorites = favorites

	if warnings == nil {
		warnings = []string{}
	}

	return &models.MergePreview{
		Primary:                 *primary,
		Duplicate:               *duplicate,
		RelationshipsToTransfer: counts,
		Warnings:                warnings,
		// Warnings flag risk but never forbid; no observed condition turns
		// this off.
		CanMerge: true,
	}, nil
}

// ExecuteMerge moves every relationship off the duplicate and deletes it,
// all inside one transaction. mergedBy stamps the audit record; empty falls
// back to "system".
func (s *MergeService) ExecuteMerge(ctx context.Context, entityType models.EntityType, primaryID, duplicateID, mergedBy string) (*models.MergeResult, error) {
	strat, ok := s.strategies[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
	if primaryID == duplicateID {
		return nil, errSameRecord
	}

	if _, _, err := s.loadPair(ctx, strat, primaryID, duplicateID); err != nil {
		return nil, err
	}

	if s.Lock != nil {
		ids := []string{primaryID, duplicateID}
		sort.Strings(ids)
		token := uuid.New().String()
		locked, err := s.Lock.LockMerge(string(entityType), ids, token)
		if err != nil {
			return nil, fmt.Errorf("merge lock error: %w", err)
		}
		if !locked {
			return nil, ErrMergeInProgress
		}
		defer func() {
			_ = s.Lock.UnlockMerge(string(entityType), ids, token)
		}()
	}

	if mergedBy == "" {
		mergedBy = "system"
	}

	var transferred models.RelationshipCounts
	var record models.MergeRecord
	err := s.DB.RunInTx(ctx, func(tx db.Store) error {
		counts, err := strat.transfer(ctx, tx, primaryID, duplicateID)
		if err != nil {
			return err
		}

		favorites, err := transferFavorites(ctx, tx, strat.favoritableType, primaryID, duplicateID)
		if err != nil {
			return err
		}
		counts.Favorites = favorites

		if err := strat.remove(ctx, tx, duplicateID); err != nil {
			return err
		}

		record = models.MergeRecord{
			ID:           uuid.New().String(),
			EntityType:   string(entityType),
			PrimaryID:    primaryID,
			DuplicateID:  duplicateID,
			Events:       counts.Events,
			EventVendors: counts.EventVendors,
			Favorites:    counts.Favorites,
			MergedBy:     mergedBy,
			CreatedAt:    time.Now(),
		}
		if err := tx.InsertMergeRecord(ctx, &record); err != nil {
			return err
		}

		transferred = counts
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge transaction failed: %w", err)
	}

	merged, err := strat.load(ctx, s.DB, primaryID)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return nil, strat.notFoundErr()
	}

	if s.Kafka != nil {
		// Post-commit notification; a publish failure never unwinds the merge.
		_ = s.Kafka.PublishMergeCompleted(record)
	}

	return &models.MergeResult{
		Success:                  true,
		MergedEntity:             *merged,
		TransferredRelationships: transferred,
		DeletedID:                duplicateID,
	}, nil
}

func (s *MergeService) loadPair(ctx context.Context, strat strategy, primaryID, duplicateID string) (*models.EntityWithCount, *models.EntityWithCount, error) {
	primary, err := strat.load(ctx, s.DB, primaryID)
	if err != nil {
		return nil, nil, err
	}
	duplicate, err := strat.load(ctx, s.DB, duplicateID)
	if err != nil {
		return nil, nil, err
	}
	if primary == nil || duplicate == nil {
		return nil, nil, strat.notFoundErr()
	}
	return primary, duplicate, nil
}

// transferFavorites repoints the duplicate's favorites to the primary for
// users who do not already favorite the primary, then deletes the colliding
// leftovers. Keeps (user, type, id) unique without upsert semantics.
func transferFavorites(ctx context.Context, tx db.Store, favoritableType, primaryID, duplicateID string) (int, error) {
	existing, err := tx.ListFavoriteUserIDs(ctx, favoritableType, primaryID)
	if err != nil {
		return 0, err
	}
	moved, err := tx.RepointFavorites(ctx, favoritableType, primaryID, duplicateID, existing)
	if err != nil {
		return 0, err
	}
	if _, err := tx.DeleteFavoritesFor(ctx, favoritableType, duplicateID); err != nil {
		return 0, err
	}
	return moved, nil
}

// ignoreNoRows maps a missing row to nil so callers can produce the
// kind-specific not-found error.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
