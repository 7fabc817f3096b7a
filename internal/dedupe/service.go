// Package dedupe scans a record kind for likely duplicates so an operator
// can review and merge them.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fairfinder/internal/models"
	"fairfinder/internal/similarity"
)

// ErrUnknownEntityType is returned when the scan targets an unsupported
// record kind.
var ErrUnknownEntityType = errors.New("unknown entity type")

type DBLayer interface {
	ListVenues(ctx context.Context) ([]models.Venue, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListVendors(ctx context.Context) ([]models.Vendor, error)
	ListPromoters(ctx context.Context) ([]models.Promoter, error)
}

type ScanPublisher interface {
	PublishScanCompleted(summary models.DuplicateScanSummary) error
}

type ScanService struct {
	DB    DBLayer
	Kafka ScanPublisher
}

func NewScanService(db DBLayer, kafka ScanPublisher) *ScanService {
	return &ScanService{DB: db, Kafka: kafka}
}

// FindDuplicates loads every record of the kind and scores all pairs.
// Venues additionally short-circuit on a shared third-party place id.
func (s *ScanService) FindDuplicates(ctx context.Context, entityType models.EntityType, threshold float64) (*models.DuplicateScanResult, error) {
	result := &models.DuplicateScanResult{
		EntityType: entityType,
		Threshold:  threshold,
		Pairs:      []models.DuplicatePair{},
	}

	switch entityType {
	case models.EntityVenues:
		venues, err := s.DB.ListVenues(ctx)
		if err != nil {
			return nil, err
		}
		result.Scanned = len(venues)
		for _, p := range similarity.FindDuplicatePairs(venues, similarity.VenueComparisonString, threshold, similarity.VenuePlaceKey) {
			result.Pairs = append(result.Pairs, models.DuplicatePair{Entity1: p.Entity1, Entity2: p.Entity2, Similarity: p.Similarity})
		}
	case models.EntityEvents:
		events, err := s.DB.ListEvents(ctx)
		if err != nil {
			return nil, err
		}
		result.Scanned = len(events)
		for _, p := range similarity.FindDuplicatePairs(events, similarity.EventComparisonString, threshold, nil) {
			result.Pairs = append(result.Pairs, models.DuplicatePair{Entity1: p.Entity1, Entity2: p.Entity2, Similarity: p.Similarity})
		}
	case models.EntityVendors:
		vendors, err := s.DB.ListVendors(ctx)
		if err != nil {
			return nil, err
		}
		result.Scanned = len(vendors)
		for _, p := range similarity.FindDuplicatePairs(vendors, similarity.VendorComparisonString, threshold, nil) {
			result.Pairs = append(result.Pairs, models.DuplicatePair{Entity1: p.Entity1, Entity2: p.Entity2, Similarity: p.Similarity})
		}
	case models.EntityPromoters:
		promoters, err := s.DB.ListPromoters(ctx)
		if err != nil {
			return nil, err
		}
		result.Scanned = len(promoters)
		for _, p := range similarity.FindDuplicatePairs(promoters, similarity.PromoterComparisonString, threshold, nil) {
			result.Pairs = append(result.Pairs, models.DuplicatePair{Entity1: p.Entity1, Entity2: p.Entity2, Similarity: p.Similarity})
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}

	if s.Kafka != nil {
		// Best effort; the scan result is already in hand.
		_ = s.Kafka.PublishScanCompleted(models.DuplicateScanSummary{
			EntityType: entityType,
			Threshold:  threshold,
			Scanned:    result.Scanned,
			PairsFound: len(result.Pairs),
			ScannedAt:  time.Now(),
		})
	}

	return result, nil
}
