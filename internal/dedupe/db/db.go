// Package db loads the candidate sets for duplicate scans.
package db

import (
	"context"

	"github.com/uptrace/bun"

	"fairfinder/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

func (d *DB) ListVenues(ctx context.Context) ([]models.Venue, error) {
	var venues []models.Venue
	err := d.Bun.NewSelect().
		Model(&venues).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return venues, nil
}

// ListEvents loads events with their venue so the comparison string can use
// the venue name.
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Relation("Venue").
		Order("event.name").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DB) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	err := d.Bun.NewSelect().
		Model(&vendors).
		Order("business_name").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return vendors, nil
}

func (d *DB) ListPromoters(ctx context.Context) ([]models.Promoter, error) {
	var promoters []models.Promoter
	err := d.Bun.NewSelect().
		Model(&promoters).
		Order("company_name").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return promoters, nil
}
