// Package db is the data layer behind merge previews and executes. All
// statements run against a bun.IDB so the same methods work on the root
// connection and inside a transaction.
package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"fairfinder/internal/models"
)

// Store is what the merge service needs from persistence. RunInTx hands the
// callback a Store scoped to one transaction; any error rolls the whole
// merge back.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	GetVenueByID(ctx context.Context, id string) (*models.Venue, error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	GetVendorByID(ctx context.Context, id string) (*models.Vendor, error)
	GetPromoterByID(ctx context.Context, id string) (*models.Promoter, error)

	CountEventsByVenueID(ctx context.Context, venueID string) (int, error)
	CountEventsByPromoterID(ctx context.Context, promoterID string) (int, error)
	CountEventVendorsByEventID(ctx context.Context, eventID string) (int, error)
	CountEventVendorsByVendorID(ctx context.Context, vendorID string) (int, error)
	CountFavorites(ctx context.Context, favoritableType, favoritableID string) (int, error)
	CountVendorEventOverlap(ctx context.Context, primaryVendorID, duplicateVendorID string) (int, error)
	CountEventVendorOverlap(ctx context.Context, primaryEventID, duplicateEventID string) (int, error)

	RepointEventVenues(ctx context.Context, primaryVenueID, duplicateVenueID string) (int, error)
	RepointEventPromoters(ctx context.Context, primaryPromoterID, duplicatePromoterID string) (int, error)
	DeleteOverlappingEventVendorsByVendor(ctx context.Context, primaryVendorID, duplicateVendorID string) (int, error)
	RepointEventVendorsByVendor(ctx context.Context, primaryVendorID, duplicateVendorID string) (int, error)
	DeleteOverlappingEventVendorsByEvent(ctx context.Context, primaryEventID, duplicateEventID string) (int, error)
	RepointEventVendorsByEvent(ctx context.Context, primaryEventID, duplicateEventID string) (int, error)

	ListFavoriteUserIDs(ctx context.Context, favoritableType, favoritableID string) ([]string, error)
	RepointFavorites(ctx context.Context, favoritableType, primaryID, duplicateID string, excludeUserIDs []string) (int, error)
	DeleteFavoritesFor(ctx context.Context, favoritableType, favoritableID string) (int, error)

	AddEventViewCount(ctx context.Context, eventID string, delta int) error

	DeleteVenue(ctx context.Context, id string) error
	DeleteEvent(ctx context.Context, id string) error
	DeleteVendor(ctx context.Context, id string) error
	DeletePromoter(ctx context.Context, id string) error

	InsertMergeRecord(ctx context.Context, record *models.MergeRecord) error
}

type DB struct {
	Bun bun.IDB
}

var _ Store = (*DB)(nil)

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// RunInTx opens a transaction and re-scopes the store to it. Calling it on
// an already transaction-scoped store just runs the callback in place.
func (d *DB) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	root, ok := d.Bun.(*bun.DB)
	if !ok {
		return fn(d)
	}
	return root.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(&DB{Bun: tx})
	})
}

// ---------------- LOOKUPS ----------------

func (d *DB) GetVenueByID(ctx context.Context, id string) (*models.Venue, error) {
	var venue models.Venue
	err := d.Bun.NewSelect().
		Model(&venue).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) GetVendorByID(ctx context.Context, id string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := d.Bun.NewSelect().
		Model(&vendor).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (d *DB) GetPromoterByID(ctx context.Context, id string) (*models.Promoter, error) {
	var promoter models.Promoter
	err := d.Bun.NewSelect().
		Model(&promoter).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &promoter, nil
}

// ---------------- COUNTS ----------------

func (d *DB) CountEventsByVenueID(ctx context.Context, venueID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("venue_id = ?", venueID).
		Count(ctx)
}

func (d *DB) CountEventsByPromoterID(ctx context.Context, promoterID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("promoter_id = ?", promoterID).
		Count(ctx)
}

func (d *DB) CountEventVendorsByEventID(ctx context.Context, eventID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.EventVendor)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
}

func (d *DB) CountEventVendorsByVendorID(ctx context.Context, vendorID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.EventVendor)(nil)).
		Where("vendor_id = ?", vendorID).
		Count(ctx)
}

func (d *DB) CountFavorites(ctx context.Context, favoritableType, favoritableID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Favorite)(nil)).
		Where("favoritable_type = ?", favoritableType).
		Where("favoritable_id = ?", favoritableID).
		Count(ctx)
}

// CountVendorEventOverlap counts events already linked to both vendors.
// These join rows get deleted during a merge instead of repointed.
func (d *DB) CountVendorEventOverlap(ctx context.Context, primaryVendorID, duplicateVendorID string) (int, error) {
	sub := d.Bun.NewSelect().
		Model((*models.EventVendor)(nil)).
		Column("event_id").
		Where("vendor_id = ?", primaryVendorID)
	return d.Bun.NewSelect().
		Model((*models.EventVendor)(nil)).
		Where("vendor_id = ?", duplicateVendorID).
		Where("event_id IN (?)", sub).
		Count(ctx)
}

// CountEventVendorOverlap counts vendors already linked to both events.
func (d *DB) CountEventVendorOverlap(ctx context.Context, primaryEventID, duplicateEventID string) (int, error) {
	sub := d.Bun.NewSelect().
		Model((*models.EventVendor)(nil)).
		Column("vendor_id").
		Where("event_id = ?", primaryEventID)
	return d.Bun.NewSelect().
		Model((*models.EventVendor)(nil)).
		Where("event_id = ?", duplicateEventID).
		Where("vendor_id IN (?)", sub).
		Count(ctx)
}

// ---------------- REPOINTING ----------------

func (d *DB) RepointEventVenues(ctx context.Context, primaryVenueID, duplicateVenueID string) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("venue_id = ?", primaryVenueID).
		Where("venue_id = ?", duplicateVenueID).
		Exec(ctx)
	return rowsAffected(res, err)
}

func (d *DB) RepointEventPromoters(ctx context.Context, primaryPromoterID, duplicatePromoterID string) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("promoter_id = ?", primaryPromoterID).
		Where("promoter_id = ?", duplicatePromoterID).
		Exec(ctx)
	return rowsAffected(res, err)
}

// DeleteOverlappingEventVendorsByVendor removes the duplicate vendor's join
// rows whose event already links the primary vendor. Repointing those rows
// would violate the (event, vendor) uniqueness invariant.
func (d *DB) DeleteOverlappingEventVendorsByVendor(ctx context.Context, primaryVendorID, duplicateVendorID string) (int, error) {
	sub := d.Bun.NewSelect().
		Model((*models.EventVendor)(nil)).
		Column("event_id").
		Where("vendor_id = ?", primaryVendorID)
	res, err := d.Bun.NewDelete().
		Model((*models.EventVendor)(nil)).
		Where("vendor_id = ?", duplicateVendorID).
		Where("event_id IN (?)", sub).
		Exec(ctx)
	return rowsAffected(res, err)
}

func (d *DB) RepointEventVendorsByVendor(ctx context.Context, primaryVendorID, duplicateVendorID string) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.EventVendor)(nil)).
		Set("vendor_id = ?", primaryVendorID).
		Where("vendor_id = ?", duplicateVendorID).
		Exec(ctx)
	return rowsAffected(res, err)
}

func (d *DB) DeleteOverlappingEventVendorsByEvent(ctx context.Context, primaryEventID, duplicateEventID string) (int, error) {
	sub := d.Bun.NewSelect().
		Model((*models.EventVendor)(nil)).
		Column("vendor_id").
		Where("event_id = ?", primaryEventID)
	res, err := d.Bun.NewDelete().
		Model((*models.EventVendor)(nil)).
		Where("event_id = ?", duplicateEventID).
		Where("vendor_id IN (?)", sub).
		Exec(ctx)
	return rowsAffected(res, err)
}

func (d *DB) RepointEventVendorsByEvent(ctx context.Context, primaryEventID, duplicateEventID string) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.EventVendor)(nil)).
		Set("event_id = ?", primaryEventID).
		Where("event_id = ?", duplicateEventID).
		Exec(ctx)
	return rowsAffected(res, err)
}

// ---------------- FAVORITES ----------------

func (d *DB) ListFavoriteUserIDs(ctx context.Context, favoritableType, favoritableID string) ([]string, error) {
	var userIDs []string
	err := d.Bun.NewSelect().
		Model((*models.Favorite)(nil)).
		Column("user_id").
		Where("favoritable_type = ?", favoritableType).
		Where("favoritable_id = ?", favoritableID).
		Scan(ctx, &userIDs)
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// RepointFavorites moves the duplicate's favorites onto the primary except
// for the listed users, who already favorite the primary.
func (d *DB) RepointFavorites(ctx context.Context, favoritableType, primaryID, duplicateID string, excludeUserIDs []string) (int, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Favorite)(nil)).
		Set("favoritable_id = ?", primaryID).
		Where("favoritable_type = ?", favoritableType).
		Where("favoritable_id = ?", duplicateID)
	if len(excludeUserIDs) > 0 {
		q = q.Where("user_id NOT IN (?)", bun.In(excludeUserIDs))
	}
	res, err := q.Exec(ctx)
	return rowsAffected(res, err)
}

// DeleteFavoritesFor drops any favorites still pointing at the target,
// i.e. the colliding rows left behind after RepointFavorites.
func (d *DB) DeleteFavoritesFor(ctx context.Context, favoritableType, favoritableID string) (int, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Favorite)(nil)).
		Where("favoritable_type = ?", favoritableType).
		Where("favoritable_id = ?", favoritableID).
		Exec(ctx)
	return rowsAffected(res, err)
}

// ---------------- COUNTERS ----------------

// AddEventViewCount bumps the view counter in place so the increment stays
// atomic even outside the merge lock.
func (d *DB) AddEventViewCount(ctx context.Context, eventID string, delta int) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("view_count = view_count + ?", delta).
		Where("id = ?", eventID).
		Exec(ctx)
	return err
}

// ---------------- DELETES ----------------

func (d *DB) DeleteVenue(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Venue)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) DeleteVendor(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Vendor)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) DeletePromoter(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Promoter)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- AUDIT ----------------

func (d *DB) InsertMergeRecord(ctx context.Context, record *models.MergeRecord) error {
	_, err := d.Bun.NewInsert().Model(record).Exec(ctx)
	return err
}

func rowsAffected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
