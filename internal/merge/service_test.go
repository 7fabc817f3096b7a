package merge_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"fairfinder/internal/merge"
	"fairfinder/internal/merge/db"
	"fairfinder/internal/models"
)

// Mock implementations for testing

type MockMergeLock struct {
	lockingSucceeds bool
	lockErr         error
	lockedType      string
	lockedIDs       []string
	unlocked        bool
}

func NewMockMergeLock() *MockMergeLock {
	return &MockMergeLock{lockingSucceeds: true}
}

func (m *MockMergeLock) LockMerge(entityType string, ids []string, token string) (bool, error) {
	if m.lockErr != nil {
		return false, m.lockErr
	}
	m.lockedType = entityType
	m.lockedIDs = append([]string{}, ids...)
	return m.lockingSucceeds, nil
}

func (m *MockMergeLock) UnlockMerge(entityType string, ids []string, token string) error {
	m.unlocked = true
	return nil
}

type MockMergePublisher struct {
	published []models.MergeRecord
}

func (m *MockMergePublisher) PublishMergeCompleted(record models.MergeRecord) error {
	m.published = append(m.published, record)
	return nil
}

func setupStore(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Venue)(nil),
		(*models.Promoter)(nil),
		(*models.Vendor)(nil),
		(*models.Event)(nil),
		(*models.EventVendor)(nil),
		(*models.Favorite)(nil),
		(*models.MergeRecord)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	return db.New(bunDB)
}

func strPtr(s string) *string { return &s }

func mustInsert(t *testing.T, store *db.DB, model interface{}) {
	t.Helper()
	_, err := store.Bun.NewInsert().Model(model).Exec(context.Background())
	require.NoError(t, err)
}

func seedVenuePair(t *testing.T, store *db.DB) {
	t.Helper()
	now := time.Now()
	mustInsert(t, store, &models.Venue{ID: "venue1", Name: "Riverside Fairgrounds", CreatedAt: now})
	mustInsert(t, store, &models.Venue{ID: "venue2", Name: "Riverside Fair Grounds", CreatedAt: now})
	mustInsert(t, store, &models.Promoter{ID: "promo1", CompanyName: "Heartland Events", CreatedAt: now})
	mustInsert(t, store, &models.Event{
		ID: "event1", Name: "Fair A", VenueID: strPtr("venue2"), PromoterID: "promo1",
		StartDate: now, EndDate: now.AddDate(0, 0, 1), CreatedAt: now,
	})
	mustInsert(t, store, &models.Event{
		ID: "event2", Name: "Fair B", VenueID: strPtr("venue2"), PromoterID: "promo1",
		StartDate: now, EndDate: now.AddDate(0, 0, 1), CreatedAt: now,
	})
	// user1 favorites both venues, user2 only the duplicate.
	mustInsert(t, store, &models.Favorite{ID: "fav1", UserID: "user1", FavoritableType: models.FavoritableVenue, FavoritableID: "venue1", CreatedAt: now})
	mustInsert(t, store, &models.Favorite{ID: "fav2", UserID: "user1", FavoritableType: models.FavoritableVenue, FavoritableID: "venue2", CreatedAt: now})
	mustInsert(t, store, &models.Favorite{ID: "fav3", UserID: "user2", FavoritableType: models.FavoritableVenue, FavoritableID: "venue2", CreatedAt: now})
}

func TestGetMergePreviewUnknownEntityType(t *testing.T) {
	service := merge.NewMergeService(setupStore(t), nil, nil)

	_, err := service.GetMergePreview(context.Background(), models.EntityType("bogus"), "a", "b")
	assert.ErrorIs(t, err, merge.ErrUnknownEntityType)
}

func TestGetMergePreviewSameRecord(t *testing.T) {
	service := merge.NewMergeService(setupStore(t), nil, nil)

	_, err := service.GetMergePreview(context.Background(), models.EntityVenues, "venue1", "venue1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "different")
}

func TestGetMergePreviewNotFound(t *testing.T) {
	store := setupStore(t)
	service := merge.NewMergeService(store, nil, nil)

	_, err := service.GetMergePreview(context.Background(), models.EntityVenues, "missing1", "missing2")
	assert.ErrorIs(t, err, merge.ErrNotFound)
	assert.Contains(t, err.Error(), "one or both venues")

	_, err = service.GetMergePreview(context.Background(), models.EntityVendors, "missing1", "missing2")
	assert.ErrorIs(t, err, merge.ErrNotFound)
	assert.Contains(t, err.Error(), "one or both vendors")
}

func TestGetMergePreviewVenue(t *testing.T) {
	store := setupStore(t)
	seedVenuePair(t, store)
	service := merge.NewMergeService(store, nil, nil)

	preview, err := service.GetMergePreview(context.Background(), models.EntityVenues, "venue1", "venue2")
	require.NoError(t, err)

	assert.Equal(t, 2, preview.RelationshipsToTransfer.Events)
	assert.Equal(t, 2, preview.RelationshipsToTransfer.Favorites)
	assert.True(t, preview.CanMerge)
	assert.NotNil(t, preview.Warnings)
	assert.Empty(t, preview.Warnings)
	assert.Equal(t, 0, preview.Primary.RelationshipCount)
	assert.Equal(t, 2, preview.Duplicate.RelationshipCount)
}

func TestGetMergePreviewVendorWarnings(t *testing.T) {
	store := setupStore(t)
	now := time.Now()
	mustInsert(t, store, &models.Venue{ID: "venue1", Name: "Riverside Fairgrounds", CreatedAt: now})
	mustInsert(t, store, &models.Promoter{ID: "promo1", CompanyName: "Heartland Events", CreatedAt: now})
	mustInsert(t, store, &models.Event{
		ID: "event1", Name: "Fair A", VenueID: strPtr("venue1"), PromoterID: "promo1",
		StartDate: now, EndDate: now.AddDate(0, 0, 1), CreatedAt: now,
	})
	mustInsert(t, store, &models.Event{
		ID: "event2", Name: "Fair B", VenueID: strPtr("venue1"), PromoterID: "promo1",
		StartDate: now, EndDate: now.AddDate(0, 0, 1), CreatedAt: now,
	})
	mustInsert(t, store, &models.Vendor{ID: "vendor1", BusinessName: "Smoky Joe's BBQ", UserID: strPtr("user1"), CreatedAt: now})
	mustInsert(t, store, &models.Vendor{ID: "vendor2", BusinessName: "Smokey Joes BBQ", UserID: strPtr("user2"), CreatedAt: now})
	// event1 links both vendors, event2 only the duplicate.
	mustInsert(t, store, &models.EventVendor{ID: "ev1", EventID: "event1", VendorID: "vendor1", CreatedAt: now})
	mustInsert(t, store, &models.EventVendor{ID: "ev2", EventID: "event1", VendorID: "vendor2", CreatedAt: now})
	mustInsert(t, store, &models.EventVendor{ID: "ev3", EventID: "event2", VendorID: "vendor2", CreatedAt: now})

	service := merge.NewMergeService(store, nil, nil)

	preview, err := service.GetMergePreview(context.Background(), models.EntityVendors, "vendor1", "vendor2")
	require.NoError(t, err)

	// The overlapping link is dropped, not transferred.
	assert.Equal(t, 1, preview.RelationshipsToTransfer.EventVendors)
	assert.Len(t, preview.Warnings, 2)
	assert.Contains(t, preview.Warnings[0], "different user accounts")
	assert.Contains(t, preview.Warnings[1], "will be dropped")
	assert.True(t, preview.CanMerge)
}

func TestGetMergePreviewEventWarnings(t *testing.T) {
	store := setupStore(t)
	now := time.Now()
	mustInsert(t, store, &models.Venue{ID: "venue1", Name: "Riverside Fairgrounds", CreatedAt: now})
	mustInsert(t, store, &models.Venue{ID: "venue2", Name: "Lakeview Expo Center", CreatedAt: now})
	mustInsert(t, store, &models.Promoter{ID: "promo1", CompanyName: "Heartland Events", CreatedAt: now})
	mustInsert(t, store, &models.Promoter{ID: "promo2", CompanyName: "Prairie Promotions", CreatedAt: now})
	mustInsert(t, store, &models.Event{
		ID: "event1", Name: "Fair A", VenueID: strPtr("venue1"), PromoterID: "promo1",
		StartDate: now, EndDate: now.AddDate(0, 0, 1), CreatedAt: now,
	})
	mustInsert(t, store, &models.Event{
		ID: "event2", Name: "Fair A Again", VenueID: strPtr("venue2"), PromoterID: "promo2",
		StartDate: now, EndDate: now.AddDate(0, 0, 1), CreatedAt: now,
	})

	service := merge.NewMergeService(store, nil, nil)

	preview, err := service.GetMergePreview(context.Background(), models.EntityEvents, "event1", "event2")
	require.NoError(t, err)

	assert.Len(t, preview.Warnings, 2)
	assert.Contains(t, preview.Warnings[0], "different promoters")
	assert.Contains(t, preview.Warnings[1], "different venues")
	assert.True(t, preview.CanMerge)
}

func TestExecuteMergeVenue(t *testing.T) {
	store := setupStore(t)
	seedVenuePair(t, store)
	lock := NewMockMergeLock()
	publisher := &MockMergePublisher{}
	service := merge.NewMergeService(store, lock, publisher)

	ctx := context.Background()
	result, err := service.ExecuteMerge(ctx, models.EntityVenues, "venue1", "venue2", "admin1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "venue2", result.DeletedID)
	assert.Equal(t, 2, result.TransferredRelationships.Events)
	// user1 already favorites the primary, so only user2's favorite moves.
	assert.Equal(t, 1, result.TransferredRelationships.Favorites)
	assert.Equal(t, 2, result.MergedEntity.RelationshipCount)

	merged, ok := result.MergedEntity.Record.(*models.Venue)
	require.True(t, ok)
	assert.Equal(t, "venue1", merged.ID)

	// The duplicate is gone.
	_, err = store.GetVenueByID(ctx, "venue2")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// Both events point at the primary; favorites stay unique per user.
	events, err := store.CountEventsByVenueID(ctx, "venue1")
	require.NoError(t, err)
	assert.Equal(t, 2, events)

	favorites, err := store.CountFavorites(ctx, models.FavoritableVenue, "venue1")
	require.NoError(t, err)
	assert.Equal(t, 2, favorites)

	leftovers, err := store.CountFavorites(ctx, models.FavoritableVenue, "venue2")
	require.NoError(t, err)
	assert.Equal(t, 0, leftovers)

	// Lock is taken on the sorted id pair and released afterwards.
	assert.Equal(t, "venues", lock.lockedType)
	assert.Equal(t, []string{"venue1", "venue2"}, lock.lockedIDs)
	assert.True(t, lock.unlocked)

	// Audit record written inside the transaction and published after it.
	var record models.MergeRecord
	require.NoError(t, store.Bun.NewSelect().Model(&record).Where("primary_id = ?", "venue1").Scan(ctx))
	assert.Equal(t, "venues", record.EntityType)
	assert.Equal(t, "venue2", record.DuplicateID)
	assert.Equal(t, 2, record.Events)
	assert.Equal(t, 1, record.Favorites)
	assert.Equal(t, "admin1", record.MergedBy)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, record.ID, publisher.published[0].ID)
}

func TestExecuteMergeEventAddsViewCounts(t *testing.T) {
	store := setupStore(t)
	now := time.Now()
	mustInsert(t, store, &models.Venue{ID: "venue1", Name: "Riverside Fairgrounds", CreatedAt: now})
	mustInsert(t, store, &models.Promoter{ID: "promo1", CompanyName: "Heartland Events", CreatedAt: now})
	mustInsert(t, store, &models.Event{
		ID: "event1", Name: "Summer County Fair", VenueID: strPtr("venue1"), PromoterID: "promo1",
		StartDate: now, EndDate: now.AddDate(0, 0, 1), ViewCount: 100, CreatedAt: now,
	})
	mustInsert(t, store, &models.Event{
		ID: "event2", Name: "Summer County Fair", VenueID: strPtr("venue1"), PromoterID: "promo1",
		StartDate: now, EndDate: now.AddDate(0, 0, 1), ViewCount: 50, CreatedAt: now,
	})
	mustInsert(t, store, &models.Vendor{ID: "vendor1", BusinessName: "Smoky Joe's BBQ", CreatedAt: now})
	mustInsert(t, store, &models.EventVendor{ID: "ev1", EventID: "event2", VendorID: "vendor1", CreatedAt: now})

	service := merge.NewMergeService(store, NewMockMergeLock(), nil)

	ctx := context.Background()
	result, err := service.ExecuteMerge(ctx, models.EntityEvents, "event1", "event2", "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.TransferredRelationships.EventVendors)

	merged, ok := result.MergedEntity.Record.(*models.Event)
	require.True(t, ok)
	assert.Equal(t, 150, merged.ViewCount)

	_, err = store.GetEventByID(ctx, "event2")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// An empty actor is recorded as "system".
	var record models.MergeRecord
	require.NoError(t, store.Bun.NewSelect().Model(&record).Where("primary_id = ?", "event1").Scan(ctx))
	assert.Equal(t, "system", record.MergedBy)
}

func TestExecuteMergeLockConflict(t *testing.T) {
	store := setupStore(t)
	seedVenuePair(t, store)
	lock := NewMockMergeLock()
	lock.lockingSucceeds = false
	service := merge.NewMergeService(store, lock, nil)

	ctx := context.Background()
	_, err := service.ExecuteMerge(ctx, models.EntityVenues, "venue1", "venue2", "admin1")
	assert.ErrorIs(t, err, merge.ErrMergeInProgress)

	// Nothing was touched.
	_, err = store.GetVenueByID(ctx, "venue2")
	assert.NoError(t, err)
}

func TestExecuteMergeLockError(t *testing.T) {
	store := setupStore(t)
	seedVenuePair(t, store)
	lock := NewMockMergeLock()
	lock.lockErr = errors.New("redis down")
	service := merge.NewMergeService(store, lock, nil)

	_, err := service.ExecuteMerge(context.Background(), models.EntityVenues, "venue1", "venue2", "admin1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "merge lock error")
}

func TestExecuteMergeNotFound(t *testing.T) {
	store := setupStore(t)
	service := merge.NewMergeService(store, nil, nil)

	_, err := service.ExecuteMerge(context.Background(), models.EntityPromoters, "missing1", "missing2", "admin1")
	assert.ErrorIs(t, err, merge.ErrNotFound)
	assert.Contains(t, err.Error(), "one or both promoters")
}
