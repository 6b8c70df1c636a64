package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/logger"
	"github.com/tejashwikalptaru/audiotracker/internal/testutil"
)

var playedAt = time.Date(2024, 3, 9, 21, 15, 0, 0, time.UTC)

// Helper to open a store on a fresh sqlite file
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "stats.db"),
	}, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_FindMissing(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Find(context.Background(), "Queen", "Heroes")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestStore_InsertFindUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := domain.PlayCountRecord{Artist: "Bowie", Title: "Heroes", PlayCount: 1, LastPlayedAt: playedAt}
	require.NoError(t, store.Insert(ctx, rec))
	assert.ErrorIs(t, store.Insert(ctx, rec), domain.ErrRecordExists)

	found, err := store.Find(ctx, "Bowie", "Heroes")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.PlayCount)
	assert.True(t, playedAt.Equal(found.LastPlayedAt))

	rec.PlayCount = 5
	rec.LastPlayedAt = playedAt.Add(time.Minute)
	require.NoError(t, store.Update(ctx, rec))

	found, err = store.Find(ctx, "Bowie", "Heroes")
	require.NoError(t, err)
	assert.Equal(t, int64(5), found.PlayCount)
	assert.True(t, playedAt.Add(time.Minute).Equal(found.LastPlayedAt))

	missing := domain.PlayCountRecord{Artist: "Nobody", Title: "Nothing", PlayCount: 1, LastPlayedAt: playedAt}
	assert.ErrorIs(t, store.Update(ctx, missing), domain.ErrRecordNotFound)
}

func TestStore_KeysAreExact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "Queen", "Heroes", playedAt)
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "Bowie", "Heroes", playedAt)
	require.NoError(t, err)

	_, err = store.Find(ctx, "Queen", "Under Pressure")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	records, err := store.ListByCountDesc(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStore_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Upsert(ctx, "Bowie", "Heroes", playedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.PlayCount)
	assert.True(t, playedAt.Equal(first.LastPlayedAt))

	later := playedAt.Add(time.Hour)
	second, err := store.Upsert(ctx, "Bowie", "Heroes", later)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.PlayCount)
	assert.True(t, later.Equal(second.LastPlayedAt))
}

func TestStore_ConcurrentUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const plays = 20
	var wg sync.WaitGroup
	for i := 0; i < plays; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Upsert(ctx, "Bowie", "Heroes", playedAt)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := store.Find(ctx, "Bowie", "Heroes")
	require.NoError(t, err)
	assert.Equal(t, int64(plays), rec.PlayCount)
}

func TestStore_ListByCountDesc(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "two", "three", "three", "three", "tie"} {
		_, err := store.Upsert(ctx, "Artist", title, playedAt)
		require.NoError(t, err)
	}

	records, err := store.ListByCountDesc(ctx)
	require.NoError(t, err)

	var titles []string
	for _, r := range records {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"three", "two", "one", "tie"}, titles)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	dsn := filepath.Join(t.TempDir(), "stats.db")
	ctx := context.Background()

	store, err := Open(Config{Driver: DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "Bowie", "Heroes", playedAt)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(Config{Driver: DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Find(ctx, "Bowie", "Heroes")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.PlayCount)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"}, nil)

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
