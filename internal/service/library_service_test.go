package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/logger"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
	"github.com/tejashwikalptaru/audiotracker/internal/testutil"
)

// fakeSource is a scriptable TrackSource.
type fakeSource struct {
	mu      sync.Mutex
	tracks  []domain.TrackRef
	err     error
	block   chan struct{}
	scans   int
	changes chan struct{}
}

func (f *fakeSource) Scan(ctx context.Context) ([]domain.TrackRef, error) {
	f.mu.Lock()
	f.scans++
	block, tracks, err := f.block, f.tracks, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]domain.TrackRef(nil), tracks...), nil
}

func (f *fakeSource) set(tracks ...domain.TrackRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = tracks
}

func (f *fakeSource) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

// watchableSource adds change notifications to fakeSource.
type watchableSource struct {
	*fakeSource
}

func (w watchableSource) Changes() <-chan struct{} { return w.changes }
func (w watchableSource) Close() error             { return nil }

// Helper to create a test library service
func newTestLibraryService(source ports.TrackSource) (*LibraryService, *eventLog) {
	bus := eventbus.NewSyncEventBus(nil)
	events := &eventLog{}
	bus.SubscribeAll(events.add)
	return NewLibraryService(logger.NewTestLogger(), source, bus), events
}

func TestLibraryService_Refresh(t *testing.T) {
	noSource := createTestTrack("x", "Ghost", "Nobody")
	noSource.Source = ""
	source := &fakeSource{tracks: append(abc(), noSource)}
	service, events := newTestLibraryService(source)

	assert.Empty(t, service.Tracks())

	tracks, err := service.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, tracks, 3)
	assert.Equal(t, tracks, service.Tracks())

	assert.Equal(t, 1, events.count(domain.EventScanStarted))
	completed := events.last(domain.EventScanCompleted).(domain.ScanCompletedEvent)
	assert.Equal(t, 3, completed.TracksFound)
	assert.NoError(t, completed.Err)

	updated := events.last(domain.EventLibraryUpdated).(domain.LibraryUpdatedEvent)
	assert.Len(t, updated.Tracks, 3)
}

func TestLibraryService_RefreshFailureKeepsSnapshot(t *testing.T) {
	source := &fakeSource{tracks: abc()}
	service, events := newTestLibraryService(source)

	_, err := service.Refresh(context.Background())
	require.NoError(t, err)

	boom := errors.New("disk gone")
	source.mu.Lock()
	source.err = boom
	source.mu.Unlock()

	_, err = service.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, service.Tracks(), 3)

	completed := events.last(domain.EventScanCompleted).(domain.ScanCompletedEvent)
	assert.ErrorIs(t, completed.Err, boom)
	assert.Equal(t, 1, events.count(domain.EventLibraryUpdated))
}

func TestLibraryService_TracksIsACopy(t *testing.T) {
	service, _ := newTestLibraryService(&fakeSource{tracks: abc()})
	_, err := service.Refresh(context.Background())
	require.NoError(t, err)

	tracks := service.Tracks()
	tracks[0].Title = "changed"

	assert.Equal(t, "Alpha", service.Tracks()[0].Title)
}

func TestLibraryService_Search(t *testing.T) {
	source := &fakeSource{tracks: []domain.TrackRef{
		createTestTrack("1", "Bohemian Rhapsody", "Queen"),
		createTestTrack("2", "Under Pressure", "Queen & David Bowie"),
		createTestTrack("3", "Heroes", "David Bowie"),
	}}
	service, _ := newTestLibraryService(source)
	_, err := service.Refresh(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"blank returns all", "  ", []string{"1", "2", "3"}},
		{"title match", "pressure", []string{"2"}},
		{"artist match ignores case", "BOWIE", []string{"2", "3"}},
		{"title or artist", "queen", []string{"1", "2"}},
		{"no match", "abba", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, track := range service.Search(tt.query) {
				ids = append(ids, track.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestLibraryService_Find(t *testing.T) {
	service, _ := newTestLibraryService(&fakeSource{tracks: abc()})
	_, err := service.Refresh(context.Background())
	require.NoError(t, err)

	track, ok := service.Find("b")
	require.True(t, ok)
	assert.Equal(t, "Bravo", track.Title)

	_, ok = service.Find("zzz")
	assert.False(t, ok)
}

func TestLibraryService_ConcurrentRefresh(t *testing.T) {
	source := &fakeSource{tracks: abc(), block: make(chan struct{})}
	service, _ := newTestLibraryService(source)

	done := make(chan error, 1)
	go func() {
		_, err := service.Refresh(context.Background())
		done <- err
	}()

	require.Eventually(t, service.IsScanning, time.Second, time.Millisecond)

	_, err := service.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrScanInProgress)

	close(source.block)
	require.NoError(t, <-done)
	assert.False(t, service.IsScanning())
}

func TestLibraryService_CancelScan(t *testing.T) {
	source := &fakeSource{tracks: abc(), block: make(chan struct{})}
	service, _ := newTestLibraryService(source)

	assert.Error(t, service.CancelScan(), "no scan in progress")

	done := make(chan error, 1)
	go func() {
		_, err := service.Refresh(context.Background())
		done <- err
	}()
	require.Eventually(t, service.IsScanning, time.Second, time.Millisecond)

	require.NoError(t, service.CancelScan())
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, service.Tracks())
}

func TestLibraryService_Watch(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	source := &fakeSource{tracks: abc()[:1], changes: make(chan struct{}, 1)}
	service, _ := newTestLibraryService(watchableSource{source})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Watch(ctx) }()

	source.set(abc()...)
	source.changes <- struct{}{}

	require.Eventually(t, func() bool { return len(service.Tracks()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, source.scanCount())

	cancel()
	assert.NoError(t, <-done)
}

func TestLibraryService_WatchUnsupported(t *testing.T) {
	service, _ := newTestLibraryService(&fakeSource{})

	err := service.Watch(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestLibraryService_WatchStopsWhenSourceCloses(t *testing.T) {
	changes := make(chan struct{})
	service := NewLibraryService(logger.NewTestLogger(), watchableSource{&fakeSource{changes: changes}}, eventbus.NewSyncEventBus(nil))

	done := make(chan error, 1)
	go func() { done <- service.Watch(context.Background()) }()

	close(changes)
	assert.NoError(t, <-done)
}
