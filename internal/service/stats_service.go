package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

const statsWriteTimeout = 5 * time.Second

// StatsService records how often each (artist, title) pair has been played.
//
// Writes for the same key are serialized, so concurrent plays of one song never
// lose an increment. Plays reported by the player go through a single-writer
// queue and never block the caller; their failures are logged and published
// as StatsErrorEvent.
type StatsService struct {
	// Dependencies (injected)
	logger *slog.Logger
	repo   ports.PlayCountRepository
	bus    ports.EventBus
	now    func() time.Time

	locks keyedMutex

	// Async write queue
	mu       sync.Mutex
	idle     *sync.Cond
	queue    []domain.StatsKey
	inflight int
	wake     chan struct{}
	closed   bool

	// Live listings
	watchers  map[int]chan struct{}
	nextWatch int

	done       chan struct{}
	workerDone chan struct{}
	watchWg    sync.WaitGroup
}

// StatsOption configures a StatsService.
type StatsOption func(*StatsService)

// WithClock overrides the time source used for LastPlayedAt.
func WithClock(now func() time.Time) StatsOption {
	return func(s *StatsService) {
		s.now = now
	}
}

// NewStatsService creates a stats service and starts its writer goroutine.
func NewStatsService(
	logger *slog.Logger,
	repo ports.PlayCountRepository,
	bus ports.EventBus,
	opts ...StatsOption,
) *StatsService {
	s := &StatsService{
		logger:     logger,
		repo:       repo,
		bus:        bus,
		now:        time.Now,
		wake:       make(chan struct{}, 1),
		watchers:   make(map[int]chan struct{}),
		done:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}

	go s.writer()

	logger.Debug("stats service initialized")
	return s
}

// RecordPlay creates the record for (artist, title) with a count of one, or
// increments it, and stamps it with the current time.
func (s *StatsService) RecordPlay(ctx context.Context, artist, title string) (domain.PlayCountRecord, error) {
	key := domain.StatsKey{Artist: artist, Title: title}

	unlock := s.locks.lock(key)
	defer unlock()

	at := s.now()

	record, err := s.upsert(ctx, key, at)
	if err != nil {
		return domain.PlayCountRecord{}, domain.NewServiceError("StatsService", "RecordPlay", "failed to record play for "+key.String(), err)
	}

	s.logger.Debug("play recorded",
		slog.String("artist", record.Artist),
		slog.String("title", record.Title),
		slog.Int64("play_count", record.PlayCount))

	s.bus.Publish(domain.NewPlayRecordedEvent(record))
	s.notifyWatchers()

	return record, nil
}

func (s *StatsService) upsert(ctx context.Context, key domain.StatsKey, at time.Time) (domain.PlayCountRecord, error) {
	if upserter, ok := s.repo.(ports.PlayCountUpserter); ok {
		return upserter.Upsert(ctx, key.Artist, key.Title, at)
	}

	existing, err := s.repo.Find(ctx, key.Artist, key.Title)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		record := domain.PlayCountRecord{Artist: key.Artist, Title: key.Title, PlayCount: 1, LastPlayedAt: at}
		if err := s.repo.Insert(ctx, record); err != nil {
			return domain.PlayCountRecord{}, err
		}
		return record, nil
	case err != nil:
		return domain.PlayCountRecord{}, err
	}

	record := *existing
	record.PlayCount++
	record.LastPlayedAt = at
	if err := s.repo.Update(ctx, record); err != nil {
		return domain.PlayCountRecord{}, err
	}
	return record, nil
}

// RecordPlayAsync queues a play for the track's (artist, title) and returns immediately.
func (s *StatsService) RecordPlayAsync(track domain.TrackRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Warn("stats service closed, play not recorded", slog.String("track_id", track.ID))
		return
	}

	s.queue = append(s.queue, track.StatsKey())
	s.inflight++

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// writer drains the async queue one key at a time until Shutdown.
func (s *StatsService) writer() {
	defer close(s.workerDone)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 {
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			select {
			case <-s.wake:
			case <-s.done:
			}
			s.mu.Lock()
		}
		key := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), statsWriteTimeout)
		if _, err := s.RecordPlay(ctx, key.Artist, key.Title); err != nil {
			s.logger.Warn("failed to record play", slog.String("key", key.String()), slog.Any("error", err))
			s.bus.Publish(domain.NewStatsErrorEvent(key, err))
		}
		cancel()

		s.mu.Lock()
		s.inflight--
		if s.inflight == 0 {
			s.idle.Broadcast()
		}
		s.mu.Unlock()
	}
}

// Flush blocks until every queued play has been written (or has failed).
func (s *StatsService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.inflight > 0 {
		s.idle.Wait()
	}
}

// ListAll returns every record ordered by descending play count.
func (s *StatsService) ListAll(ctx context.Context) ([]domain.PlayCountRecord, error) {
	records, err := s.repo.ListByCountDesc(ctx)
	if err != nil {
		return nil, domain.NewServiceError("StatsService", "ListAll", "failed to list records", err)
	}
	return records, nil
}

// Watch returns a channel that receives the current listing right away and a
// fresh listing after every recorded play. Slow readers only see the latest
// listing. The channel is closed when ctx ends or the service shuts down.
func (s *StatsService) Watch(ctx context.Context) <-chan []domain.PlayCountRecord {
	out := make(chan []domain.PlayCountRecord, 1)
	signal := make(chan struct{}, 1)
	signal <- struct{}{}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(out)
		return out
	}
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = signal
	s.watchWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.watchWg.Done()
		defer close(out)
		defer func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-signal:
			}

			records, err := s.ListAll(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("failed to refresh stats listing", slog.Any("error", err))
				}
				continue
			}

			// keep only the newest listing
			select {
			case <-out:
			default:
			}
			out <- records
		}
	}()

	return out
}

func (s *StatsService) notifyWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, signal := range s.watchers {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

// Shutdown writes any queued plays, stops the writer and closes all watch channels.
// Calling it more than once is safe.
func (s *StatsService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Flush()
	close(s.done)
	<-s.workerDone
	s.watchWg.Wait()

	return nil
}

// keyedMutex serializes work per statistics key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.StatsKey]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key domain.StatsKey) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[domain.StatsKey]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

var _ ports.PlayRecorder = (*StatsService)(nil)
