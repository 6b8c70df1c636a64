// Package redisstore persists play counts in Redis.
//
// Layout under the key prefix:
//
//	<prefix>plays             sorted set, member "artist\x00title", score = play count
//	<prefix>play:<member>     hash {artist, title, count, last, seq}
//	<prefix>seq               insertion counter used to order ties
package redisstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "audiotracker:"

const maxTxRetries = 100

// Config holds the connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements ports.PlayCountRepository on Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(client, cfg.KeyPrefix), nil
}

// New wraps an existing client. An empty prefix uses DefaultKeyPrefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func member(artist, title string) string {
	return artist + "\x00" + title
}

func (s *Store) rankKey() string           { return s.prefix + "plays" }
func (s *Store) seqKey() string            { return s.prefix + "seq" }
func (s *Store) recordKey(m string) string { return s.prefix + "play:" + m }

// storedRecord is a decoded record hash.
type storedRecord struct {
	domain.PlayCountRecord
	seq int64
}

func decode(fields map[string]string) (storedRecord, error) {
	count, err := strconv.ParseInt(fields["count"], 10, 64)
	if err != nil {
		return storedRecord{}, fmt.Errorf("bad count %q: %w", fields["count"], err)
	}
	last, err := strconv.ParseInt(fields["last"], 10, 64)
	if err != nil {
		return storedRecord{}, fmt.Errorf("bad timestamp %q: %w", fields["last"], err)
	}
	seq, _ := strconv.ParseInt(fields["seq"], 10, 64)

	return storedRecord{
		PlayCountRecord: domain.PlayCountRecord{
			Artist:       fields["artist"],
			Title:        fields["title"],
			PlayCount:    count,
			LastPlayedAt: time.Unix(0, last).UTC(),
		},
		seq: seq,
	}, nil
}

// Find retrieves the record for (artist, title).
func (s *Store) Find(ctx context.Context, artist, title string) (*domain.PlayCountRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(member(artist, title))).Result()
	if err != nil {
		return nil, domain.NewRepositoryError("find", "redis", "HGETALL failed", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	rec, err := decode(fields)
	if err != nil {
		return nil, domain.NewRepositoryError("find", "redis", "corrupt record", err)
	}
	return &rec.PlayCountRecord, nil
}

// watch runs fn in an optimistic transaction on the record key, retrying when
// another client modified the key first.
func (s *Store) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

// Insert stores a new record.
func (s *Store) Insert(ctx context.Context, record domain.PlayCountRecord) error {
	m := member(record.Artist, record.Title)
	key := s.recordKey(m)

	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return domain.ErrRecordExists
		}
		seq, err := tx.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"artist": record.Artist,
				"title":  record.Title,
				"count":  record.PlayCount,
				"last":   record.LastPlayedAt.UnixNano(),
				"seq":    seq,
			})
			pipe.ZAdd(ctx, s.rankKey(), redis.Z{Score: float64(record.PlayCount), Member: m})
			return nil
		})
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRecordExists):
		return domain.ErrRecordExists
	default:
		return domain.NewRepositoryError("insert", "redis", "transaction failed", err)
	}
}

// Update replaces the count and timestamp of an existing record.
func (s *Store) Update(ctx context.Context, record domain.PlayCountRecord) error {
	m := member(record.Artist, record.Title)
	key := s.recordKey(m)

	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrRecordNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"count": record.PlayCount,
				"last":  record.LastPlayedAt.UnixNano(),
			})
			pipe.ZAdd(ctx, s.rankKey(), redis.Z{Score: float64(record.PlayCount), Member: m})
			return nil
		})
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRecordNotFound):
		return domain.ErrRecordNotFound
	default:
		return domain.NewRepositoryError("update", "redis", "transaction failed", err)
	}
}

// Upsert creates the record or increments it inside MULTI/EXEC.
func (s *Store) Upsert(ctx context.Context, artist, title string, at time.Time) (domain.PlayCountRecord, error) {
	m := member(artist, title)
	key := s.recordKey(m)

	var count int64
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		var seq int64
		if exists == 0 {
			if seq, err = tx.Incr(ctx, s.seqKey()).Result(); err != nil {
				return err
			}
		}

		var incr *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			fields := map[string]interface{}{
				"artist": artist,
				"title":  title,
				"last":   at.UnixNano(),
			}
			if seq > 0 {
				fields["seq"] = seq
			}
			pipe.HSet(ctx, key, fields)
			incr = pipe.HIncrBy(ctx, key, "count", 1)
			pipe.ZIncrBy(ctx, s.rankKey(), 1, m)
			return nil
		})
		if err != nil {
			return err
		}
		count = incr.Val()
		return nil
	})
	if err != nil {
		return domain.PlayCountRecord{}, domain.NewRepositoryError("upsert", "redis", "transaction failed", err)
	}

	return domain.PlayCountRecord{
		Artist:       artist,
		Title:        title,
		PlayCount:    count,
		LastPlayedAt: time.Unix(0, at.UnixNano()).UTC(),
	}, nil
}

// ListByCountDesc returns all records, most played first. Ties keep insertion order.
func (s *Store) ListByCountDesc(ctx context.Context) ([]domain.PlayCountRecord, error) {
	members, err := s.client.ZRevRange(ctx, s.rankKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.NewRepositoryError("list", "redis", "ZREVRANGE failed", err)
	}
	if len(members) == 0 {
		return []domain.PlayCountRecord{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(members))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, m := range members {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(m))
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewRepositoryError("list", "redis", "HGETALL pipeline failed", err)
	}

	stored := make([]storedRecord, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := decode(fields)
		if err != nil {
			return nil, domain.NewRepositoryError("list", "redis", "corrupt record", err)
		}
		stored = append(stored, rec)
	}

	slices.SortFunc(stored, func(a, b storedRecord) int {
		if c := cmp.Compare(b.PlayCount, a.PlayCount); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	records := make([]domain.PlayCountRecord, len(stored))
	for i, rec := range stored {
		records[i] = rec.PlayCountRecord
	}
	return records, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Verify interface implementation
var (
	_ ports.PlayCountRepository = (*Store)(nil)
	_ ports.PlayCountUpserter   = (*Store)(nil)
)
