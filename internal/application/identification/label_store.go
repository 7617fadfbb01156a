package identification

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/database/redis"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/pkg/errors"
)

// ============================================================================
// Constants & DTOs
// ============================================================================

const (
	DefaultLabelTTL     = 1800 * time.Second
	DefaultFetchTimeout = 10 * time.Second

	// unlockTimeout bounds the release of a per-key lock after the fetch
	// context may already be spent.
	unlockTimeout = 3 * time.Second
)

// LabelSourceKind tells how a lookup was satisfied.
type LabelSourceKind string

const (
	// SourceCache: the entry was live on the first read.
	SourceCache LabelSourceKind = "cache"
	// SourceFetch: this call performed the upstream fetch and stored it.
	SourceFetch LabelSourceKind = "fetch"
	// SourceRecheck: the entry was filled between the first read and the
	// fill, by an earlier leader or another process holding the lock.
	SourceRecheck LabelSourceKind = "recheck"
	// SourceShared: this call joined an in-flight fetch in this process.
	SourceShared LabelSourceKind = "shared"
)

// LabelLookup is a label record together with how it was obtained.
type LabelLookup struct {
	Record pill.LabelRecord
	Source LabelSourceKind
}

// CacheHit reports whether no upstream fetch was performed on behalf of this
// call.
func (l LabelLookup) CacheHit() bool {
	return l.Source != SourceFetch
}

// CacheEntryInfo describes one cache slot for administration.
type CacheEntryInfo struct {
	Key     string            `json:"key"`
	Present bool              `json:"present"`
	TTL     time.Duration     `json:"ttl"`
	Corrupt bool              `json:"corrupt,omitempty"`
	Record  *pill.LabelRecord `json:"record,omitempty"`
}

// LabelStoreConfig tunes a LabelStore. Zero values take the defaults.
type LabelStoreConfig struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	// Locks enables cross-process exclusion per key. Nil keeps exclusion
	// in-process only.
	Locks redis.LockFactory
}

// ============================================================================
// LabelStore
// ============================================================================

// LabelStore is a cache-aside store of regulatory labels keyed by
// (imprint, generic name). A live entry never triggers a fetch; failed
// fetches are never cached.
type LabelStore interface {
	GetOrFetch(ctx context.Context, genericName, imprintNumber string) (pill.LabelRecord, error)
	Lookup(ctx context.Context, genericName, imprintNumber string) (LabelLookup, error)
	Evict(ctx context.Context, imprintNumber, genericName string) error
	Inspect(ctx context.Context, imprintNumber, genericName string) (CacheEntryInfo, error)
}

type labelStoreImpl struct {
	cache        redis.Cache
	source       pill.LabelSource
	locks        redis.LockFactory
	group        singleflight.Group
	ttl          time.Duration
	fetchTimeout time.Duration
	metrics      *prometheus.PillMetrics
	logger       logging.Logger
}

// NewLabelStore builds a LabelStore over cache and source.
func NewLabelStore(cache redis.Cache, source pill.LabelSource, cfg LabelStoreConfig, metrics *prometheus.PillMetrics, log logging.Logger) LabelStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultLabelTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &labelStoreImpl{
		cache:        cache,
		source:       source,
		locks:        cfg.Locks,
		ttl:          cfg.TTL,
		fetchTimeout: cfg.FetchTimeout,
		metrics:      metrics,
		logger:       log,
	}
}

func (s *labelStoreImpl) GetOrFetch(ctx context.Context, genericName, imprintNumber string) (pill.LabelRecord, error) {
	res, err := s.Lookup(ctx, genericName, imprintNumber)
	if err != nil {
		return pill.LabelRecord{}, err
	}
	return res.Record, nil
}

func (s *labelStoreImpl) Lookup(ctx context.Context, genericName, imprintNumber string) (LabelLookup, error) {
	if genericName == "" {
		return LabelLookup{}, errors.New(errors.ErrCodeValidation, "generic name is required")
	}
	key := pill.CacheKey(imprintNumber, genericName)

	if rec, ok := s.read(ctx, key); ok {
		return LabelLookup{Record: rec, Source: SourceCache}, nil
	}

	// The leader runs detached from its caller so that one abandoned request
	// does not fail everyone waiting on the same key.
	led := false
	ch := s.group.DoChan(key, func() (interface{}, error) {
		led = true
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fill(fctx, key, genericName)
	})

	select {
	case <-ctx.Done():
		return LabelLookup{}, errors.Wrap(ctx.Err(), errors.ErrCodeLabelFetchFailed, "label lookup abandoned").WithDetail(key)
	case res := <-ch:
		if res.Err != nil {
			return LabelLookup{}, res.Err
		}
		out := res.Val.(LabelLookup)
		if !led {
			out.Source = SourceShared
			prometheus.RecordCoalescedFetch(s.metrics)
		}
		return out, nil
	}
}

// fill runs at most once at a time per key in this process. With a lock
// factory it also excludes other processes. It always re-reads the cache
// before fetching: a caller that missed just before the previous leader
// stored the record can become the next leader after that leader is done.
func (s *labelStoreImpl) fill(ctx context.Context, key, genericName string) (LabelLookup, error) {
	if s.locks != nil {
		mu := s.locks.NewMutex("label:" + key)
		if err := mu.Lock(ctx); err != nil {
			s.logger.Warn("label lock unavailable, fetching unguarded",
				logging.String("key", key),
				logging.Err(err),
			)
		} else {
			defer func() {
				uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
				defer cancel()
				if err := mu.Unlock(uctx); err != nil {
					s.logger.Warn("failed to release label lock", logging.String("key", key), logging.Err(err))
				}
			}()
		}
	}

	if rec, result := s.load(ctx, key); result == prometheus.CacheHit {
		return LabelLookup{Record: rec, Source: SourceRecheck}, nil
	}

	start := time.Now()
	body, err := s.source.FetchLabel(ctx, genericName)
	prometheus.RecordUpstream(s.metrics, "regulatory", err, time.Since(start))
	if err != nil {
		return LabelLookup{}, asFetchError(err, genericName)
	}

	rec, err := pill.NewLabelRecord(body)
	if err != nil {
		return LabelLookup{}, asFetchError(err, genericName)
	}

	s.write(ctx, key, rec)
	return LabelLookup{Record: rec, Source: SourceFetch}, nil
}

// read returns a live, decodable entry and counts the access.
func (s *labelStoreImpl) read(ctx context.Context, key string) (pill.LabelRecord, bool) {
	rec, result := s.load(ctx, key)
	prometheus.RecordCacheAccess(s.metrics, result)
	return rec, result == prometheus.CacheHit
}

// load classifies one cache read. Store failures and corrupt blobs are
// logged and reported as a miss or corrupt.
func (s *labelStoreImpl) load(ctx context.Context, key string) (pill.LabelRecord, string) {
	blob, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeNotFound) {
			s.logger.Warn("label cache read failed", logging.String("key", key), logging.Err(err))
		}
		return pill.LabelRecord{}, prometheus.CacheMiss
	}
	rec, err := pill.DecodeLabelRecord(blob)
	if err != nil {
		s.logger.Warn("discarding corrupt label cache entry", logging.String("key", key), logging.Err(err))
		return pill.LabelRecord{}, prometheus.CacheCorrupt
	}
	return rec, prometheus.CacheHit
}

func (s *labelStoreImpl) write(ctx context.Context, key string, rec pill.LabelRecord) {
	blob, err := rec.Encode()
	if err == nil {
		err = s.cache.Set(ctx, key, blob, s.ttl)
	}
	if err != nil {
		s.logger.Warn("label cache write failed", logging.String("key", key), logging.Err(err))
		return
	}
	s.logger.Debug("label cached", logging.String("key", key), logging.Duration("ttl", s.ttl))
}

func (s *labelStoreImpl) Evict(ctx context.Context, imprintNumber, genericName string) error {
	key := pill.CacheKey(imprintNumber, genericName)
	if err := s.cache.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("label cache entry evicted", logging.String("key", key))
	return nil
}

func (s *labelStoreImpl) Inspect(ctx context.Context, imprintNumber, genericName string) (CacheEntryInfo, error) {
	key := pill.CacheKey(imprintNumber, genericName)
	info := CacheEntryInfo{Key: key}

	blob, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return info, nil
		}
		return info, err
	}
	info.Present = true

	ttl, err := s.cache.TTL(ctx, key)
	switch {
	case err == nil:
		info.TTL = ttl
	case errors.IsCode(err, errors.ErrCodeNotFound):
		// expired between the two reads
		return CacheEntryInfo{Key: key}, nil
	default:
		return info, err
	}

	rec, err := pill.DecodeLabelRecord(blob)
	if err != nil {
		info.Corrupt = true
		return info, nil
	}
	info.Record = &rec
	return info, nil
}

// asFetchError maps any upstream failure to FetchError, keeping the
// retryable flag of the cause.
func asFetchError(err error, genericName string) error {
	if errors.IsCode(err, errors.ErrCodeLabelFetchFailed) {
		return err
	}
	fe := errors.Wrap(err, errors.ErrCodeLabelFetchFailed, "regulatory label unavailable").WithDetail(genericName)
	if errors.IsRetryable(err) {
		fe = fe.MarkRetryable()
	}
	return fe
}

//Personal.AI order the ending
