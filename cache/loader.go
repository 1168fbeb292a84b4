/*
Package cache provides an explicit on-demand loader: a mapping from
identifier to a lazily fetched record, with prefetch and eviction under the
caller's control.

Records are encoded, snappy-compressed and held in a freecache byte cache so
memory stays within a fixed budget regardless of how many records pass
through.  Concurrent requests for the same identifier share a single fetch.
*/
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/janelia-flyem/neuprep/neuprep"
)

const (
	// MinBytes is the smallest cache freecache will allocate.
	MinBytes = 512 * 1024

	DefaultWorkers = 8
)

// Fetcher retrieves the record for an identifier from its source.
type Fetcher[T any] func(ctx context.Context, id neuprep.Identifier) (T, error)

// Codec converts records to and from bytes for caching.
type Codec[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
}

// Config sets the loader's memory budget and fetch parallelism.
type Config struct {
	MaxBytes   int
	Workers    int
	TTLSeconds int
}

// Stats reports loader activity.
type Stats struct {
	Attempts uint64
	Hits     uint64
	Fetches  uint64
	Entries  int64

	// Oversized counts records too large for the cache to hold.
	Oversized uint64
}

// Loader fetches records on demand and keeps them in a bounded cache.
type Loader[T any] struct {
	fetch   Fetcher[T]
	codec   Codec[T]
	cfg     Config
	cache   *freecache.Cache
	flights singleflight.Group

	// freecache drops values over 1/1024 of its size.
	maxEntry     int
	oversizeOnce sync.Once

	attempts  uint64
	hits      uint64
	fetches   uint64
	oversized uint64
}

// NewLoader returns a loader backed by a cache of cfg.MaxBytes bytes.
func NewLoader[T any](fetch Fetcher[T], codec Codec[T], cfg Config) *Loader[T] {
	if cfg.MaxBytes < MinBytes {
		cfg.MaxBytes = MinBytes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	neuprep.Infof("Created record cache of %s with %d fetch workers\n", humanize.Bytes(uint64(cfg.MaxBytes)), cfg.Workers)
	return &Loader[T]{
		fetch:    fetch,
		codec:    codec,
		cfg:      cfg,
		cache:    freecache.NewCache(cfg.MaxBytes),
		maxEntry: cfg.MaxBytes / 1024,
	}
}

func key(id neuprep.Identifier) []byte {
	return []byte(id)
}

func (l *Loader[T]) lookup(id neuprep.Identifier) (rec T, found bool, err error) {
	val, err := l.cache.Get(key(id))
	if err == freecache.ErrNotFound {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	raw, err := snappy.Decode(nil, val)
	if err != nil {
		return rec, false, fmt.Errorf("corrupt cache entry for %s: %v", id, err)
	}
	if rec, err = l.codec.Decode(raw); err != nil {
		return rec, false, fmt.Errorf("unable to decode cached %s: %v", id, err)
	}
	return rec, true, nil
}

func (l *Loader[T]) store(id neuprep.Identifier, rec T) {
	raw, err := l.codec.Encode(rec)
	if err != nil {
		neuprep.Errorf("unable to encode %s for cache: %v\n", id, err)
		return
	}
	val := snappy.Encode(nil, raw)
	if len(val) > l.maxEntry {
		atomic.AddUint64(&l.oversized, 1)
		l.oversizeOnce.Do(func() {
			neuprep.Warningf("%s (%s) exceeds the %s cache entry limit; records this large are fetched on every use\n",
				id, humanize.Bytes(uint64(len(val))), humanize.Bytes(uint64(l.maxEntry)))
		})
		return
	}
	if err := l.cache.Set(key(id), val, l.cfg.TTLSeconds); err != nil {
		neuprep.Warningf("not caching %s (%s): %v\n", id, humanize.Bytes(uint64(len(raw))), err)
	}
}

// Get returns the record for id, fetching it if it is not cached.
func (l *Loader[T]) Get(ctx context.Context, id neuprep.Identifier) (T, error) {
	atomic.AddUint64(&l.attempts, 1)
	rec, found, err := l.lookup(id)
	if err != nil {
		neuprep.Warningf("dropping cache entry: %v\n", err)
		l.cache.Del(key(id))
	} else if found {
		atomic.AddUint64(&l.hits, 1)
		return rec, nil
	}
	v, err, _ := l.flights.Do(string(id), func() (interface{}, error) {
		atomic.AddUint64(&l.fetches, 1)
		rec, err := l.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		l.store(id, rec)
		return rec, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("fetching %s: %v", id, err)
	}
	return v.(T), nil
}

// GetMany returns records for all ids, fetching missing ones in parallel.
func (l *Loader[T]) GetMany(ctx context.Context, ids neuprep.Identifiers) (map[neuprep.Identifier]T, error) {
	ids = ids.Unique()
	out := make([]T, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := l.Get(gctx, id)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	recs := make(map[neuprep.Identifier]T, len(ids))
	for i, id := range ids {
		recs[id] = out[i]
	}
	return recs, nil
}

// Prefetch loads any of the ids not already cached.  It returns the number of
// records fetched.
func (l *Loader[T]) Prefetch(ctx context.Context, ids neuprep.Identifiers) (int, error) {
	var missing neuprep.Identifiers
	for _, id := range ids.Unique() {
		if !l.Contains(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	timedLog := neuprep.NewTimeLog()
	if _, err := l.GetMany(ctx, missing); err != nil {
		return 0, err
	}
	timedLog.Debugf("Prefetched %d of %d records", len(missing), len(ids))
	return len(missing), nil
}

// Contains returns true if id is cached.
func (l *Loader[T]) Contains(id neuprep.Identifier) bool {
	_, err := l.cache.Peek(key(id))
	return err == nil
}

// Evict drops the given ids from the cache and returns how many were present.
func (l *Loader[T]) Evict(ids ...neuprep.Identifier) int {
	var n int
	for _, id := range ids {
		if l.cache.Del(key(id)) {
			n++
		}
	}
	return n
}

// Purge empties the cache.
func (l *Loader[T]) Purge() {
	l.cache.Clear()
}

func (l *Loader[T]) Stats() Stats {
	return Stats{
		Attempts: atomic.LoadUint64(&l.attempts),
		Hits:     atomic.LoadUint64(&l.hits),
		Fetches:  atomic.LoadUint64(&l.fetches),
		Entries:  l.cache.EntryCount(),

		Oversized: atomic.LoadUint64(&l.oversized),
	}
}
