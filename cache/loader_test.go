package cache

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

type stringCodec struct{}

func (stringCodec) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (stringCodec) Decode(b []byte) (string, error) { return string(b), nil }

func countingFetcher(count *int32) Fetcher[string] {
	return func(ctx context.Context, id neuprep.Identifier) (string, error) {
		atomic.AddInt32(count, 1)
		if strings.HasPrefix(string(id), "bad") {
			return "", fmt.Errorf("no such neuron %s", id)
		}
		return "record-" + string(id), nil
	}
}

func TestLoaderGetCachesRecords(t *testing.T) {
	var fetches int32
	l := NewLoader[string](countingFetcher(&fetches), stringCodec{}, Config{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rec, err := l.Get(ctx, "5813")
		if err != nil {
			t.Fatal(err)
		}
		if rec != "record-5813" {
			t.Errorf("unexpected record %q", rec)
		}
	}
	if fetches != 1 {
		t.Errorf("expected 1 fetch, got %d", fetches)
	}
	stats := l.Stats()
	if stats.Attempts != 3 || stats.Hits != 2 || stats.Entries != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if _, err := l.Get(ctx, "bad-1"); err == nil {
		t.Errorf("expected fetch error")
	}
	if l.Contains("bad-1") {
		t.Errorf("failed fetch should not be cached")
	}
}

func TestLoaderPrefetchAndEvict(t *testing.T) {
	var fetches int32
	l := NewLoader[string](countingFetcher(&fetches), stringCodec{}, Config{Workers: 2})
	ctx := context.Background()
	ids := neuprep.Identifiers{"1", "2", "3", "2"}
	n, err := l.Prefetch(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || fetches != 3 {
		t.Errorf("expected 3 prefetched, got %d (%d fetches)", n, fetches)
	}
	if n, _ := l.Prefetch(ctx, ids); n != 0 {
		t.Errorf("second prefetch should fetch nothing, fetched %d", n)
	}
	if evicted := l.Evict("1", "9"); evicted != 1 {
		t.Errorf("expected 1 eviction, got %d", evicted)
	}
	if l.Contains("1") || !l.Contains("2") {
		t.Errorf("eviction removed the wrong records")
	}
	recs, err := l.GetMany(ctx, neuprep.Identifiers{"1", "2"})
	if err != nil {
		t.Fatal(err)
	}
	if recs["1"] != "record-1" || recs["2"] != "record-2" || fetches != 4 {
		t.Errorf("unexpected records %v after %d fetches", recs, fetches)
	}
	l.Purge()
	if l.Contains("2") {
		t.Errorf("purge should empty the cache")
	}
	if _, err := l.Prefetch(ctx, neuprep.Identifiers{"4", "bad-2"}); err == nil {
		t.Errorf("expected prefetch error")
	}
}

func TestLoaderCoalescesFetches(t *testing.T) {
	var fetches int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, id neuprep.Identifier) (string, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return "slow-" + string(id), nil
	}
	l := NewLoader[string](fetch, stringCodec{}, Config{})
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := l.Get(context.Background(), "42")
			if err == nil && rec != "slow-42" {
				err = fmt.Errorf("unexpected record %q", rec)
			}
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
	if fetches != 1 {
		t.Errorf("expected concurrent gets to share one fetch, got %d", fetches)
	}
}

func TestLoaderWithSkeletons(t *testing.T) {
	s := &skeleton.Skeleton{
		ID:       "720575940621039145",
		Template: "FLYWIRE",
		Nodes:    []skeleton.Node{{ID: 1, Pos: neuprep.Vector3d{1, 2, 3}, Radius: 1, Parent: skeleton.NoParent}},
	}
	fetch := func(ctx context.Context, id neuprep.Identifier) (*skeleton.Skeleton, error) {
		return s, nil
	}
	l := NewLoader[*skeleton.Skeleton](fetch, skeleton.Codec{}, Config{MaxBytes: 1 << 20})
	if _, err := l.Get(context.Background(), s.ID); err != nil {
		t.Fatal(err)
	}
	got, err := l.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == s {
		t.Errorf("expected cached copy decoded from bytes, got the fetched pointer")
	}
	if got.ID != s.ID || got.Nodes[0].Pos != s.Nodes[0].Pos {
		t.Errorf("cached skeleton differs: %v", got)
	}
}

func TestLoaderOversizedRecordsNotCached(t *testing.T) {
	big := make([]byte, 4096)
	rand.New(rand.NewSource(7)).Read(big)
	var fetches int32
	fetch := func(ctx context.Context, id neuprep.Identifier) (string, error) {
		atomic.AddInt32(&fetches, 1)
		if id == "hemibrain-large" {
			return string(big), nil
		}
		return "small", nil
	}
	// At the minimum size entries over 512 bytes do not fit.
	l := NewLoader[string](fetch, stringCodec{}, Config{MaxBytes: MinBytes})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		rec, err := l.GetMany(ctx, neuprep.Identifiers{"hemibrain-large", "flywire-small"})
		if err != nil {
			t.Fatal(err)
		}
		if rec["hemibrain-large"] != string(big) || rec["flywire-small"] != "small" {
			t.Fatalf("unexpected records on pass %d", i)
		}
	}
	if l.Contains("hemibrain-large") {
		t.Errorf("oversized record should not be cached")
	}
	if !l.Contains("flywire-small") {
		t.Errorf("small record should be cached")
	}
	if fetches != 3 {
		t.Errorf("expected 3 fetches, got %d", fetches)
	}
	if stats := l.Stats(); stats.Oversized != 2 {
		t.Errorf("expected 2 oversized records, got %+v", stats)
	}
}
