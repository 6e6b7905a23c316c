package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// FindStale returns the first page of ids of the given kind that are stubs
// or whose modified timestamp is older than the staleness age, least
// recently attempted first.
func (s *Syncer) FindStale(ctx context.Context, kind catalog.Kind) ([]int64, error) {
	return s.store.FindStale(ctx, kind, s.cutoff(), time.Time{}, s.pageSize)
}

func (s *Syncer) cutoff() time.Time {
	return s.clock.Now().Add(-s.maxAge)
}

// SweepStale re-syncs stale records of one kind, a page at a time, for at
// most the configured number of pages. Each id goes through the same path
// as SyncByID.
//
// Every id is tried at most once per sweep. Ids that were never attempted
// go first, so a record the provider cannot serve does not hold back the
// stubs behind it.
func (s *Syncer) SweepStale(ctx context.Context, kind catalog.Kind) (*Report, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("sweep: unknown kind %q", kind)
	}

	r := s.newReport("sweep")
	cutoff := s.cutoff()
	started := s.store.Now()
	seen := make(map[int64]bool)

	for page := 0; page < s.maxPages; page++ {
		if ctx.Err() != nil {
			r.Interrupted = true
			break
		}
		ids, err := s.store.FindStale(ctx, kind, cutoff, started, s.pageSize)
		if err != nil {
			return s.finish(r), fmt.Errorf("sweep %s: %w", kind, err)
		}
		if len(ids) == 0 {
			break
		}
		slog.Info("sweeping stale page", "kind", kind, "page", page+1, "ids", len(ids))

		tried := 0
		for _, id := range ids {
			if ctx.Err() != nil {
				r.Interrupted = true
				break
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			tried++
			r.add(s.syncOne(ctx, kind, id))
		}
		if tried == 0 || len(ids) < s.pageSize {
			break
		}
	}
	return s.finish(r), nil
}
