package app

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"wanderlust/internal/domain"
)

type BackfillService struct {
	geo     domain.Geocoder
	repo    domain.ListingRepository
	cache   domain.Cache // optional
	workers int64
}

func NewBackfillService(g domain.Geocoder, r domain.ListingRepository, c domain.Cache, workers int) *BackfillService {
	if workers <= 0 {
		workers = 1
	}
	return &BackfillService{geo: g, repo: r, cache: c, workers: int64(workers)}
}

type BackfillReport struct {
	Scanned int
	Updated int
	Skipped int
	Failed  int
}

// Run re-geocodes every listing that has a location. A failed lookup leaves the
// stored geometry as it was instead of writing the fallback point.
func (s *BackfillService) Run(ctx context.Context) (BackfillReport, error) {
	ls, err := s.repo.FindAll(ctx)
	if err != nil {
		return BackfillReport{}, err
	}

	var (
		mu  sync.Mutex
		rep = BackfillReport{Scanned: len(ls)}
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(s.workers)
	)
	count := func(f func(r *BackfillReport)) {
		mu.Lock()
		f(&rep)
		mu.Unlock()
	}

	for i := range ls {
		l := ls[i]
		if strings.TrimSpace(l.Location) == "" {
			count(func(r *BackfillReport) { r.Skipped++ })
			continue
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return rep, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			p, err := s.geo.Lookup(ctx, l.Location)
			if err != nil {
				log.Warn().Err(err).Str("id", l.ID).Str("location", l.Location).Msg("no coordinates found")
				count(func(r *BackfillReport) { r.Failed++ })
				return
			}
			if err := s.repo.UpdateGeometry(ctx, l.ID, p); err != nil {
				log.Warn().Err(err).Str("id", l.ID).Msg("geometry update failed")
				count(func(r *BackfillReport) { r.Failed++ })
				return
			}
			if s.cache != nil {
				_ = s.cache.Del(ctx, listingKey(l.ID))
			}
			log.Info().Str("id", l.ID).Float64("lon", p.Lon()).Float64("lat", p.Lat()).Msg("geometry updated")
			count(func(r *BackfillReport) { r.Updated++ })
		}()
	}
	wg.Wait()

	if s.cache != nil && rep.Updated > 0 {
		_ = s.cache.Del(ctx, allListingsKey)
	}
	return rep, nil
}
