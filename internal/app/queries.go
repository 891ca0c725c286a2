package app

import (
	"context"
	"strings"
	"time"

	"wanderlust/internal/domain"
)

const (
	allListingsKey = "listings:all"
	thumbnailWidth = 250
)

func listingKey(id string) string { return "listing:" + id }

type QueryService struct {
	repo     domain.ListingRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ListingRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	key := listingKey(id)
	var l domain.Listing
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &l); ok {
			return &l, nil
		}
	}
	got, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, got)
	return got, nil
}

func (s *QueryService) List(ctx context.Context) ([]domain.Listing, error) {
	var out []domain.Listing
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, allListingsKey, &out); ok {
			return out, nil
		}
	}
	ls, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	// copy so callers cannot mutate what the repo or cache holds
	out = make([]domain.Listing, len(ls))
	copy(out, ls)
	s.store(ctx, allListingsKey, out)
	return out, nil
}

// SearchByCountry is a case-insensitive substring match; blank input lists everything.
func (s *QueryService) SearchByCountry(ctx context.Context, country string) ([]domain.Listing, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return s.List(ctx)
	}
	return s.repo.FindByCountry(ctx, country)
}

// EditView is a listing plus the thumbnail URL shown on the edit form.
type EditView struct {
	Listing          *domain.Listing `json:"listing"`
	OriginalImageURL string          `json:"original_image_url,omitempty"`
}

func (s *QueryService) EditView(ctx context.Context, id string) (EditView, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return EditView{}, err
	}
	return EditView{Listing: l, OriginalImageURL: l.Image.Thumbnail(thumbnailWidth)}, nil
}

func (s *QueryService) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
}
