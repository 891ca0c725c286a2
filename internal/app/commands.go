package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"wanderlust/internal/domain"
)

// MutationService is the write side: create, update and delete listings.
type MutationService struct {
	geo    domain.Geocoder
	media  domain.MediaIngestor
	repo   domain.ListingRepository
	cache  domain.Cache          // optional
	events domain.EventPublisher // optional
}

func NewMutationService(g domain.Geocoder, m domain.MediaIngestor, r domain.ListingRepository, c domain.Cache, e domain.EventPublisher) *MutationService {
	return &MutationService{geo: g, media: m, repo: r, cache: c, events: e}
}

// Create validates, geocodes, optionally ingests the image and inserts the listing.
// Nothing is written when validation or the upload fails.
func (s *MutationService) Create(ctx context.Context, f domain.ListingFields, ownerID, location string, up *domain.Upload) (*domain.Listing, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, &domain.MissingFieldsError{Fields: []string{"owner"}}
	}

	l := &domain.Listing{Owner: ownerID, Location: location, Reviews: []string{}}
	f.Apply(l)

	// resolver degrades to the fallback point, it never aborts
	l.Geometry = s.geo.Resolve(ctx, location)

	if up != nil {
		img, err := s.media.Ingest(ctx, up)
		if err != nil {
			return nil, fmt.Errorf("create listing: %w", err)
		}
		l.Image = img
	}

	if err := s.repo.Insert(ctx, l); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.invalidate(ctx, l.ID)
	s.publish(ctx, domain.SubjectListingCreated, l)
	log.Info().Str("id", l.ID).Str("owner", l.Owner).Msg("listing created")
	return l, nil
}

// Update overwrites the scalar fields, re-resolves geometry from location every
// time, and replaces the image only when a new upload is given.
func (s *MutationService) Update(ctx context.Context, id string, f domain.ListingFields, location string, up *domain.Upload) (*domain.Listing, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	f.Apply(l)
	l.Location = location
	l.Geometry = s.geo.Resolve(ctx, location)

	if up != nil {
		img, err := s.media.Ingest(ctx, up)
		if err != nil {
			return nil, fmt.Errorf("update listing %s: %w", id, err)
		}
		if img != nil {
			l.Image = img
		}
	}

	if err := s.repo.Replace(ctx, l); err != nil {
		return nil, err
	}

	s.invalidate(ctx, l.ID)
	s.publish(ctx, domain.SubjectListingUpdated, l)
	log.Info().Str("id", l.ID).Msg("listing updated")
	return l, nil
}

func (s *MutationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.publish(ctx, domain.SubjectListingDeleted, &domain.Listing{ID: id})
	log.Info().Str("id", id).Msg("listing deleted")
	return nil
}

// invalidate evicts the cached listing and the cached index after a commit.
func (s *MutationService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	for _, k := range []string{listingKey(id), allListingsKey} {
		if err := s.cache.Del(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache invalidation failed")
		}
	}
}

// publish is best-effort; the mutation is already committed.
func (s *MutationService) publish(ctx context.Context, subject string, l *domain.Listing) {
	if s.events == nil {
		return
	}
	ev := domain.ListingEvent{ID: l.ID, Owner: l.Owner, Country: l.Country}
	if err := s.events.Publish(ctx, subject, ev); err != nil {
		log.Warn().Err(err).Str("subject", subject).Str("id", l.ID).Msg("event publish failed")
	}
}
