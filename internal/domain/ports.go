package domain

import "context"

type ListingRepository interface {
	// Write paths
	Insert(ctx context.Context, l *Listing) error
	Replace(ctx context.Context, l *Listing) error
	Delete(ctx context.Context, id string) error
	// UpdateGeometry touches geometry and updated_at only.
	UpdateGeometry(ctx context.Context, id string, p Point) error

	// Read paths
	FindByID(ctx context.Context, id string) (*Listing, error)
	FindAll(ctx context.Context) ([]Listing, error)
	FindByCountry(ctx context.Context, pattern string) ([]Listing, error)
}

// Geocoder resolves free text to a point. Resolve never fails; Lookup reports
// every failure to the caller.
type Geocoder interface {
	Resolve(ctx context.Context, location string) Point
	Lookup(ctx context.Context, location string) (Point, error)
}

// MediaIngestor stores an uploaded asset. A nil upload yields a nil image and no error.
type MediaIngestor interface {
	Ingest(ctx context.Context, up *Upload) (*Image, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Subjects published after a committed mutation.
const (
	SubjectListingCreated = "listing.created"
	SubjectListingUpdated = "listing.updated"
	SubjectListingDeleted = "listing.deleted"
)

// ListingEvent is the payload of every listing subject.
type ListingEvent struct {
	ID      string `json:"id"`
	Owner   string `json:"owner,omitempty"`
	Country string `json:"country,omitempty"`
}
