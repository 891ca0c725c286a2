package mongodb

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"wanderlust/internal/domain"
)

type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Location    string             `bson:"location"`
	Country     string             `bson:"country"`
	Category    string             `bson:"category,omitempty"`
	Owner       string             `bson:"owner"`
	Geometry    *pointDocument     `bson:"geometry,omitempty"`
	Image       *imageDocument     `bson:"image,omitempty"`
	Reviews     []string           `bson:"reviews"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

type pointDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"` // [lon, lat]
}

type imageDocument struct {
	URL      string `bson:"url"`
	Filename string `bson:"filename"`
}

// toDocument converts a listing; an empty ID leaves _id unset so the server assigns one.
func toDocument(l *domain.Listing) (*listingDocument, error) {
	doc := &listingDocument{
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Location:    l.Location,
		Country:     l.Country,
		Category:    l.Category,
		Owner:       l.Owner,
		Reviews:     l.Reviews,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if doc.Reviews == nil {
		doc.Reviews = []string{}
	}
	if l.ID != "" {
		oid, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid listing id %q: %w", l.ID, err)
		}
		doc.ID = oid
	}
	if !l.Geometry.IsZero() {
		doc.Geometry = &pointDocument{Type: l.Geometry.Type, Coordinates: []float64{l.Geometry.Lon(), l.Geometry.Lat()}}
	}
	if l.Image != nil {
		doc.Image = &imageDocument{URL: l.Image.URL, Filename: l.Image.Filename}
	}
	return doc, nil
}

func toDomain(d *listingDocument) domain.Listing {
	l := domain.Listing{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Location:    d.Location,
		Country:     d.Country,
		Category:    d.Category,
		Owner:       d.Owner,
		Reviews:     d.Reviews,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if l.Reviews == nil {
		l.Reviews = []string{}
	}
	// a half-written point is treated as missing
	if d.Geometry != nil && len(d.Geometry.Coordinates) == 2 {
		l.Geometry = domain.NewPoint(d.Geometry.Coordinates[0], d.Geometry.Coordinates[1])
	}
	if d.Image != nil && d.Image.URL != "" && d.Image.Filename != "" {
		l.Image = &domain.Image{URL: d.Image.URL, Filename: d.Image.Filename}
	}
	return l
}
