package domain

import (
	"strconv"
	"strings"
	"time"
)

// Listing is a rentable property record.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Location    string    `json:"location"`
	Country     string    `json:"country"`
	Category    string    `json:"category,omitempty"`
	Owner       string    `json:"owner"`
	Geometry    Point     `json:"geometry"`
	Image       *Image    `json:"image,omitempty"`
	Reviews     []string  `json:"reviews"` // review ids, owned by the review subsystem
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Point is a GeoJSON point. Coordinates are [longitude, latitude].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

const PointType = "Point"

// FallbackPoint is used whenever a location cannot be resolved (Mumbai).
var FallbackPoint = NewPoint(72.8777, 19.0760)

func NewPoint(lon, lat float64) Point {
	return Point{Type: PointType, Coordinates: [2]float64{lon, lat}}
}

func (p Point) Lon() float64 { return p.Coordinates[0] }
func (p Point) Lat() float64 { return p.Coordinates[1] }

// IsZero reports whether the point was never populated.
func (p Point) IsZero() bool { return p.Type == "" }

// Image is a stored asset reference. URL and Filename are always set together.
type Image struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Thumbnail rewrites the delivery URL to request a resized variant by inserting a
// width directive after the "/upload" path segment. URLs without that segment are
// returned unchanged.
func (i *Image) Thumbnail(width int) string {
	if i == nil {
		return ""
	}
	if width <= 0 || !strings.Contains(i.URL, "/upload") {
		return i.URL
	}
	return strings.Replace(i.URL, "/upload", "/upload/w_"+strconv.Itoa(width), 1)
}

// Upload is a binary payload supplied with a mutation request. A nil *Upload means
// no file was attached.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ListingFields carries the caller-supplied scalar attributes.
type ListingFields struct {
	Title       string
	Description string
	Price       *float64
	Country     string
	Category    string
}

// Validate checks presence of the required attributes only.
func (f ListingFields) Validate() error {
	var missing []string
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(f.Description) == "" {
		missing = append(missing, "description")
	}
	if f.Price == nil {
		missing = append(missing, "price")
	}
	if strings.TrimSpace(f.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// Apply overwrites the scalar attributes of l.
func (f ListingFields) Apply(l *Listing) {
	l.Title = f.Title
	l.Description = f.Description
	if f.Price != nil {
		l.Price = *f.Price
	}
	l.Country = f.Country
	l.Category = f.Category
}
