package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderlust/internal/domain"
)

type Repo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func New(db *mongo.Database, collection string) *Repo {
	return &Repo{coll: db.Collection(collection), now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repo) Insert(ctx context.Context, l *domain.Listing) error {
	now := r.now().Truncate(time.Millisecond)
	l.CreatedAt, l.UpdatedAt = now, now
	l.ID = ""
	doc, err := toDocument(l)
	if err != nil {
		return err
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert listing: unexpected id type %T", res.InsertedID)
	}
	l.ID = oid.Hex()
	if l.Reviews == nil {
		l.Reviews = []string{}
	}
	return nil
}

// Replace writes the whole document; created_at and owner are carried from l.
func (r *Repo) Replace(ctx context.Context, l *domain.Listing) error {
	oid, err := primitive.ObjectIDFromHex(l.ID)
	if err != nil {
		return domain.ErrNotFound
	}
	prev := l.UpdatedAt
	l.UpdatedAt = r.now().Truncate(time.Millisecond)
	doc, err := toDocument(l)
	if err != nil {
		l.UpdatedAt = prev
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		l.UpdatedAt = prev
		return fmt.Errorf("replace listing %s: %w", l.ID, err)
	}
	if res.MatchedCount == 0 {
		l.UpdatedAt = prev
		return domain.ErrNotFound
	}
	return nil
}

// UpdateGeometry sets geometry without rewriting the rest of the document, so
// edits committed since the caller read the listing survive.
func (r *Repo) UpdateGeometry(ctx context.Context, id string, p domain.Point) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	set := bson.M{
		"geometry":   pointDocument{Type: p.Type, Coordinates: []float64{p.Lon(), p.Lat()}},
		"updated_at": r.now().Truncate(time.Millisecond),
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update geometry %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete listing %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	var doc listingDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find listing %s: %w", id, err)
	}
	l := toDomain(&doc)
	return &l, nil
}

func (r *Repo) FindAll(ctx context.Context) ([]domain.Listing, error) {
	return r.find(ctx, bson.M{})
}

// FindByCountry matches country as a case-insensitive literal substring.
func (r *Repo) FindByCountry(ctx context.Context, pattern string) ([]domain.Listing, error) {
	return r.find(ctx, bson.M{"country": primitive.Regex{Pattern: regexp.QuoteMeta(pattern), Options: "i"}})
}

func (r *Repo) find(ctx context.Context, filter bson.M) ([]domain.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	out := make([]domain.Listing, 0, len(docs))
	for i := range docs {
		out = append(out, toDomain(&docs[i]))
	}
	return out, nil
}
