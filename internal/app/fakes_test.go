package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"wanderlust/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu      sync.Mutex
	items   map[string]domain.Listing
	seq     int
	writes  int // inserts + replaces + deletes that succeeded
	findErr error
	failIDs map[string]bool // Replace and UpdateGeometry fail for these ids
}

func newFakeRepo(seed ...domain.Listing) *fakeRepo {
	r := &fakeRepo{items: map[string]domain.Listing{}, failIDs: map[string]bool{}}
	for _, l := range seed {
		r.items[l.ID] = clone(l)
	}
	return r
}

func (r *fakeRepo) Insert(ctx context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	l.ID = fmt.Sprintf("id-%d", r.seq)
	r.items[l.ID] = clone(*l)
	r.writes++
	return nil
}

func (r *fakeRepo) Replace(ctx context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[l.ID]; !ok {
		return domain.ErrNotFound
	}
	if r.failIDs[l.ID] {
		return errors.New("write conflict")
	}
	r.items[l.ID] = clone(*l)
	r.writes++
	return nil
}

func (r *fakeRepo) UpdateGeometry(ctx context.Context, id string, p domain.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.failIDs[id] {
		return errors.New("write conflict")
	}
	l.Geometry = p
	r.items[id] = l
	r.writes++
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	r.writes++
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := clone(l)
	return &c, nil
}

func (r *fakeRepo) FindAll(ctx context.Context) ([]domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make([]domain.Listing, 0, len(r.items))
	for _, l := range r.items {
		out = append(out, clone(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) FindByCountry(ctx context.Context, pattern string) ([]domain.Listing, error) {
	all, _ := r.FindAll(ctx)
	var out []domain.Listing
	for _, l := range all {
		if strings.Contains(strings.ToLower(l.Country), strings.ToLower(pattern)) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeRepo) snapshot() map[string]domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.Listing, len(r.items))
	for k, v := range r.items {
		out[k] = clone(v)
	}
	return out
}

func (r *fakeRepo) get(id string) domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.items[id])
}

func clone(l domain.Listing) domain.Listing {
	if l.Image != nil {
		img := *l.Image
		l.Image = &img
	}
	if l.Reviews != nil {
		l.Reviews = append([]string(nil), l.Reviews...)
	}
	return l
}

type fakeGeocoder struct {
	mu      sync.Mutex
	points  map[string]domain.Point
	calls   []string
	lookErr error
}

func (g *fakeGeocoder) Resolve(ctx context.Context, location string) domain.Point {
	p, err := g.Lookup(ctx, location)
	if err != nil {
		return domain.FallbackPoint
	}
	return p
}

func (g *fakeGeocoder) Lookup(ctx context.Context, location string) (domain.Point, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, location)
	if g.lookErr != nil {
		return domain.Point{}, g.lookErr
	}
	p, ok := g.points[location]
	if !ok {
		return domain.Point{}, errors.New("no match")
	}
	return p, nil
}

func (g *fakeGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeIngestor struct {
	calls int
	img   *domain.Image
	err   error
}

func (m *fakeIngestor) Ingest(ctx context.Context, up *domain.Upload) (*domain.Image, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.img, nil
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakePublisher struct {
	subjects []string
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, subject string, v any) error {
	p.subjects = append(p.subjects, subject)
	return p.err
}

func ptr[T any](v T) *T { return &v }

func validFields() domain.ListingFields {
	return domain.ListingFields{
		Title:       "Cozy Loft",
		Description: "Near the river",
		Price:       ptr(1200.0),
		Country:     "France",
		Category:    "rooms",
	}
}
