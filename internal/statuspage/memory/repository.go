// Package memory provides an in-process implementation of the status page repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/statuspage"
)

// Repository implements statuspage.Repository in memory. Every operation
// holds a single lock, so each patch is atomic.
type Repository struct {
	mu   sync.Mutex
	docs map[string]statuspage.Document
	now  func() time.Time
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		docs: make(map[string]statuspage.Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used to stamp timestamps.
func (r *Repository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Put stores a raw document, replacing any existing one.
func (r *Repository) Put(orgID string, doc statuspage.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[orgID] = doc.Clone()
}

// EnsureContainer implements statuspage.Repository.
func (r *Repository) EnsureContainer(_ context.Context, orgID string, container domain.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[orgID]
	if !ok {
		doc = statuspage.Document{}
		r.docs[orgID] = doc
	}
	doc.EnsureContainer(container)
	return nil
}

// GetOrganization implements statuspage.Repository.
func (r *Repository) GetOrganization(_ context.Context, orgID string) (*domain.Organization, error) {
	r.mu.Lock()
	doc, ok := r.docs[orgID]
	if ok {
		doc = doc.Clone()
	}
	r.mu.Unlock()

	if !ok {
		return nil, statuspage.ErrOrganizationNotFound
	}
	return doc.Decode(orgID)
}

// Patch implements statuspage.Repository.
func (r *Repository) Patch(_ context.Context, orgID string, p statuspage.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[orgID]
	if !ok {
		return statuspage.ErrOrganizationNotFound
	}
	doc.Apply(p, r.now())
	return nil
}

// ListOrganizationIDs implements statuspage.Repository.
func (r *Repository) ListOrganizationIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping implements statuspage.Repository.
func (r *Repository) Ping(_ context.Context) error {
	return nil
}
