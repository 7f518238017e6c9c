package statuspage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/status24/internal/domain"
	"github.com/google/uuid"
)

// Record is a child record to create: its fields, relative to the record,
// and the fields to stamp with the write time.
type Record struct {
	Fields     map[string]interface{}
	Timestamps []string
}

// Mutator performs create, update and delete of child records inside an
// organization document. Every write is a field-level patch, so concurrent
// writes to different children never overwrite each other.
type Mutator struct {
	repo  Repository
	newID func() string
}

// NewMutator creates a mutator over repo. Ids are random UUIDs.
func NewMutator(repo Repository) *Mutator {
	return &Mutator{
		repo:  repo,
		newID: uuid.NewString,
	}
}

// Create stores a new child record under a fresh id and returns the id.
// The organization document and container are created when absent.
func (m *Mutator) Create(ctx context.Context, orgID string, container domain.Container, rec Record) (string, error) {
	if !container.IsValid() {
		return "", ErrInvalidContainer
	}

	if err := m.repo.EnsureContainer(ctx, orgID, container); err != nil {
		return "", fmt.Errorf("ensure %s container: %w", container, err)
	}

	id := m.newID()
	base := Path(string(container), id)

	patch := Patch{Set: make(map[string]interface{}, len(rec.Fields)+1)}
	for field, value := range rec.Fields {
		patch.Set[Path(base, field)] = value
	}
	patch.Set[Path(base, "id")] = id
	for _, field := range rec.Timestamps {
		patch.Timestamps = append(patch.Timestamps, Path(base, field))
	}

	if err := m.repo.Patch(ctx, orgID, patch); err != nil {
		return "", fmt.Errorf("create %s record: %w", container, err)
	}
	return id, nil
}

// Update patches fields of an existing child record. It fails with
// ErrOrganizationNotFound or the container's not-found error when the
// document or the record does not exist.
func (m *Mutator) Update(ctx context.Context, orgID string, container domain.Container, childID string, rec Record) error {
	if !container.IsValid() {
		return ErrInvalidContainer
	}

	org, err := m.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	if !org.HasChild(container, childID) {
		return notFoundError(string(container))
	}

	base := Path(string(container), childID)
	patch := Patch{Set: make(map[string]interface{}, len(rec.Fields))}
	for field, value := range rec.Fields {
		patch.Set[Path(base, field)] = value
	}
	for _, field := range rec.Timestamps {
		patch.Timestamps = append(patch.Timestamps, Path(base, field))
	}

	if err := m.repo.Patch(ctx, orgID, patch); err != nil {
		return fmt.Errorf("update %s record: %w", container, err)
	}
	return nil
}

// Delete removes a child record if present. Deleting a missing record, or a
// record of a missing organization, succeeds.
func (m *Mutator) Delete(ctx context.Context, orgID string, container domain.Container, childID string) error {
	if !container.IsValid() {
		return ErrInvalidContainer
	}

	err := m.repo.Patch(ctx, orgID, Patch{Delete: []string{Path(string(container), childID)}})
	if err != nil && !errors.Is(err, ErrOrganizationNotFound) {
		return fmt.Errorf("delete %s record: %w", container, err)
	}
	return nil
}

// NewID returns a fresh record id.
func (m *Mutator) NewID() string {
	return m.newID()
}
