package statuspage

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/pkg/ctxlog"
)

// Service implements status page operations on top of the Mutator.
type Service struct {
	repo    Repository
	mutator *Mutator
}

// NewService creates a new status page service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:    repo,
		mutator: NewMutator(repo),
	}
}

// CreateServiceInput contains data for creating a service.
type CreateServiceInput struct {
	OrganizationID string
	Name           string
	Type           string
	Status         string
}

// AddService creates a service. Timestamps are stamped by the store, so the
// returned service has nil CreatedAt and UpdatedAt.
func (s *Service) AddService(ctx context.Context, input CreateServiceInput) (*domain.Service, error) {
	if err := validateIDs(input.OrganizationID); err != nil {
		return nil, err
	}

	id, err := s.mutator.Create(ctx, input.OrganizationID, domain.ContainerServices, Record{
		Fields: map[string]interface{}{
			"name":   input.Name,
			"type":   input.Type,
			"status": input.Status,
		},
		Timestamps: []string{"created_at", "updated_at"},
	})
	if err != nil {
		return nil, fmt.Errorf("add service: %w", err)
	}

	ctxlog.FromContext(ctx).Info("service added", "organization_id", input.OrganizationID, "service_id", id)

	return &domain.Service{
		ID:     id,
		Name:   input.Name,
		Type:   input.Type,
		Status: input.Status,
	}, nil
}

// UpdateServiceStatus sets the status of an existing service. Name, type and
// created_at are never touched.
func (s *Service) UpdateServiceStatus(ctx context.Context, orgID, serviceID, status string) error {
	if err := validateIDs(orgID, serviceID); err != nil {
		return err
	}

	err := s.mutator.Update(ctx, orgID, domain.ContainerServices, serviceID, Record{
		Fields:     map[string]interface{}{"status": status},
		Timestamps: []string{"updated_at"},
	})
	if err != nil {
		return fmt.Errorf("update service status: %w", err)
	}
	return nil
}

// DeleteService removes a service. Deleting a missing service succeeds.
func (s *Service) DeleteService(ctx context.Context, orgID, serviceID string) error {
	if err := validateIDs(orgID, serviceID); err != nil {
		return err
	}

	if err := s.mutator.Delete(ctx, orgID, domain.ContainerServices, serviceID); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return nil
}

// CreateIncidentInput contains data for creating an incident.
type CreateIncidentInput struct {
	OrganizationID   string
	Title            string
	Description      string
	Status           string
	Datetime         time.Time
	AffectedServices []string
}

// AddIncident creates an incident. Affected services are stored as given.
func (s *Service) AddIncident(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error) {
	if err := validateIDs(input.OrganizationID); err != nil {
		return nil, err
	}

	affected := input.AffectedServices
	if affected == nil {
		affected = []string{}
	}

	id, err := s.mutator.Create(ctx, input.OrganizationID, domain.ContainerIncidents, Record{
		Fields: map[string]interface{}{
			"title":            input.Title,
			"description":      input.Description,
			"status":           input.Status,
			"datetime":         input.Datetime.UTC(),
			"affectedServices": affected,
		},
		Timestamps: []string{"created_at", "updated_at"},
	})
	if err != nil {
		return nil, fmt.Errorf("add incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident added", "organization_id", input.OrganizationID, "incident_id", id)

	return &domain.Incident{
		ID:               id,
		Title:            input.Title,
		Description:      input.Description,
		Status:           input.Status,
		Datetime:         input.Datetime,
		AffectedServices: affected,
	}, nil
}

// UpdateIncidentInput contains data for updating an incident.
type UpdateIncidentInput struct {
	OrganizationID string
	IncidentID     string
	Status         string
	Message        string
}

// IncidentUpdate is the outcome of UpdateIncident.
type IncidentUpdate struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// UpdateIncident sets the incident status and appends a message. Setting the
// status to "resolved" stamps resolved_at, overwriting any earlier value.
func (s *Service) UpdateIncident(ctx context.Context, input UpdateIncidentInput) (*IncidentUpdate, error) {
	if err := validateIDs(input.OrganizationID, input.IncidentID); err != nil {
		return nil, err
	}

	messageID := s.mutator.NewID()
	messagePath := Path("messages", messageID)

	fields := map[string]interface{}{"status": input.Status}
	fields[Path(messagePath, "id")] = messageID
	fields[Path(messagePath, "message")] = input.Message
	fields[Path(messagePath, "status")] = input.Status

	rec := Record{
		Fields:     fields,
		Timestamps: []string{"updated_at", Path(messagePath, "timestamp")},
	}
	if input.Status == domain.IncidentStatusResolved {
		rec.Timestamps = append(rec.Timestamps, "resolved_at")
	}

	if err := s.mutator.Update(ctx, input.OrganizationID, domain.ContainerIncidents, input.IncidentID, rec); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	return &IncidentUpdate{MessageID: messageID, Status: input.Status}, nil
}

// GetOrganization returns the organization document with both containers
// initialized.
func (s *Service) GetOrganization(ctx context.Context, orgID string) (*domain.Organization, error) {
	if err := validateIDs(orgID); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if org.Services == nil {
		org.Services = map[string]domain.Service{}
	}
	if org.Incidents == nil {
		org.Incidents = map[string]domain.Incident{}
	}
	return org, nil
}

// ListOrganizationIDs returns the ids of every stored organization document.
func (s *Service) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	ids, err := s.repo.ListOrganizationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if !domain.IsValidID(id) {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}
