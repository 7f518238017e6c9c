package domain

import "time"

// Service represents a monitored component on an organization's status page.
// Status is free-form text chosen by the organization (e.g. "up", "degraded").
type Service struct {
	ID        string     `json:"id" bson:"id"`
	Name      string     `json:"name" bson:"name"`
	Type      string     `json:"type" bson:"type"`
	Status    string     `json:"status" bson:"status"`
	CreatedAt *time.Time `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at" bson:"updated_at,omitempty"`
}
