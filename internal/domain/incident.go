package domain

import "time"

// IncidentStatusResolved is the only status with a side effect: setting it stamps resolved_at.
const IncidentStatusResolved = "resolved"

// Incident represents a reported disruption affecting one or more services.
type Incident struct {
	ID               string             `json:"id" bson:"id"`
	Title            string             `json:"title" bson:"title"`
	Description      string             `json:"description" bson:"description"`
	Status           string             `json:"status" bson:"status"`
	Datetime         time.Time          `json:"datetime" bson:"datetime"`
	AffectedServices []string           `json:"affectedServices" bson:"affectedServices"`
	CreatedAt        *time.Time         `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt        *time.Time         `json:"updated_at" bson:"updated_at,omitempty"`
	ResolvedAt       *time.Time         `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
	Messages         map[string]Message `json:"messages,omitempty" bson:"messages,omitempty"`
}

// IsResolved reports whether the incident currently carries the resolved status.
func (i *Incident) IsResolved() bool {
	return i.Status == IncidentStatusResolved
}

// Message is a status timeline entry appended to an incident on every update.
type Message struct {
	ID        string     `json:"id" bson:"id"`
	Message   string     `json:"message" bson:"message"`
	Status    string     `json:"status" bson:"status"`
	Timestamp *time.Time `json:"timestamp" bson:"timestamp,omitempty"`
}
