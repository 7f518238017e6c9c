package domain

import "regexp"

// Container names the per-organization mapping that holds child records.
type Container string

// Containers.
const (
	ContainerServices  Container = "services"
	ContainerIncidents Container = "incidents"
)

// IsValid checks if the container is known.
func (c Container) IsValid() bool {
	return c == ContainerServices || c == ContainerIncidents
}

// Organization is the per-tenant document holding services and incidents keyed by id.
// Either map is nil until the first record of that kind is written.
type Organization struct {
	ID        string              `json:"id" bson:"_id"`
	Services  map[string]Service  `json:"services" bson:"services,omitempty"`
	Incidents map[string]Incident `json:"incidents" bson:"incidents,omitempty"`
}

// HasChild reports whether the container holds a record with the given id.
func (o *Organization) HasChild(c Container, id string) bool {
	switch c {
	case ContainerServices:
		_, ok := o.Services[id]
		return ok
	case ContainerIncidents:
		_, ok := o.Incidents[id]
		return ok
	}
	return false
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// IsValidID checks that an organization or record id is safe to embed in a
// dotted field path: it must not contain separators or operator prefixes.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}
