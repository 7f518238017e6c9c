package domain

// OrganizationInfo describes an organization as the identity provider reports it.
type OrganizationInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Membership is a caller's association with an organization. It is resolved from the
// identity provider on every request and never stored by this service.
type Membership struct {
	ID           string           `json:"id"`
	Role         string           `json:"role"`
	Organization OrganizationInfo `json:"organization"`
	CreatedAt    int64            `json:"created_at,omitempty"`
	UpdatedAt    int64            `json:"updated_at,omitempty"`
}

// Caller is an authenticated user together with the memberships resolved for the
// current request.
type Caller struct {
	UserID      string
	Memberships []Membership
}
