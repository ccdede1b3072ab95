package domain

import "context"

// Location is a venue events take place at.
// swagger:model Location
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LocationRepository defines lookups on locations.
type LocationRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
}
