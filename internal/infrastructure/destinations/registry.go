package destinations

import (
	"context"

	"github.com/paperflow-io/paperflow/internal/core/ports"
)

// Registry is the centralized configuration view over all destinations.
type Registry struct {
	destinations []ports.Destination
}

func NewRegistry(destinations []ports.Destination) *Registry {
	return &Registry{destinations: destinations}
}

func (r *Registry) All() []ports.Destination {
	return r.destinations
}

func (r *Registry) Statuses(_ context.Context) (map[string]bool, error) {
	statuses := make(map[string]bool, len(r.destinations))
	for _, dest := range r.destinations {
		statuses[dest.Name()] = dest.IsConfigured()
	}
	return statuses, nil
}
