// Package catalog provides the static service catalog.
//
// The catalog is a preloaded, immutable list of purchasable offerings with
// fixed prices. It is reference data only: nothing in this package is
// persisted, and lookups never mutate state.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed services.yaml
var servicesYAML []byte

// ErrUnknownService is returned when a lookup names no catalog entry.
// The message is safe to return to clients verbatim.
var ErrUnknownService = errors.New("Invalid service selection")

// Service is a single purchasable offering.
type Service struct {
	ID    int     `yaml:"id" json:"id"`
	Name  string  `yaml:"name" json:"name"`
	Price float64 `yaml:"price" json:"price"`
}

// Catalog is an immutable set of services, indexed by exact name.
type Catalog struct {
	services []Service
	byName   map[string]Service
}

// Load parses the embedded service list and builds the catalog.
func Load() (*Catalog, error) {
	return loadFrom(servicesYAML)
}

// loadFrom builds a catalog from raw YAML. Split out for tests.
func loadFrom(data []byte) (*Catalog, error) {
	var doc struct {
		Services []Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse service catalog: %w", err)
	}
	if len(doc.Services) == 0 {
		return nil, errors.New("service catalog is empty")
	}

	byName := make(map[string]Service, len(doc.Services))
	for _, svc := range doc.Services {
		if svc.Name == "" {
			return nil, fmt.Errorf("service id %d has no name", svc.ID)
		}
		if _, dup := byName[svc.Name]; dup {
			return nil, fmt.Errorf("duplicate service name: %s", svc.Name)
		}
		byName[svc.Name] = svc
	}

	return &Catalog{services: doc.Services, byName: byName}, nil
}

// Services returns all offerings in catalog order.
// The returned slice is a copy; callers may not mutate catalog state.
func (c *Catalog) Services() []Service {
	out := make([]Service, len(c.services))
	copy(out, c.services)
	return out
}

// Lookup resolves a service by exact, case-sensitive name.
// Returns ErrUnknownService when the name matches no entry.
func (c *Catalog) Lookup(name string) (Service, error) {
	svc, ok := c.byName[name]
	if !ok {
		return Service{}, ErrUnknownService
	}
	return svc, nil
}
