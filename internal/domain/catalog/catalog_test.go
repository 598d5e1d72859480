package catalog

import (
	"errors"
	"testing"
)

func TestLoad_EmbeddedCatalog(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	services := c.Services()
	if len(services) != 3 {
		t.Fatalf("expected 3 services, got %d", len(services))
	}

	// Order must match the seed file.
	wantNames := []string{"Basic Service", "Premium Service", "Deluxe Service"}
	for i, name := range wantNames {
		if services[i].Name != name {
			t.Errorf("services[%d].Name = %q, want %q", i, services[i].Name, name)
		}
	}
}

func TestLookup_KnownService(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	svc, err := c.Lookup("Premium Service")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if svc.Price != 200 {
		t.Errorf("Premium Service price = %v, want 200", svc.Price)
	}
	if svc.ID != 2 {
		t.Errorf("Premium Service id = %d, want 2", svc.ID)
	}
}

func TestLookup_UnknownService(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	_, err = c.Lookup("Nonexistent")
	if !errors.Is(err, ErrUnknownService) {
		t.Fatalf("Lookup(Nonexistent) error = %v, want ErrUnknownService", err)
	}
}

func TestLookup_CaseSensitive(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Matching is exact and case-sensitive.
	if _, err := c.Lookup("premium service"); !errors.Is(err, ErrUnknownService) {
		t.Errorf("lowercase lookup should fail, got %v", err)
	}
	if _, err := c.Lookup("Premium Service "); !errors.Is(err, ErrUnknownService) {
		t.Errorf("trailing-space lookup should fail, got %v", err)
	}
}

func TestLoadFrom_RejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty list", "services: []"},
		{"missing name", "services:\n  - id: 1\n    price: 10"},
		{"duplicate name", "services:\n  - id: 1\n    name: A\n    price: 10\n  - id: 2\n    name: A\n    price: 20"},
		{"malformed yaml", "services: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadFrom([]byte(tt.yaml)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestServices_ReturnsCopy(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	services := c.Services()
	services[0].Price = 9999

	again := c.Services()
	if again[0].Price == 9999 {
		t.Error("mutating the returned slice must not affect the catalog")
	}
}
