package catalog_test

import (
	"fmt"
	"testing"

	"fonttrack/internal/catalog"
	"fonttrack/internal/config"
)

func TestNewCatalogFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.CatalogConfig
		wantType string
		wantErr  bool
	}{
		{
			name:     "http",
			cfg:      config.CatalogConfig{Type: "http", BaseURL: "http://127.0.0.1:8000", MaxRetries: 2},
			wantType: "*catalog.HTTPClient",
		},
		{
			name:     "http with circuit breaker",
			cfg:      config.CatalogConfig{Type: "http", BaseURL: "http://127.0.0.1:8000", CircuitBreaker: true, RequestsPerSecond: 5},
			wantType: "*catalog.CircuitBreakerClient",
		},
		{
			name:    "http without base url",
			cfg:     config.CatalogConfig{Type: "http"},
			wantErr: true,
		},
		{
			name:     "memory",
			cfg:      config.CatalogConfig{Type: "memory"},
			wantType: "*catalog.MemoryCatalog",
		},
		{
			name:    "unknown",
			cfg:     config.CatalogConfig{Type: "grpc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := catalog.NewCatalogFromConfig(tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if client != nil {
					t.Errorf("client = %T, want nil", client)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCatalogFromConfig() error = %v", err)
			}
			if got := fmt.Sprintf("%T", client); got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
		})
	}
}
