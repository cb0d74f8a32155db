// Package catalog implements the remote font catalog: the HTTP client, a
// circuit-breaking wrapper and an in-memory catalog for tests and dry runs.
package catalog

import (
	"fmt"
	"net/http"
	"time"

	"fonttrack/internal/config"
	"fonttrack/internal/ft"
)

// Client is a catalog that can also be listed.
type Client interface {
	ft.Catalog
	ft.CatalogReader
}

// NewCatalogFromConfig creates the catalog client named by cfg.Type.
func NewCatalogFromConfig(cfg config.CatalogConfig, logger ft.Logger) (Client, error) {
	var client Client
	switch cfg.Type {
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("http catalog requires base_url to be set")
		}
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = NewHTTPClient(cfg.BaseURL, &http.Client{Timeout: timeout},
			WithMaxRetries(cfg.MaxRetries),
			WithRateLimit(cfg.RequestsPerSecond),
		)
	case "memory":
		client = NewMemoryCatalog()
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}

	if cfg.CircuitBreaker {
		client = NewCircuitBreakerClient(client, "catalog-"+cfg.Type, DefaultBreakerSettings(), logger)
	}
	return client, nil
}
