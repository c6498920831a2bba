// Package config builds server configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"time"
)

// Server captures the compliance server's runtime configuration.
type Server struct {
	// Addr is the HTTP listen address.
	Addr string

	// DatabaseURL selects the Postgres catalog store when set; otherwise the
	// server runs on an in-memory store seeded from CatalogPath.
	DatabaseURL string

	// CatalogPath is the YAML catalog file used to seed the in-memory store.
	CatalogPath string

	// CacheTTL bounds the age of cached active-rule snapshots; 0 means
	// mutation-driven invalidation only.
	CacheTTL time.Duration

	// ServiceName is reported to the logging pipeline.
	ServiceName string
}

// FromEnv reads configuration from the environment, applying defaults.
func FromEnv() Server {
	cfg := Server{
		Addr:        ":8080",
		CatalogPath: "catalog/seed/catalog.yaml",
		ServiceName: "compliance-engine",
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if path := os.Getenv("CATALOG_PATH"); path != "" {
		cfg.CatalogPath = path
	}
	if ttl := os.Getenv("RULES_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		cfg.ServiceName = name
	}

	return cfg
}
