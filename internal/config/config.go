// Package config loads the server's runtime configuration from the
// environment.
package config

import (
	"fmt"

	"github.com/marginalia-app/marginalia/internal/gcp"
)

// Config holds everything the server needs to start.
type Config struct {
	ProjectID           string
	Bucket              string
	FirestoreCollection string
	VertexRegion        string
	SummaryModel        string
	ListenAddr          string
}

// Load reads the configuration from the environment. PROJECT_ID and
// PDF_BUCKET are required; everything else has a sensible default.
func Load() (*Config, error) {
	cfg := &Config{
		ProjectID:           gcp.GetEnv("PROJECT_ID", ""),
		Bucket:              gcp.GetEnv("PDF_BUCKET", ""),
		FirestoreCollection: gcp.GetEnv("FIRESTORE_COLLECTION", "pdfs"),
		VertexRegion:        gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		SummaryModel:        gcp.GetEnv("SUMMARY_MODEL", "gemini-1.5-flash"),
		ListenAddr:          gcp.GetEnv("LISTEN_ADDR", ":8080"),
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("PDF_BUCKET environment variable is required")
	}
	return cfg, nil
}
