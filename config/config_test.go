package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.Delay = -1
			},
			wantErr: "delay",
		},
		{
			name: "zero reviews per page",
			mutate: func(cfg *Config) {
				cfg.ReviewsPerPage = 0
			},
			wantErr: "reviews per page",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "no block markers",
			mutate: func(cfg *Config) {
				cfg.BlockMarkers = nil
			},
			wantErr: "block marker",
		},
		{
			name: "blank block marker",
			mutate: func(cfg *Config) {
				cfg.BlockMarkers = []string{"captcha", ""}
			},
			wantErr: "block markers",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "empty output dir",
			mutate: func(cfg *Config) {
				cfg.OutputDir = ""
			},
			wantErr: "output directory",
		},
		{
			name: "zero dedupe size",
			mutate: func(cfg *Config) {
				cfg.DedupeMaxSize = 0
			},
			wantErr: "dedupe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Delay != time.Second {
		t.Fatalf("default delay = %v, want 1s", cfg.Delay)
	}
	if cfg.ReviewsPerPage != 10 {
		t.Fatalf("default reviews per page = %d, want 10", cfg.ReviewsPerPage)
	}
}
