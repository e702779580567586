package config

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultProductID is scraped when neither a product ID nor a product URL is given.
const DefaultProductID = "B00Z16VF3E"

// Config holds scraper configuration.
type Config struct {
	BaseURL          string        `yaml:"baseUrl"`
	Delay            time.Duration `yaml:"delay"`
	Timeout          time.Duration `yaml:"timeout"`
	ReviewsPerPage   int           `yaml:"reviewsPerPage"`
	BlockMarkers     []string      `yaml:"blockMarkers"`
	OutputDir        string        `yaml:"outputDir"`
	OutputFormat     string        `yaml:"outputFormat"` // csv, json, or dual
	UserAgent        string        `yaml:"userAgent"`
	DedupeMaxSize    int           `yaml:"dedupeMaxSize"`
	MetricsAddr      string        `yaml:"metricsAddr"`
	ProductID        string        `yaml:"productId"`
	Verbose          bool          `yaml:"verbose"`
	RespectRobotsTxt bool          `yaml:"respectRobotsTxt"`
}

// DefaultConfig returns conservative defaults for the review listing.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www.amazon.com",
		Delay:            time.Second,
		Timeout:          30 * time.Second,
		ReviewsPerPage:   10,
		BlockMarkers:     []string{"captcha"},
		OutputDir:        "comments",
		OutputFormat:     "csv",
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/79.0.3945.74 Safari/537.36 Edg/79.0.309.43",
		DedupeMaxSize:    100000,
		ProductID:        DefaultProductID,
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ReviewsPerPage <= 0 {
		return fmt.Errorf("reviews per page must be positive")
	}
	if len(c.BlockMarkers) == 0 {
		return fmt.Errorf("at least one block marker is required")
	}
	for _, marker := range c.BlockMarkers {
		if marker == "" {
			return fmt.Errorf("block markers cannot be empty")
		}
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}
