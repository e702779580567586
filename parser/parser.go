// Package parser turns review listing markup into models.Review values and
// holds the small pure helpers (paging, naming, product IDs) around it.
package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// ValidateReview ensures the extractor captured the required fields.
func ValidateReview(r *models.Review) error {
	if r == nil {
		return fmt.Errorf("review is nil")
	}
	if !ValidProductID(r.ProductID) {
		return fmt.Errorf("review has invalid product id %q", r.ProductID)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("review missing title")
	}
	if strings.TrimSpace(r.Body) == "" {
		return fmt.Errorf("review missing body for %s", r.Title)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("review rating %d out of range for %s", r.Rating, r.Title)
	}
	if r.HelpfulVotes < 0 {
		return fmt.Errorf("review helpful votes negative for %s", r.Title)
	}
	if strings.TrimSpace(r.ReviewURL) == "" {
		return fmt.Errorf("review missing permalink for %s", r.Title)
	}
	return nil
}
