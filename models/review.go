// Package models defines data structures for the scraper.
package models

import "time"

// Review is one customer review extracted from a listing page.
// AuthorURL is empty when the entry carries no reviewer profile link.
type Review struct {
	Title        string    `csv:"Title" json:"title"`
	Body         string    `csv:"Comment" json:"body"`
	Rating       int       `csv:"Rating" json:"rating"`
	ReviewDate   string    `csv:"Date" json:"review_date"`
	HelpfulVotes int       `csv:"Helpful" json:"helpful_votes"`
	AuthorURL    string    `csv:"author_url" json:"author_url,omitempty"`
	ReviewURL    string    `csv:"review_url" json:"review_url"`
	ProductID    string    `csv:"-" json:"product_id"`
	ProductTitle string    `csv:"-" json:"product_title"`
	ScrapedAt    time.Time `csv:"-" json:"scraped_at"`
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	ProductID        string
	ProductTitle     string
	TotalReviews     int
	PageCeiling      int
	StartPage        int
	PageCount        int
	ReviewCount      int
	MalformedEntries int
	StopReason       string
	StartTime        time.Time
	EndTime          time.Time
	RequestCount     int
	ErrorCount       int
	ErrorsByType     map[string]int
}
