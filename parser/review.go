package parser

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// Listing selectors.
const (
	ReviewListSelector   = "#cm_cr-review_list"
	ReviewEntrySelector  = `div[data-hook="review"]`
	productTitleSelector = `[data-hook="product-link"]`
	totalCountSelector   = `[data-hook="total-review-count"]`
)

var (
	// ErrMalformedEntry is returned when a review entry lacks a required region.
	ErrMalformedEntry = errors.New("malformed review entry")

	starClassExpr = regexp.MustCompile(`^a-star-(?:mini-)?(\d+)$`)
	numberExpr    = regexp.MustCompile(`\d[\d,.]*`)

	ratingSelectors = []string{
		`[data-hook="review-star-rating"]`,
		`[data-hook="cmps-review-star-rating"]`,
	}
)

// ReviewContext carries the product-level values every extracted review shares.
type ReviewContext struct {
	ProductID    string
	ProductTitle string
	// BaseURL resolves relative permalinks; nil keeps hrefs as found.
	BaseURL *url.URL
}

func (rc ReviewContext) absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || rc.BaseURL == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return rc.BaseURL.ResolveReference(ref).String()
}

// ExtractProductTitle returns the product name shown above the listing,
// or UnknownProductTitle.
func ExtractProductTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find(productTitleSelector).First().Text())
	if title == "" {
		return UnknownProductTitle
	}
	return title
}

// ExtractTotalReviews reads the review count from the listing summary.
// ok is false when the summary is missing. A summary without any number
// counts as a single review.
func ExtractTotalReviews(doc *goquery.Document) (total int, ok bool) {
	sel := doc.Find(totalCountSelector).First()
	if sel.Length() == 0 {
		return 0, false
	}
	n, found := leadingNumber(sel.Text())
	if !found {
		return 1, true
	}
	return n, true
}

// ExtractReview builds a review from one listing entry. Missing rating,
// title, body, date or permalink fail with ErrMalformedEntry; a missing
// author link or helpful-vote statement does not.
func ExtractReview(entry *goquery.Selection, rc ReviewContext) (*models.Review, error) {
	rating, err := extractRating(entry)
	if err != nil {
		return nil, err
	}

	titleSel := entry.Find(`[data-hook="review-title"]`).First()
	title := strings.TrimSpace(titleSel.Text())
	if title == "" {
		return nil, missing("review-title")
	}

	permalink := titleSel.AttrOr("href", "")
	if permalink == "" {
		permalink = titleSel.Find("a[href]").First().AttrOr("href", "")
	}
	if strings.TrimSpace(permalink) == "" {
		return nil, missing("review-title href")
	}

	body := strings.TrimSpace(entry.Find(`[data-hook="review-body"]`).First().Text())
	if body == "" {
		return nil, missing("review-body")
	}

	date := strings.TrimSpace(entry.Find(`[data-hook="review-date"]`).First().Text())
	if date == "" {
		return nil, missing("review-date")
	}

	authorURL := ""
	if href, ok := entry.Find(`[data-hook="genome-widget"] a[href]`).First().Attr("href"); ok {
		authorURL = rc.absolute(href)
	}

	helpful := 0
	if statement := entry.Find(`[data-hook="helpful-vote-statement"]`).First(); statement.Length() > 0 {
		helpful = ParseHelpfulVotes(statement.Text())
	}

	return &models.Review{
		Title:        title,
		Body:         body,
		Rating:       rating,
		ReviewDate:   date,
		HelpfulVotes: helpful,
		AuthorURL:    authorURL,
		ReviewURL:    rc.absolute(permalink),
		ProductID:    rc.ProductID,
		ProductTitle: rc.ProductTitle,
		ScrapedAt:    time.Now(),
	}, nil
}

func extractRating(entry *goquery.Selection) (int, error) {
	for _, selector := range ratingSelectors {
		sel := entry.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		return ParseRating(sel.AttrOr("class", ""))
	}
	return 0, missing("review-star-rating")
}

// ParseRating reads the star count from a class list such as
// "a-icon a-icon-star a-star-4 review-rating".
func ParseRating(class string) (int, error) {
	for _, token := range strings.Fields(class) {
		m := starClassExpr.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > 5 {
			return 0, fmt.Errorf("%w: star rating %q out of range", ErrMalformedEntry, token)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: no star class in %q", ErrMalformedEntry, class)
}

// ParseHelpfulVotes reads the leading count of a helpful-vote statement
// ("1,024 people found this helpful"). "One person ..." counts as 1 and
// anything unreadable as 0.
func ParseHelpfulVotes(statement string) int {
	statement = strings.TrimSpace(statement)
	if n, ok := leadingNumber(statement); ok {
		return n
	}
	if strings.HasPrefix(strings.ToLower(statement), "one ") {
		return 1
	}
	return 0
}

func leadingNumber(text string) (int, bool) {
	match := numberExpr.FindString(text)
	if match == "" {
		return 0, false
	}
	digits := strings.NewReplacer(",", "", ".", "").Replace(match)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func missing(region string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedEntry, region)
}
