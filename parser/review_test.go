package parser

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

const fullEntry = `
<div id="R1ABC" data-hook="review" class="a-section review">
  <div data-hook="genome-widget" class="a-profile">
    <a class="a-profile" href="/gp/profile/amzn1.account.AAA/ref=cm_cr_arp_d_gw_btf">
      <span class="a-profile-name">Jane</span>
    </a>
  </div>
  <a data-hook="review-title" class="review-title" href="/gp/customer-reviews/R1ABC/ref=cm_cr_arp_d_rvw_ttl?ASIN=B07XJ8C8F5">
    <span>Works   great</span>
  </a>
  <i data-hook="review-star-rating" class="a-icon a-icon-star a-star-4 review-rating"><span>4.0 out of 5 stars</span></i>
  <span data-hook="review-date">Reviewed in the United States on March 3, 2020</span>
  <span data-hook="review-body"><span>
    Setup took two minutes.
  </span></span>
  <span data-hook="helpful-vote-statement">1,024 people found this helpful</span>
</div>`

func entryFrom(t *testing.T, markup string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + markup + "</body></html>"))
	require.NoError(t, err)
	sel := doc.Find(ReviewEntrySelector).First()
	require.Equal(t, 1, sel.Length(), "fixture must contain a review entry")
	return sel
}

func testContext() ReviewContext {
	base, _ := url.Parse("https://www.amazon.com")
	return ReviewContext{
		ProductID:    "B07XJ8C8F5",
		ProductTitle: "Echo Dot (3rd Gen) - Charcoal",
		BaseURL:      base,
	}
}

func TestExtractReviewFullEntry(t *testing.T) {
	review, err := ExtractReview(entryFrom(t, fullEntry), testContext())
	require.NoError(t, err)

	want := &models.Review{
		Title:        "Works   great",
		Body:         "Setup took two minutes.",
		Rating:       4,
		ReviewDate:   "Reviewed in the United States on March 3, 2020",
		HelpfulVotes: 1024,
		AuthorURL:    "https://www.amazon.com/gp/profile/amzn1.account.AAA/ref=cm_cr_arp_d_gw_btf",
		ReviewURL:    "https://www.amazon.com/gp/customer-reviews/R1ABC/ref=cm_cr_arp_d_rvw_ttl?ASIN=B07XJ8C8F5",
		ProductID:    "B07XJ8C8F5",
		ProductTitle: "Echo Dot (3rd Gen) - Charcoal",
	}
	if diff := cmp.Diff(want, review, cmpopts.IgnoreFields(models.Review{}, "ScrapedAt")); diff != "" {
		t.Fatal(diff)
	}
	require.NoError(t, ValidateReview(review))
}

func TestExtractReviewOptionalRegions(t *testing.T) {
	markup := strings.NewReplacer(
		`<span data-hook="helpful-vote-statement">1,024 people found this helpful</span>`, "",
		`<div data-hook="genome-widget" class="a-profile">`, `<div class="a-profile">`,
	).Replace(fullEntry)

	review, err := ExtractReview(entryFrom(t, markup), testContext())
	require.NoError(t, err)
	require.Equal(t, 0, review.HelpfulVotes)
	require.Empty(t, review.AuthorURL)
}

func TestExtractReviewNestedTitleAnchor(t *testing.T) {
	markup := strings.Replace(fullEntry,
		`<a data-hook="review-title" class="review-title" href="/gp/customer-reviews/R1ABC/ref=cm_cr_arp_d_rvw_ttl?ASIN=B07XJ8C8F5">
    <span>Works   great</span>
  </a>`,
		`<h5 data-hook="review-title"><a href="/gp/customer-reviews/R1ABC">Works great</a></h5>`, 1)

	review, err := ExtractReview(entryFrom(t, markup), testContext())
	require.NoError(t, err)
	require.Equal(t, "https://www.amazon.com/gp/customer-reviews/R1ABC", review.ReviewURL)
}

func TestExtractReviewRequiredRegions(t *testing.T) {
	tests := []struct {
		name   string
		remove string
	}{
		{name: "rating", remove: `data-hook="review-star-rating"`},
		{name: "title", remove: `data-hook="review-title"`},
		{name: "body", remove: `data-hook="review-body"`},
		{name: "date", remove: `data-hook="review-date"`},
		{name: "permalink", remove: `href="/gp/customer-reviews/R1ABC/ref=cm_cr_arp_d_rvw_ttl?ASIN=B07XJ8C8F5"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup := strings.Replace(fullEntry, tt.remove, "", 1)
			_, err := ExtractReview(entryFrom(t, markup), testContext())
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrMalformedEntry), "got %v", err)
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		class   string
		want    int
		wantErr bool
	}{
		{class: "a-icon a-icon-star a-star-5 review-rating", want: 5},
		{class: "a-icon a-icon-star a-star-1", want: 1},
		{class: "a-icon a-icon-star-mini a-star-mini-3", want: 3},
		{class: "a-icon a-icon-star", wantErr: true},
		{class: "a-icon a-star-9", wantErr: true},
		{class: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseRating(tt.class)
		if tt.wantErr {
			require.Error(t, err, tt.class)
			continue
		}
		require.NoError(t, err, tt.class)
		require.Equal(t, tt.want, got, tt.class)
	}
}

func TestParseHelpfulVotes(t *testing.T) {
	tests := map[string]int{
		"12 people found this helpful":    12,
		"1,024 people found this helpful": 1024,
		"One person found this helpful":   1,
		"  7 people found this helpful  ": 7,
		"Helpful":                         0,
		"":                                0,
	}
	for statement, want := range tests {
		require.Equal(t, want, ParseHelpfulVotes(statement), statement)
	}
}

func TestExtractListingSummary(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<html><body>
  <a data-hook="product-link" href="/dp/B07XJ8C8F5">
    Echo Dot (3rd Gen) - Charcoal
  </a>
  <div data-hook="total-review-count"><span>663 global reviews</span></div>
</body></html>`))
	require.NoError(t, err)

	require.Equal(t, "Echo Dot (3rd Gen) - Charcoal", ExtractProductTitle(doc))
	total, ok := ExtractTotalReviews(doc)
	require.True(t, ok)
	require.Equal(t, 663, total)
}

func TestExtractListingSummaryFallbacks(t *testing.T) {
	empty, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body></body></html>`))
	require.NoError(t, err)
	require.Equal(t, UnknownProductTitle, ExtractProductTitle(empty))
	_, ok := ExtractTotalReviews(empty)
	require.False(t, ok)

	noDigits, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><span data-hook="total-review-count">reviews</span></body></html>`))
	require.NoError(t, err)
	total, ok := ExtractTotalReviews(noDigits)
	require.True(t, ok)
	require.Equal(t, 1, total)

	thousands, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><span data-hook="total-review-count">1,234 global ratings</span></body></html>`))
	require.NoError(t, err)
	total, ok = ExtractTotalReviews(thousands)
	require.True(t, ok)
	require.Equal(t, 1234, total)
}

func TestExtractReviewKeepsInnerSpacing(t *testing.T) {
	body := "Step 1:    open box\n    Step 2:  plug in"
	markup := strings.Replace(fullEntry, "Setup took two minutes.", body, 1)

	review, err := ExtractReview(entryFrom(t, markup), testContext())
	require.NoError(t, err)
	require.Equal(t, body, review.Body)
	require.Equal(t, "Works   great", review.Title)
}

func TestExtractProductTitleKeepsSpacingForFilename(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><a data-hook="product-link" href="/dp/B07XJ8C8F5"> Echo  Dot </a></body></html>`))
	require.NoError(t, err)

	title := ExtractProductTitle(doc)
	require.Equal(t, "Echo  Dot", title)
	require.Equal(t, "Echo__Dot-B07XJ8C8F5.csv", OutputFilename(title, "B07XJ8C8F5", ".csv"))
}
