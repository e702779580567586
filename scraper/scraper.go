package scraper

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
)

// Stop reasons reported in models.ScraperResult.
const (
	StopInvalidProductID = "invalid_product_id"
	StopNoReviews        = "no_reviews"
	StopNoReviewList     = "no_review_list"
	StopEmptyPage        = "empty_page"
	StopCompleted        = "completed"
	StopAborted          = "aborted"
)

// Scraper walks the review listing of one product page by page.
type Scraper struct {
	cfg     *config.Config
	fetcher *Fetcher
	base    *url.URL
	Metrics *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		base:    fetcher.base,
		Metrics: metrics,
	}, nil
}

// walkState accumulates what a walk learned about the listing.
type walkState struct {
	productTitle string
	total        int
	ceiling      int
	startPage    int
	pages        int
	reviews      int
	malformed    int
	stopReason   string
}

// Walk returns the reviews of productID in listing order, skipping the
// first skip reviews. The sequence fetches lazily and can be ranged once;
// a non-nil error is the last element.
func (s *Scraper) Walk(ctx context.Context, productID string, skip int) iter.Seq2[*models.Review, error] {
	return func(yield func(*models.Review, error) bool) {
		s.walk(ctx, productID, skip, &walkState{}, yield)
	}
}

// Run walks the listing and sends every review through p. The result is
// returned even when the walk fails.
func (s *Scraper) Run(ctx context.Context, productID string, skip int, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	st := &walkState{}
	var runErr error
	s.walk(ctx, productID, skip, st, func(review *models.Review, err error) bool {
		if err != nil {
			runErr = err
			return false
		}
		if err := p.Process(review); err != nil {
			runErr = fmt.Errorf("process review: %w", err)
			return false
		}
		return true
	})

	result := &models.ScraperResult{
		ProductID:        productID,
		ProductTitle:     st.productTitle,
		TotalReviews:     st.total,
		PageCeiling:      st.ceiling,
		StartPage:        st.startPage,
		PageCount:        st.pages,
		ReviewCount:      st.reviews,
		MalformedEntries: st.malformed,
		StopReason:       st.stopReason,
		StartTime:        start,
		EndTime:          time.Now(),
		RequestCount:     s.fetcher.RequestCount(),
		ErrorCount:       s.fetcher.ErrorCount(),
		ErrorsByType:     s.fetcher.ErrorsByType(),
	}
	return result, runErr
}

func (s *Scraper) walk(ctx context.Context, productID string, skip int, st *walkState, yield func(*models.Review, error) bool) {
	logger := slog.With(slog.String("product_id", productID))

	if !parser.ValidProductID(productID) {
		logger.Warn("invalid product id, nothing to scrape")
		st.stopReason = StopInvalidProductID
		return
	}

	first, err := s.fetcher.Fetch(ctx, parser.ReviewsPath(productID, 1))
	if err != nil {
		st.stopReason = StopAborted
		yield(nil, err)
		return
	}

	rc := parser.ReviewContext{
		ProductID:    productID,
		ProductTitle: parser.ExtractProductTitle(first),
		BaseURL:      s.base,
	}
	st.productTitle = rc.ProductTitle

	total, ok := parser.ExtractTotalReviews(first)
	if !ok || total <= 0 {
		logger.Info("no reviews found", slog.String("product_title", rc.ProductTitle))
		st.stopReason = StopNoReviews
		return
	}

	perPage := s.cfg.ReviewsPerPage
	st.total = total
	st.ceiling = parser.PageCeiling(total, perPage)
	st.startPage = parser.StartPage(skip, st.ceiling, perPage)
	if skip > 0 && skip >= st.ceiling*perPage {
		logger.Warn("skip exceeds review count, starting over", slog.Int("skip", skip), slog.Int("total", total))
	}

	logger.Info("walking review pages",
		slog.String("product_title", rc.ProductTitle),
		slog.Int("total_reviews", total),
		slog.Int("start_page", st.startPage),
		slog.Int("last_page", st.ceiling),
	)

	for page := st.startPage; page <= st.ceiling; page++ {
		doc := first
		if page != 1 {
			doc, err = s.fetcher.Fetch(ctx, parser.ReviewsPath(productID, page))
			if err != nil {
				st.stopReason = StopAborted
				yield(nil, err)
				return
			}
		}

		list := doc.Find(parser.ReviewListSelector)
		if list.Length() == 0 {
			logger.Info("review list missing, stopping", slog.Int("page", page))
			st.stopReason = StopNoReviewList
			return
		}
		entries := list.Find(parser.ReviewEntrySelector)
		if entries.Length() == 0 {
			logger.Info("review page is empty, stopping", slog.Int("page", page))
			st.stopReason = StopEmptyPage
			return
		}

		st.pages++
		s.Metrics.IncPages()

		for i := range entries.Length() {
			review, err := parser.ExtractReview(entries.Eq(i), rc)
			if err != nil {
				logger.Warn("skipping malformed review",
					slog.Int("page", page),
					slog.Int("entry", i),
					slog.Any("error", err),
				)
				st.malformed++
				s.Metrics.IncMalformed()
				continue
			}

			st.reviews++
			s.Metrics.IncReviews()
			logger.Debug("review",
				slog.String("date", review.ReviewDate),
				slog.Int("rating", review.Rating),
				slog.String("title", review.Title),
			)
			if !yield(review, nil) {
				st.stopReason = StopAborted
				return
			}
		}

		logger.Info("page done",
			slog.Int("page", page),
			slog.Int("last_page", st.ceiling),
			slog.Int("percent", page*100/st.ceiling),
		)
	}

	st.stopReason = StopCompleted
}
