// Package pipeline validates scraped reviews, drops duplicates and appends
// them to per-product output files.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(reviews []*models.Review) error
	Close() error
	Validate() error
}

// Pipeline validates, de-duplicates and writes reviews in the caller's
// goroutine. Rows land on disk in scrape order.
type Pipeline struct {
	writer OutputWriter
	seen   *lru.Cache[string, struct{}]

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error
}

// NewPipeline builds a pipeline remembering up to cfg.DedupeMaxSize permalinks.
func NewPipeline(writer OutputWriter, cfg *config.Config) (*Pipeline, error) {
	size := config.DefaultConfig().DedupeMaxSize
	if cfg != nil && cfg.DedupeMaxSize > 0 {
		size = cfg.DedupeMaxSize
	}
	seen, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Pipeline{
		writer:  writer,
		seen:    seen,
		metrics: newMetrics(),
	}, nil
}

// Process validates and writes reviews. Invalid and already seen reviews are
// dropped and counted; a write failure closes the pipeline.
func (p *Pipeline) Process(reviews ...*models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	batch := make([]*models.Review, 0, len(reviews))
	for _, review := range reviews {
		if prepared := p.prepare(review); prepared != nil {
			batch = append(batch, prepared)
		}
	}
	if len(batch) == 0 {
		return nil
	}

	if err := p.writer.Write(batch); err != nil {
		p.err = fmt.Errorf("write batch: %w", err)
		p.closed = true
		return p.err
	}
	p.metrics.addProcessed(len(batch))
	return nil
}

// Close prevents more submissions and closes the writer.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed && p.err == nil {
		return nil
	}
	p.closed = true
	if err := p.writer.Close(); err != nil && p.err == nil {
		p.err = fmt.Errorf("close writer: %w", err)
	}
	return p.err
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) prepare(review *models.Review) *models.Review {
	if err := parser.ValidateReview(review); err != nil {
		slog.Debug("dropping invalid review", slog.Any("error", err))
		p.metrics.addValidation("invalid_record")
		return nil
	}

	if found, _ := p.seen.ContainsOrAdd(review.ReviewURL, struct{}{}); found {
		p.metrics.addValidation("duplicate_url")
		return nil
	}

	review.Title = strings.TrimSpace(review.Title)
	review.Body = strings.TrimSpace(review.Body)
	review.ReviewDate = strings.TrimSpace(review.ReviewDate)
	return review
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addProcessed(n int) {
	m.mu.Lock()
	m.processed += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_reviews": m.processed,
		"validation_errors": copyValidation,
	}
}
