package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
)

// CSVHeader is the first row of every review CSV file.
var CSVHeader = []string{"Title", "Comment", "Rating", "Date", "Helpful", "author_url", "review_url"}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CSVWriter appends reviews to one CSV file per product under a directory.
// Each append opens, writes and closes the file.
type CSVWriter struct {
	dir     string
	mu      sync.Mutex
	written map[string]struct{}
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &CSVWriter{
		dir:     dir,
		written: make(map[string]struct{}),
	}, nil
}

// Path returns the CSV file a review is appended to.
func (cw *CSVWriter) Path(r *models.Review) string {
	return filepath.Join(cw.dir, parser.OutputFilename(r.ProductTitle, r.ProductID, ".csv"))
}

// Write appends reviews in order.
func (cw *CSVWriter) Write(reviews []*models.Review) error {
	for _, review := range reviews {
		if err := cw.Append(review); err != nil {
			return err
		}
	}
	return nil
}

// Append writes one row, preceded by the header when the file is new.
func (cw *CSVWriter) Append(r *models.Review) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := ensureDir(cw.dir); err != nil {
		return err
	}

	path := cw.Path(r)
	exists, err := fileExists(path)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if !exists {
		if err := writer.Write(CSVHeader); err != nil {
			f.Close()
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	record := []string{
		r.Title,
		r.Body,
		strconv.Itoa(r.Rating),
		r.ReviewDate,
		strconv.Itoa(r.HelpfulVotes),
		r.AuthorURL,
		r.ReviewURL,
	}
	if err := writer.Write(record); err != nil {
		f.Close()
		return fmt.Errorf("write csv record: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv file: %w", err)
	}

	cw.written[path] = struct{}{}
	return nil
}

// Close is a no-op; files are closed after every append.
func (cw *CSVWriter) Close() error {
	return nil
}

// Validate ensures every file written during this run has content.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return validateFiles(cw.written, "csv")
}

// Files lists the files written during this run.
func (cw *CSVWriter) Files() []string {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return sortedKeys(cw.written)
}

// JSONWriter appends newline-delimited JSON records, one file per product.
type JSONWriter struct {
	dir     string
	mu      sync.Mutex
	written map[string]struct{}
}

// NewJSONWriter creates the output directory if needed.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &JSONWriter{
		dir:     dir,
		written: make(map[string]struct{}),
	}, nil
}

// Path returns the JSON Lines file a review is appended to.
func (jw *JSONWriter) Path(r *models.Review) string {
	return filepath.Join(jw.dir, parser.OutputFilename(r.ProductTitle, r.ProductID, ".jsonl"))
}

// Write appends reviews in JSONL format.
func (jw *JSONWriter) Write(reviews []*models.Review) error {
	for _, review := range reviews {
		if err := jw.Append(review); err != nil {
			return err
		}
	}
	return nil
}

// Append encodes one review as a single line.
func (jw *JSONWriter) Append(r *models.Review) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := ensureDir(jw.dir); err != nil {
		return err
	}

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode json record: %w", err)
	}

	path := jw.Path(r)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open json file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write json record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close json file: %w", err)
	}

	jw.written[path] = struct{}{}
	return nil
}

// Close is a no-op; files are closed after every append.
func (jw *JSONWriter) Close() error {
	return nil
}

// Validate ensures every JSON file written during this run has data.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return validateFiles(jw.written, "json")
}

// Files lists the files written during this run.
func (jw *JSONWriter) Files() []string {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return sortedKeys(jw.written)
}

func validateFiles(files map[string]struct{}, kind string) error {
	for path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s file: %w", kind, err)
		}
		if info.Size() <= 0 {
			return fmt.Errorf("%s file %s is empty", kind, path)
		}
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
