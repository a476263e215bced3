// Package sheetfaq serves the Niharika curated Q&A set, a published Google
// Sheet holding Bengali/English question-answer pairs for maternal health.
// The sheet is downloaded as CSV on every lookup; no copy is cached.
package sheetfaq

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"webfaq-backend/models"
)

// ErrSheetUnavailable is returned when the sheet export cannot be fetched or
// parsed. The /faq/niharika handler treats it as empty results.
var ErrSheetUnavailable = errors.New("faq sheet unavailable")

// SourcePMID is the synthetic identifier attached to curated entries so they
// share the Source shape with PubMed articles.
const SourcePMID = "niharika-faq"

// relevanceThreshold is the minimum word-overlap score a row needs to match.
const relevanceThreshold = 0.3

// medicalTerms boost a row's score when present in both query and row text.
var medicalTerms = []string{
	"pregnancy", "pregnant", "baby", "nutrition", "diet",
	"headache", "pain", "symptom", "treatment",
}

// Entry is one curated Q&A row from the sheet.
type Entry struct {
	Keywords        string
	QuestionBengali string
	QuestionEnglish string
	AnswerBengali   string
	AnswerEnglish   string
}

// Service reads and searches the curated FAQ sheet.
type Service struct {
	csvURL     string
	sheetURL   string
	httpClient *http.Client
	logger     *zap.Logger
}

// ServiceOption is a functional option for Service.
type ServiceOption func(*Service)

// WithCSVURL sets the CSV export URL (used by tests).
func WithCSVURL(u string) ServiceOption {
	return func(s *Service) {
		s.csvURL = u
	}
}

// WithSheetURL sets the human-facing sheet URL used in source links.
func WithSheetURL(u string) ServiceOption {
	return func(s *Service) {
		s.sheetURL = u
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a sheet FAQ service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup downloads the sheet and returns the best-matching rows as FAQ items.
// No matches yields an empty slice, not an error.
func (s *Service) Lookup(ctx context.Context, query string, maxResults int) ([]models.FAQItem, error) {
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	return s.match(query, entries, maxResults), nil
}

// loadEntries fetches the CSV export and parses the data section. Rows start
// after the header row whose first columns contain "Keywords" and
// "Questions"; everything above is sheet decoration.
func (s *Service) loadEntries(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("sheet download failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSheetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("sheet returned non-200 status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrSheetUnavailable, resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	var entries []Entry
	inData := false
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Ragged rows are tolerated via FieldsPerRecord; anything else
			// means the export is corrupt and must not be served partially.
			s.logger.Warn("sheet csv parse failed", zap.Error(err))
			return nil, fmt.Errorf("%w: parse csv: %v", ErrSheetUnavailable, err)
		}
		if len(row) == 0 {
			continue
		}
		if !inData {
			if len(row) > 1 && strings.Contains(row[0], "Keywords") && strings.Contains(row[1], "Questions") {
				inData = true
			}
			continue
		}
		if len(row) < 4 {
			continue
		}
		e := Entry{
			Keywords:        strings.TrimSpace(row[0]),
			QuestionBengali: strings.TrimSpace(row[1]),
			QuestionEnglish: strings.TrimSpace(row[2]),
			AnswerBengali:   strings.TrimSpace(row[3]),
		}
		if len(row) > 4 {
			e.AnswerEnglish = strings.TrimSpace(row[4])
		}
		if e.Keywords == "" || e.QuestionBengali == "" {
			continue
		}
		entries = append(entries, e)
	}

	if !inData {
		return nil, fmt.Errorf("%w: data header row not found", ErrSheetUnavailable)
	}
	return entries, nil
}

type scoredEntry struct {
	entry Entry
	score float64
	order int
}

// match ranks entries by word overlap with the query and returns the top
// maxResults rows above the relevance threshold as FAQ items.
func (s *Service) match(query string, entries []Entry, maxResults int) []models.FAQItem {
	queryLower := strings.ToLower(query)
	queryWords := tokenSet(queryLower)

	scored := make([]scoredEntry, 0, len(entries))
	for i, e := range entries {
		text := strings.ToLower(e.Keywords + " " + e.QuestionEnglish + " " + e.AnswerEnglish)
		entryWords := tokenSet(text)

		common := 0
		for w := range queryWords {
			if entryWords[w] {
				common++
			}
		}
		denom := len(queryWords)
		if denom == 0 {
			denom = 1
		}
		score := float64(common) / float64(denom)

		for _, term := range medicalTerms {
			if strings.Contains(queryLower, term) && strings.Contains(text, term) {
				score += 0.1
			}
		}
		if score > 1.0 {
			score = 1.0
		}
		scored = append(scored, scoredEntry{entry: e, score: score, order: i})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].order < scored[j].order
	})

	results := make([]models.FAQItem, 0, maxResults)
	for _, se := range scored {
		if se.score < relevanceThreshold || len(results) >= maxResults {
			break
		}
		results = append(results, s.toFAQItem(se.entry))
	}
	return results
}

func (s *Service) toFAQItem(e Entry) models.FAQItem {
	return models.FAQItem{
		Question: e.QuestionEnglish,
		Answer:   e.AnswerEnglish,
		Sources: []models.Source{{
			Title: "Niharika FAQ: " + e.Keywords,
			PMID:  SourcePMID,
			URL:   s.sheetURL,
		}},
		Population: "Pregnant women",
	}
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		set[w] = true
	}
	return set
}
