package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"webfaq-backend/models"
)

const (
	// DefaultMaxResults is used when a request omits max_results.
	DefaultMaxResults = 3
	// DefaultSnippetLength is used when a request omits snippet_length.
	DefaultSnippetLength = 300

	ellipsis          = "..."
	defaultPopulation = "General population"
)

// ArticleSearcher is the retrieval dependency of the FAQ pipeline.
type ArticleSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.Article, error)
}

// FAQService turns raw PubMed articles into FAQ-shaped results.
type FAQService struct {
	searcher ArticleSearcher
	logger   *zap.Logger
}

// FAQServiceOption is a functional option for FAQService.
type FAQServiceOption func(*FAQService)

// FAQWithSearcher sets the article searcher.
func FAQWithSearcher(s ArticleSearcher) FAQServiceOption {
	return func(svc *FAQService) {
		svc.searcher = s
	}
}

// FAQWithLogger sets the logger.
func FAQWithLogger(l *zap.Logger) FAQServiceOption {
	return func(svc *FAQService) {
		svc.logger = l
	}
}

// NewFAQService creates a new FAQ service.
func NewFAQService(opts ...FAQServiceOption) *FAQService {
	svc := &FAQService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SearchRaw fetches articles for the query and maps each one to a FAQItem
// without any cross-article synthesis: question is the article title, answer
// is the truncated abstract, sources contain exactly the originating article.
// Output order matches upstream ranking.
func (s *FAQService) SearchRaw(ctx context.Context, query string, maxResults, snippetLen int) ([]models.FAQItem, error) {
	articles, err := s.searcher.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	return s.RawResults(articles, snippetLen), nil
}

// RawResults maps articles one-to-one into FAQ items. An empty input yields
// an empty slice, not an error.
func (s *FAQService) RawResults(articles []models.Article, snippetLen int) []models.FAQItem {
	results := make([]models.FAQItem, 0, len(articles))
	for _, a := range articles {
		population := a.Population
		if population == "" {
			population = defaultPopulation
		}
		results = append(results, models.FAQItem{
			Question:        a.Title,
			Answer:          TruncateSnippet(a.Abstract, snippetLen),
			PublicationDate: a.PublicationDate,
			Sources:         []models.Source{articleSource(a)},
			Population:      population,
		})
	}
	return results
}

// SearchSynthesized fetches articles and combines them into templated
// question/answer pairs covering overview, symptoms and treatment.
func (s *FAQService) SearchSynthesized(ctx context.Context, query string, maxResults, snippetLen int) ([]models.FAQItem, error) {
	articles, err := s.searcher.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	raw := s.RawResults(articles, snippetLen)
	return s.Synthesize(query, raw, snippetLen), nil
}

// Synthesize builds up to three FAQ answers from the per-article results,
// each combining the snippets of the contributing articles and carrying the
// full source list.
func (s *FAQService) Synthesize(query string, raw []models.FAQItem, snippetLen int) []models.FAQItem {
	if len(raw) == 0 {
		return []models.FAQItem{}
	}

	snippets := make([]string, 0, len(raw))
	sources := make([]models.Source, 0, len(raw))
	for _, item := range raw {
		snippets = append(snippets, item.Answer)
		if len(item.Sources) > 0 {
			sources = append(sources, item.Sources[0])
		}
	}

	topic := queryTopic(query)
	results := make([]models.FAQItem, 0, 3)

	overview := fmt.Sprintf("Based on %d medical studies: %s", len(raw), strings.Join(firstN(snippets, 2), " "))
	results = append(results, models.FAQItem{
		Question:        fmt.Sprintf("What is %s?", topic),
		Answer:          TruncateSnippet(overview, snippetLen),
		PublicationDate: raw[0].PublicationDate,
		Sources:         sources,
		Population:      raw[0].Population,
	})

	if len(raw) > 1 {
		symptoms := "Common symptoms and signs include: " + strings.Join(firstN(snippets[1:], 2), " ")
		results = append(results, models.FAQItem{
			Question:        fmt.Sprintf("What are the symptoms of %s?", topic),
			Answer:          TruncateSnippet(symptoms, snippetLen),
			PublicationDate: raw[1].PublicationDate,
			Sources:         sources,
			Population:      raw[1].Population,
		})
	}

	if len(raw) > 2 {
		treatment := "Treatment and management approaches: " + strings.Join(snippets[2:], " ")
		results = append(results, models.FAQItem{
			Question:        fmt.Sprintf("How is %s treated?", topic),
			Answer:          TruncateSnippet(treatment, snippetLen),
			PublicationDate: raw[2].PublicationDate,
			Sources:         sources,
			Population:      raw[2].Population,
		})
	}

	return results
}

// TruncateSnippet shortens text to at most limit bytes, breaking at the
// nearest preceding word boundary and appending an ellipsis marker. Text
// within the limit is returned unchanged. The cut never splits a multi-byte
// rune, so abstracts with Greek letters or unit symbols stay valid UTF-8.
func TruncateSnippet(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	} else {
		for len(cut) > 0 {
			r, size := utf8.DecodeLastRuneInString(cut)
			if r != utf8.RuneError || size > 1 {
				break
			}
			cut = cut[:len(cut)-1]
		}
	}
	return strings.TrimRight(cut, " ") + ellipsis
}

// queryTopic picks the headword used in synthesized question templates.
func queryTopic(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return query
	}
	return fields[0]
}

func articleSource(a models.Article) models.Source {
	return models.Source{
		Title: a.Title,
		PMID:  a.PMID,
		URL:   a.ArticleURL(),
	}
}

func firstN(items []string, n int) []string {
	if len(items) < n {
		return items
	}
	return items[:n]
}
