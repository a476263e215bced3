// Package pubmed is a client for the NCBI E-utilities API. A search is a
// two-step exchange: esearch returns ranked PMIDs for a query, efetch
// returns article metadata for a batch of PMIDs.
package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"webfaq-backend/models"
)

// ErrUpstreamUnavailable is returned when the E-utilities service cannot be
// reached or returns a malformed response. Callers decide whether to degrade
// to empty results or fail the request.
var ErrUpstreamUnavailable = errors.New("pubmed upstream unavailable")

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Client talks to the PubMed E-utilities endpoints.
type Client struct {
	baseURL    string
	email      string
	tool       string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption is a functional option for Client.
type ClientOption func(*Client)

// WithBaseURL overrides the E-utilities base URL (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithEmail sets the contact email NCBI asks API consumers to send.
func WithEmail(email string) ClientOption {
	return func(c *Client) {
		c.email = email
	}
}

// WithTool sets the tool identifier sent to NCBI.
func WithTool(tool string) ClientOption {
	return func(c *Client) {
		c.tool = tool
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a PubMed client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		tool:       "webfaqmcp",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs the two-step search-and-fetch flow and returns at most
// maxResults articles in upstream ranking order. An empty PMID list from the
// search step short-circuits to an empty slice without calling efetch.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.Article, error) {
	pmids, err := c.searchArticles(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return []models.Article{}, nil
	}
	return c.fetchArticles(ctx, pmids)
}

type esearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	IDs     []string `xml:"IdList>Id"`
}

// searchArticles calls esearch.fcgi and returns ranked PMIDs.
func (c *Client) searchArticles(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "xml")
	params.Set("sort", "relevance")
	c.addIdentity(params)

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var result esearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		c.logger.Warn("failed to parse esearch response", zap.Error(err))
		return nil, fmt.Errorf("%w: parse esearch response: %v", ErrUpstreamUnavailable, err)
	}
	return result.IDs, nil
}

type efetchResult struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID     string `xml:"MedlineCitation>PMID"`
	Title    string `xml:"MedlineCitation>Article>ArticleTitle"`
	Abstract string `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	Journal  string `xml:"MedlineCitation>Article>Journal>Title"`
	PubDate  struct {
		Year  string `xml:"Year"`
		Month string `xml:"Month"`
	} `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate"`
}

// fetchArticles calls efetch.fcgi with a single batched id parameter.
func (c *Client) fetchArticles(ctx context.Context, pmids []string) ([]models.Article, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")
	c.addIdentity(params)

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var result efetchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		c.logger.Warn("failed to parse efetch response", zap.Error(err))
		return nil, fmt.Errorf("%w: parse efetch response: %v", ErrUpstreamUnavailable, err)
	}

	articles := make([]models.Article, 0, len(result.Articles))
	for _, a := range result.Articles {
		if a.PMID == "" || a.Title == "" {
			continue
		}
		articles = append(articles, models.Article{
			PMID:            a.PMID,
			Title:           a.Title,
			Abstract:        a.Abstract,
			Journal:         a.Journal,
			PublicationDate: formatPubDate(a.PubDate.Year, a.PubDate.Month),
			Population:      DeterminePopulation(a.Title, a.Abstract),
		})
	}
	return articles, nil
}

// get performs one E-utilities request and returns the raw body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("pubmed request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("pubmed returned non-200 status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}
	return body, nil
}

func (c *Client) addIdentity(params url.Values) {
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.tool != "" {
		params.Set("tool", c.tool)
	}
}

var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04",
	"May": "05", "Jun": "06", "Jul": "07", "Aug": "08",
	"Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

// formatPubDate normalizes a PubDate to YYYY-MM-01, defaulting the month to
// January when missing. Returns "" when the year is absent.
func formatPubDate(year, month string) string {
	if year == "" {
		return ""
	}
	m := "01"
	switch {
	case month == "":
	case len(month) <= 2:
		if _, err := strconv.Atoi(month); err == nil {
			if len(month) == 1 {
				m = "0" + month
			} else {
				m = month
			}
		}
	default:
		if num, ok := monthNumbers[month[:3]]; ok {
			m = num
		}
	}
	return fmt.Sprintf("%s-%s-01", year, m)
}

// DeterminePopulation classifies the target population from title and
// abstract keywords, defaulting to "General population".
func DeterminePopulation(title, abstract string) string {
	text := strings.ToLower(title + " " + abstract)

	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("pregnant", "pregnancy", "gestational", "maternal", "obstetric"):
		return "Pregnant women"
	case contains("postpartum", "postnatal", "breastfeeding", "lactation"):
		return "Postpartum women"
	case contains("cardiac", "cardiovascular", "heart", "coronary"):
		return "Cardiac patients"
	case contains("pediatric", "child", "infant", "neonatal"):
		return "Pediatric patients"
	default:
		return "General population"
	}
}
