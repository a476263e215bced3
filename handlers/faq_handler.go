package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webfaq-backend/models"
	"webfaq-backend/pubmed"
	"webfaq-backend/service"
	"webfaq-backend/sheetfaq"
)

// FAQSearcher is the slice of FAQService the FAQ endpoints consume.
type FAQSearcher interface {
	SearchSynthesized(ctx context.Context, query string, maxResults, snippetLen int) ([]models.FAQItem, error)
	SearchRaw(ctx context.Context, query string, maxResults, snippetLen int) ([]models.FAQItem, error)
}

// CuratedSearcher serves the Niharika curated FAQ set.
type CuratedSearcher interface {
	Lookup(ctx context.Context, query string, maxResults int) ([]models.FAQItem, error)
}

const upstreamWarning = "The medical literature service is temporarily unavailable. Please try again later."

// FAQHandler handles the /faq, /faq/niharika and /sources endpoints.
type FAQHandler struct {
	faq     FAQSearcher
	curated CuratedSearcher
	logger  *zap.Logger
}

// NewFAQHandler creates a new FAQ handler.
func NewFAQHandler(faq FAQSearcher, curated CuratedSearcher, logger *zap.Logger) *FAQHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FAQHandler{faq: faq, curated: curated, logger: logger}
}

// SearchFAQ handles POST /faq: synthesized question/answer pairs combining
// multiple PubMed sources. An upstream outage degrades to empty results
// with a warning rather than failing the request.
func (h *FAQHandler) SearchFAQ(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}

	results, err := h.faq.SearchSynthesized(c.Request.Context(), query.Query, query.MaxResults, query.SnippetLength)
	if err != nil {
		h.respondDegradedOrFail(c, query.Query, err)
		return
	}

	c.JSON(http.StatusOK, models.FAQResponse{
		Results:      results,
		Query:        query.Query,
		TotalResults: len(results),
	})
}

// GetSources handles POST /sources: one FAQ item per article, no synthesis.
func (h *FAQHandler) GetSources(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}

	results, err := h.faq.SearchRaw(c.Request.Context(), query.Query, query.MaxResults, query.SnippetLength)
	if err != nil {
		h.respondDegradedOrFail(c, query.Query, err)
		return
	}

	c.JSON(http.StatusOK, models.FAQResponse{
		Results:      results,
		Query:        query.Query,
		TotalResults: len(results),
	})
}

// SearchNiharika handles POST /faq/niharika, served from the curated sheet.
func (h *FAQHandler) SearchNiharika(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}

	results, err := h.curated.Lookup(c.Request.Context(), query.Query, query.MaxResults)
	if err != nil {
		if errors.Is(err, sheetfaq.ErrSheetUnavailable) {
			h.logger.Warn("curated sheet unavailable", zap.Error(err))
			c.JSON(http.StatusOK, models.FAQResponse{
				Results:      []models.FAQItem{},
				Query:        query.Query,
				TotalResults: 0,
				Warning:      upstreamWarning,
			})
			return
		}
		h.logger.Error("curated lookup failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "LOOKUP_FAILED", "Error searching curated FAQs")
		return
	}

	c.JSON(http.StatusOK, models.FAQResponse{
		Results:      results,
		Query:        query.Query,
		TotalResults: len(results),
	})
}

// bindQuery validates the shared FAQ request body and applies defaults.
func (h *FAQHandler) bindQuery(c *gin.Context) (models.FAQQuery, bool) {
	var query models.FAQQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return query, false
	}
	if query.MaxResults == 0 {
		query.MaxResults = service.DefaultMaxResults
	}
	if query.SnippetLength == 0 {
		query.SnippetLength = service.DefaultSnippetLength
	}
	return query, true
}

// respondDegradedOrFail maps a search failure to either the documented
// empty-result degradation (upstream outage) or a generic server error.
// Raw upstream error payloads are never echoed to the client.
func (h *FAQHandler) respondDegradedOrFail(c *gin.Context, query string, err error) {
	if errors.Is(err, pubmed.ErrUpstreamUnavailable) {
		h.logger.Warn("literature service unavailable", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusOK, models.FAQResponse{
			Results:      []models.FAQItem{},
			Query:        query,
			TotalResults: 0,
			Warning:      upstreamWarning,
		})
		return
	}
	h.logger.Error("literature search failed", zap.String("query", query), zap.Error(err))
	respondError(c, http.StatusInternalServerError, "SEARCH_FAILED", "Error searching medical literature")
}
