package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string // User's search query

	// Pagination
	Limit  int
	Offset int

	Highlight bool // Include match highlighting
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     50,
		Offset:    0,
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single matching course.
type SearchHit struct {
	VideoID    string            `json:"videoId"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query, best matches first.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	searchRequest.SortBy([]string{"-_score", "id"})

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("chapters")
	}

	searchRequest.Fields = []string{"id", "title"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			VideoID: hit.ID,
			Score:   hit.Score,
		}
		if t, ok := hit.Fields["title"].(string); ok {
			searchHit.Title = t
		}

		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// MatchingIDs returns the video IDs of every course whose title contains q
// (case-insensitive) or whose title or chapter titles match it as words.
// Descriptions are not considered.
func (s *SearchIndex) MatchingIDs(ctx context.Context, q string) (map[string]bool, error) {
	count, err := s.DocumentCount()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildFilterQuery(q), int(max(count, 1)), 0, false)
	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute filter: %w", err)
	}

	ids := make(map[string]bool, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		ids[hit.ID] = true
	}
	return ids, nil
}

// wildcardMeta strips characters WildcardQuery would treat as patterns.
var wildcardMeta = strings.NewReplacer("*", "", "?", "", `\`, "")

// buildFilterQuery matches a title substring, or title and chapter words.
func buildFilterQuery(q string) query.Query {
	q = strings.TrimSpace(q)
	if q == "" {
		return bleve.NewMatchAllQuery()
	}

	titleMatch := bleve.NewMatchQuery(q)
	titleMatch.SetField("title")

	chapterMatch := bleve.NewMatchQuery(q)
	chapterMatch.SetField("chapters")

	queries := []query.Query{titleMatch, chapterMatch}

	if needle := wildcardMeta.Replace(strings.ToLower(q)); needle != "" {
		contains := bleve.NewWildcardQuery("*" + needle + "*")
		contains.SetField("title_key")
		queries = append(queries, contains)
	}

	return bleve.NewDisjunctionQuery(queries...)
}

// buildSearchQuery constructs the Bleve query from params.
//
// Titles weigh most, then chapter titles, then the description. Fuzzy and
// prefix queries on the title give typo tolerance and search-as-you-type.
func buildSearchQuery(params SearchParams) query.Query {
	q := strings.TrimSpace(params.Query)
	if q == "" {
		return bleve.NewMatchAllQuery()
	}

	titleMatch := bleve.NewMatchQuery(q)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)

	chapterMatch := bleve.NewMatchQuery(q)
	chapterMatch.SetField("chapters")
	chapterMatch.SetBoost(1.5)

	descMatch := bleve.NewMatchQuery(q)
	descMatch.SetField("description")
	descMatch.SetBoost(0.5)

	textQueries := []query.Query{titleMatch, chapterMatch, descMatch}

	fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(q))
	fuzzyQuery.SetFuzziness(1)
	fuzzyQuery.SetField("title")
	fuzzyQuery.SetBoost(0.8)
	textQueries = append(textQueries, fuzzyQuery)

	// Prefix query for autocomplete (minimum 2 chars)
	if len(q) >= 2 {
		prefixQuery := bleve.NewPrefixQuery(strings.ToLower(q))
		prefixQuery.SetField("title")
		prefixQuery.SetBoost(0.5)
		textQueries = append(textQueries, prefixQuery)
	}

	return bleve.NewDisjunctionQuery(textQueries...)
}
