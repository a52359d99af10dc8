package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for course documents.
//
// Titles carry English stemming and term vectors for highlighting. The video
// ID is a keyword so it can be looked up exactly.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	chaptersFieldMapping := bleve.NewTextFieldMapping()
	chaptersFieldMapping.Analyzer = en.AnalyzerName
	chaptersFieldMapping.Store = true
	chaptersFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("chapters", chaptersFieldMapping)

	// Description - searchable but not stored (too large)
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// --- Keyword fields ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	idFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Whole lowercased title, for substring filtering.
	titleKeyMapping := bleve.NewTextFieldMapping()
	titleKeyMapping.Analyzer = keyword.Name
	titleKeyMapping.Store = false
	docMapping.AddFieldMappingsAt("title_key", titleKeyMapping)

	// --- Numeric fields (range queries, sorting) ---

	for _, field := range []string{"chapter_count", "progress", "date_added", "last_activity"} {
		numeric := bleve.NewNumericFieldMapping()
		numeric.Store = true
		docMapping.AddFieldMappingsAt(field, numeric)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
