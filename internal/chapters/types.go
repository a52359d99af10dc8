// Package chapters turns free-form video description text into an ordered
// chapter outline.
//
// The same parsing contract serves both automatic extraction from a video
// description and text pasted by a user during manual import.
package chapters

// Match is one timestamp-shaped token found in a line.
// Start and End are byte offsets into the scanned line and include any
// surrounding bracket pair.
type Match struct {
	Start   int
	End     int
	Text    string
	Hours   int
	Minutes int
	Seconds int
}

// AnalysisResult contains chapter title statistics for an import preview.
type AnalysisResult struct {
	Total          int     `json:"total"`
	GenericCount   int     `json:"genericCount"`
	GenericPercent float64 `json:"genericPercent"`
	NeedsUpdate    bool    `json:"needsUpdate"`
}
