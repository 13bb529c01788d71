package entity

// DateLayout is the calendar-date format used for manifest entries and
// summary object names.
const DateLayout = "2006-01-02"

// ManifestEntry is one published summary in the rolling manifest document.
// The manifest holds at most one set of entries per calendar date per
// provider: a rerun for the same date replaces that date's entries.
type ManifestEntry struct {
	// Date is the calendar date of the run, formatted as DateLayout.
	Date string `json:"date"`

	// URL is the public URL of the stored summary object.
	URL string `json:"url"`

	// Title is the selected article's title.
	Title string `json:"title"`

	// SummarySnippet is a short leading excerpt of the summary.
	SummarySnippet string `json:"summary_snippet"`

	// OriginalURL points at the summarized article.
	OriginalURL string `json:"original_url,omitempty"`

	// Model is the model that generated the summary.
	Model string `json:"model,omitempty"`

	// SelectedBy is the model that selected the article from the candidates.
	SelectedBy string `json:"selected_by,omitempty"`
}

// Candidate is a user-submitted or LLM-suggested feed candidate awaiting
// discovery and validation. It either becomes a SourceConfig or is discarded.
type Candidate struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
