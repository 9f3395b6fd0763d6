package scanner

// FetchResult records the outcome of a single fetch attempt. It is created
// per attempt, never mutated afterwards, and discarded after aggregation.
type FetchResult struct {
	SourceURL string `json:"source_url"`
	Body      string `json:"-"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// AggregationStats counts iframe fetch outcomes for one aggregation.
type AggregationStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// AggregatedDocument is the main document combined with the bodies of its
// successfully fetched iframes, in discovery order.
type AggregatedDocument struct {
	MainURL       string           `json:"main_url"`
	MainBody      string           `json:"-"`
	IframeResults []FetchResult    `json:"iframe_results"`
	CombinedText  string           `json:"combined_text"`
	Stats         AggregationStats `json:"stats"`
}
