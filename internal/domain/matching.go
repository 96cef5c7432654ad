package domain

// ConfidenceScore blends structural and semantic similarity of a candidate
type ConfidenceScore struct {
	SpecSimilarity     float64 `json:"spec_similarity"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	ConfidenceScore    float64 `json:"confidence_score"`
}

// Product is a named record, either the seller's own or a discovered candidate
type Product struct {
	Name string `json:"name" binding:"required"`
	Data Record `json:"data"`
}

// MatchCandidate is a discovered competitor page after extraction
type MatchCandidate struct {
	URL          string `json:"url"`
	RetailerName string `json:"retailer_name,omitempty"`
	ProductName  string `json:"product_name"`
	Data         Record `json:"extracted_data"`
}

// ScoredCandidate is a candidate with its confidence score attached
type ScoredCandidate struct {
	MatchCandidate
	ConfidenceScore
	BelowThreshold bool `json:"below_threshold"`
}

// PageContent is the fetch collaborator's output for one URL
type PageContent struct {
	URL     string `json:"url"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
	Success bool   `json:"success"`
}
