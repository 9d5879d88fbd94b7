package openaicompat

// documentTypes is the closed taxonomy the metadata extractor assigns
// and the search tool filters on.
var documentTypes = []string{
	"meeting_notes", "technical_doc", "tutorial", "report",
	"email", "notes", "article", "other",
}

func searchTools() []map[string]any {
	return []map[string]any{{
		"type": "function",
		"function": map[string]any{
			"name":        "search_documents",
			"description": "Search the user's uploaded documents for relevant information. Use this when the user asks questions that might be answered by their documents. You can optionally filter by document_type or topic to narrow results.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query to find relevant document content",
					},
					"document_type": map[string]any{
						"type":        "string",
						"description": "Filter by document type. One of: meeting_notes, technical_doc, tutorial, report, email, notes, article, other",
						"enum":        documentTypes,
					},
					"topic": map[string]any{
						"type":        "string",
						"description": "Filter by topic (e.g., 'Kubernetes deployment', 'Q4 financials')",
					},
				},
				"required": []string{"query"},
			},
		},
	}}
}
