package analyze

import (
	"fmt"

	"github.com/kalvix/mailrag/internal/llm"
)

const analysisPromptTemplate = `Analyze the following query and extract key information:

Query: %s

Extract the following information (if present):
1. Specific person names mentioned (e.g., sender or recipient names)
2. Time periods mentioned (e.g., "last week", "yesterday", "next month")
3. Email or event specific terms (e.g., "meeting", "email", "calendar")
4. Any other specific filters or criteria mentioned

Format your response as a structured JSON with these fields (include empty strings if information is not present):
{
    "person_names": ["name1", "name2"],
    "time_period": "time period mentioned",
    "content_type": "email/event/document/etc",
    "other_criteria": "any other specific criteria"
}`

// buildPrompt constructs the chat messages for query analysis.
func buildPrompt(query string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(analysisPromptTemplate, query)},
	}
}
