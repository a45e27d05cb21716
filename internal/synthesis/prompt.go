package synthesis

import (
	"fmt"
	"strings"

	"github.com/kalvix/mailrag/internal/analyze"
)

const extractionPromptTemplate = `You are a helpful assistant with access to a user's emails, calendar events, and documents.

Your task is to extract relevant information from the provided context to answer the user's question.

Context:
%s

User's Question:
%s

Additional Information:
- Person names mentioned: %s
- Time period mentioned: %s
- Content type mentioned: %s
- Other criteria: %s

Instructions:
1. Carefully analyze the context to find information relevant to the question
2. If the question is a greeting (like "hi", "hello", etc.), respond with: GREETING
3. If the question is a thank you message, respond with: THANKS
4. If you find ANY relevant information (explicit or implicit), respond with:
FOUND: [your extracted answer with complete, well-organized details]

If you cannot find any relevant information even after careful analysis, respond with:
NOT_FOUND`

const answerPromptTemplate = `You are a friendly, helpful personal assistant. Your goal is to provide warm, conversational responses that feel natural and engaging.

Based on the information I have access to, here's what I found about: %s

%s

Format this into a friendly, conversational response that directly answers the question. Use a warm, helpful tone as if you're speaking to a friend or colleague.

Guidelines:
- If the question starts with a greeting (like "hi", "hello", etc.), acknowledge it briefly in your response
- Use natural, conversational language (contractions, casual phrases)
- Organize information in an easy-to-read format
- End with a helpful offer for further assistance
- Avoid formal, robotic language like "Based on the information available..."

For email-related questions:
- Mention who the emails are from in a natural way
- Present dates conversationally (e.g., "last Tuesday" instead of formal dates when possible)
- Summarize the content in a helpful way

For calendar-related questions:
- Present events in a helpful, organized way
- Mention important details like time and attendees conversationally`

func buildExtractionPrompt(query, contextText string, a analyze.Analysis) string {
	return fmt.Sprintf(extractionPromptTemplate,
		contextText, query,
		strings.Join(a.People, ", "), a.TimePeriod, a.ContentType, a.Criteria)
}

func buildAnswerPrompt(query, extracted string) string {
	return fmt.Sprintf(answerPromptTemplate, query, extracted)
}
