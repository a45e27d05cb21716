package synthesis

import (
	"fmt"
	"strings"

	"github.com/kalvix/mailrag/internal/analyze"
)

// NoDataAnswer is returned when retrieval finds nothing or the relevance
// gate rejects the query.
const NoDataAnswer = "I don't have enough relevant information to answer this question. " +
	"This question appears to be outside the scope of the information I have access to."

// EmptyScopeAnswer is returned when the user has no loaded records at all.
const EmptyScopeAnswer = "I don't have any of your data loaded yet. " +
	"Please sync your mailbox and documents first, then ask me again."

var greetingAnswers = []string{
	"Hello! How can I help you today?",
	"Hi there! What can I assist you with?",
	"Greetings! How may I be of service?",
	"Hey! I'm here to help. What do you need?",
}

var thanksAnswers = []string{
	"You're welcome! Is there anything else I can help you with?",
	"Happy to help! Let me know if you need anything else.",
	"Anytime! Feel free to ask if you have more questions.",
	"No problem at all! I'm here if you need further assistance.",
}

// notFoundAnswer templates a "nothing matched" reply, specialized by what
// the query analysis says the user was looking for.
func notFoundAnswer(a analyze.Analysis, query string) string {
	switch {
	case len(a.People) > 0 && a.ContentType == "email":
		msg := fmt.Sprintf("I've looked through your emails, but I couldn't find any from %s",
			strings.Join(a.People, ", "))
		if a.TimePeriod != "" {
			msg += " " + a.TimePeriod
		}
		return msg + ". Would you like me to check a different time period or search for emails from someone else?"
	case a.ContentType == "email":
		return "I've searched through your emails, but I couldn't find any that match what you're looking for. " +
			"Could you give me more details about what you need, or would you like me to search for something else?"
	case a.ContentType == "event" || a.ContentType == "calendar":
		return "I've checked your calendar, but I couldn't find any events matching what you asked for. " +
			"Would you like me to look for events at a different time or with different people?"
	default:
		return fmt.Sprintf("I don't have specific information about %s in your documents, emails, or calendar events. "+
			"Is there something else I can help you with?", strings.ToLower(query))
	}
}
