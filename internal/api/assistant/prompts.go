package assistant

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-safe-assist/internal/types"
)

// Deterministic reply strings used when the generation provider fails, returns
// nothing usable, or the search comes back empty. Exact wording is load-bearing
// for clients, change with care.
const (
	fallbackConversational = "Hi! I can help you find the nearest hospital, pharmacy or police station. Share your location and tell me what you need."
	fallbackInformational  = "Sorry, I couldn't generate a response right now. Please try again."
	noResultsReply         = "I couldn't find any matching place near you."
)

func conversationalPrompt(message string) string {
	var b strings.Builder
	b.WriteString("You are a safety assistant chatbot. Greet the user briefly and explain your two capabilities: ")
	b.WriteString("finding the nearest hospital, pharmacy or police station when the user shares a location, ")
	b.WriteString("and asking a clarifying question when the request is unclear. ")
	b.WriteString("Keep the reply to at most three sentences.\n\n")
	b.WriteString(fmt.Sprintf("User message: %q", message))
	return b.String()
}

func informationalPrompt(c types.AssistContext) string {
	var b strings.Builder
	b.WriteString("You are a safety assistant chatbot. Using only the facts below, tell the user about the nearest ")
	b.WriteString(strings.ReplaceAll(string(c.Category), "_", " "))
	b.WriteString(". Present the name and address first")
	if c.Route != nil {
		b.WriteString(", then the travel duration, then the turn-by-turn directions")
	} else {
		b.WriteString(", then note that directions are unavailable right now")
	}
	b.WriteString(". Phrase it as natural language, not a list of fields.\n\n")

	b.WriteString(fmt.Sprintf("Name: %s\n", c.Place.Name))
	b.WriteString(fmt.Sprintf("Address: %s\n", c.Place.Address))
	if c.Route != nil {
		b.WriteString(fmt.Sprintf("Driving duration: %d minutes\n", c.Route.DurationMinutes))
		if len(c.Route.Steps) > 0 {
			b.WriteString("Directions:\n")
			b.WriteString(strings.Join(c.Route.Steps, "\n"))
		}
	}
	return b.String()
}
