// internal/enrich/prompt.go
package enrich

import (
	"fmt"

	"github.com/openai/openai-go"
)

// systemPrompt describes the JSON object the model must return.
func systemPrompt(language string) string {
	return fmt.Sprintf(`You turn short travel stories told by or for a child into a structured journal entry.
Respond entirely in %[1]s with a single JSON object and nothing else:
{
  "locationName": string,        // the formal name of the place, in %[1]s
  "coordinates": {"lat": number, "lng": number},
  "date": string or null,        // YYYY-MM-DD only if the text mentions a date
  "companions": [string] or null, // only people mentioned in the text
  "description": string,         // a 1-2 sentence child-friendly summary of the place
  "funFact": string,             // one fun fact about the place for a child
  "tags": [string]               // exactly 3 short tags, e.g. "大自然", "城市", "海滩"
}
If the text implies a specific famous place, use its real coordinates.
If no date is mentioned, set date to null. If no companions are mentioned, set companions to null.`, language)
}

// buildMessages returns the system and user messages for one story.
func buildMessages(language, text string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt(language)),
		openai.UserMessage(fmt.Sprintf("Extract travel details from this text: %q", text)),
	}
}
