// masochat/services/llm/groq_client.go
package llm

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewGroqClient returns a client pointing to Groq's OpenAI-compatible endpoint.
func NewGroqClient(apiKey string) *GPTClient {
	c := NewGPTClient(apiKey, groqBaseURL)
	c.name = "groq"
	return c
}
