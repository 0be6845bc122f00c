package llm

const DefaultGroqBaseURL = "https://api.groq.com/openai"

// NewGroq creates the alternate backend on Groq's OpenAI-compatible API.
func NewGroq(baseURL, apiKey, model string, maxRetries int) *OpenAICompatible {
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	return NewOpenAICompatible(OpenAICompatibleConfig{
		Name:       BackendGroq,
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		MaxRetries: maxRetries,
	})
}
