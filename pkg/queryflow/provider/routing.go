package provider

import "strings"

// Provider names. These match the credential key vocabulary so a
// provider name doubles as the stored-credential lookup key.
const (
	OpenAI      = "openai"
	Gemini      = "gemini"
	HuggingFace = "huggingface"
	Brave       = "brave"
	SerpAPI     = "serpapi"
)

// modelPrefixes maps model-name prefixes to provider names. First
// match wins, so more specific prefixes come first. This table is the
// single place model-to-provider routing lives.
var modelPrefixes = []struct {
	prefix   string
	provider string
}{
	{"gpt-", OpenAI},
	{"chatgpt-", OpenAI},
	{"o1", OpenAI},
	{"o3", OpenAI},
	{"o4", OpenAI},
	{"text-embedding-", OpenAI},
	{"gemini-", Gemini},
	{"embedding-", Gemini},
	{"models/gemini-", Gemini},
	{"sentence-transformers/", HuggingFace},
	{"BAAI/", HuggingFace},
}

// ForModel infers the provider for a model name from its prefix.
// Returns ("", false) for unrecognized names; callers decide whether
// that is fatal (llm-engine) or degradable (embeddings).
func ForModel(model string) (string, bool) {
	for _, entry := range modelPrefixes {
		if strings.HasPrefix(model, entry.prefix) {
			return entry.provider, true
		}
	}
	return "", false
}
