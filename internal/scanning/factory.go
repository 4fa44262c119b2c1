package scanning

import "fmt"

// Config selects and configures an OCR backend
type Config struct {
	Backend     string // none, gemini or ollama
	GeminiKey   string
	GeminiModel string
	OllamaURL   string
	OllamaModel string
}

// NewScanner builds the configured backend. The "none" backend returns a
// nil Scanner, documents without a text layer are then refused.
func NewScanner(cfg Config) (Scanner, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "gemini":
		return NewGemini(cfg.GeminiKey, cfg.GeminiModel)
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("invalid scanner backend %q, want none, gemini or ollama", cfg.Backend)
	}
}
