package researcher

import (
	"net/http"
	"research/pkg/serrors"

	"github.com/smhanov/laconic"
	"github.com/smhanov/laconic/search"
)

// Search provider names accepted by LLMConfig.
const (
	SearchDuckDuckGo = "duckduckgo"
	SearchBrave      = "brave"
	SearchTavily     = "tavily"
)

// LLMConfig selects the model and search providers backing a researcher.
// Models are addressed through one OpenAI-compatible endpoint: the reasoning
// model plans, the fast model synthesizes, the main model writes reports.
type LLMConfig struct {
	// BaseURL is the OpenAI-compatible API endpoint. Empty means api.openai.com.
	BaseURL string
	// APIKey authenticates model calls.
	APIKey string

	// ReasoningModel plans the research loop.
	ReasoningModel string
	// MainModel produces final reports.
	MainModel string
	// FastModel compresses findings and plans report sections.
	FastModel string

	// SearchProvider is one of duckduckgo, brave or tavily.
	SearchProvider string
	// BraveAPIKey is required when SearchProvider is brave.
	BraveAPIKey string
	// TavilyAPIKey is required when SearchProvider is tavily.
	TavilyAPIKey string
	// TavilyDepth is tavily's depth parameter (basic or advanced).
	TavilyDepth string
}

// newSearcher builds the configured laconic search provider.
func (c LLMConfig) newSearcher() (laconic.SearchProvider, error) {
	switch c.SearchProvider {
	case SearchDuckDuckGo, "":
		return search.NewDuckDuckGo(), nil
	case SearchBrave:
		if c.BraveAPIKey == "" {
			return nil, serrors.With(serrors.ErrBadRequest, "brave search requires an API key")
		}

		return search.NewBrave(c.BraveAPIKey), nil
	case SearchTavily:
		if c.TavilyAPIKey == "" {
			return nil, serrors.With(serrors.ErrBadRequest, "tavily search requires an API key")
		}

		return search.NewTavily(c.TavilyAPIKey, c.TavilyDepth), nil
	default:
		return nil, serrors.With(serrors.ErrBadRequest, "unknown search provider: %s", c.SearchProvider)
	}
}

// newModel builds an LLM provider for the given model name.
func (c LLMConfig) newModel(model string, client *http.Client) laconic.LLMProvider {
	return newOpenAIModel(c.BaseURL, c.APIKey, model, client)
}
