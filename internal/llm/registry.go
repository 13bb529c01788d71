package llm

import (
	"fmt"
	"log/slog"
	"os"
)

// Registry holds the clients whose API keys are present, in a fixed
// preference order: Claude, Gemini, OpenAI. The first enabled client is
// the primary and drives article selection; summaries are produced by
// every enabled client.
type Registry struct {
	clients []Client
}

// NewRegistryFromEnv builds a registry from ANTHROPIC_API_KEY,
// GEMINI_API_KEY, and OPENAI_API_KEY. Returns an error when no key is set.
func NewRegistryFromEnv() (*Registry, error) {
	var clients []Client

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		clients = append(clients, NewClaude(key))
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		clients = append(clients, NewGemini(key))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		clients = append(clients, NewOpenAI(key))
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("no llm provider configured: set ANTHROPIC_API_KEY, GEMINI_API_KEY, or OPENAI_API_KEY")
	}

	names := make([]string, len(clients))
	for i, c := range clients {
		names[i] = string(c.Name())
	}
	slog.Info("llm providers enabled", slog.Any("providers", names))

	return &Registry{clients: clients}, nil
}

// NewRegistry builds a registry from explicit clients, preserving order.
// Intended for tests and custom wiring.
func NewRegistry(clients ...Client) *Registry {
	return &Registry{clients: clients}
}

// Enabled returns all enabled clients in preference order.
func (r *Registry) Enabled() []Client {
	return r.clients
}

// Primary returns the highest-preference enabled client.
func (r *Registry) Primary() Client {
	return r.clients[0]
}

// Len returns the number of enabled clients.
func (r *Registry) Len() int {
	return len(r.clients)
}
