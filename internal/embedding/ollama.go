package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaModel is a 768-wide sentence embedding model.
const DefaultOllamaModel = "nomic-embed-text"

// OllamaBackend embeds text with a locally served pretrained model.
type OllamaBackend struct {
	host    string
	model   string
	timeout time.Duration
	client  *api.Client
}

// NewOllamaBackend creates a backend for the server at host. An empty host
// defers to OLLAMA_HOST and the client defaults.
func NewOllamaBackend(host, model string, timeout time.Duration) *OllamaBackend {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaBackend{host: host, model: model, timeout: timeout}
}

func (b *OllamaBackend) Name() string { return ModeOllama }

// Load connects to the server and checks that it answers.
func (b *OllamaBackend) Load(ctx context.Context) error {
	var client *api.Client
	if b.host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return unavailable(b.Name(), err)
		}
		client = c
	} else {
		base, err := url.Parse(b.host)
		if err != nil {
			return unavailable(b.Name(), err)
		}
		client = api.NewClient(base, &http.Client{Timeout: b.timeout})
	}

	if err := client.Heartbeat(ctx); err != nil {
		return unavailable(b.Name(), err)
	}
	b.client = client
	return nil
}

func (b *OllamaBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	if b.client == nil {
		return nil, unavailable(b.Name(), errors.New("not loaded"))
	}
	resp, err := b.client.Embed(ctx, &api.EmbedRequest{
		Model: b.model,
		Input: text,
	})
	if err != nil {
		return nil, unavailable(b.Name(), err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, unavailable(b.Name(), errors.New("empty embedding response"))
	}
	return resp.Embeddings[0], nil
}
