package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel supports shortened output dimensions.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIBackend embeds text with the hosted embeddings endpoint.
type OpenAIBackend struct {
	apiKey  string
	model   string
	dim     int
	timeout time.Duration
	baseURL string
	client  *openai.Client
}

// NewOpenAIBackend creates a backend that requests dim-wide vectors.
func NewOpenAIBackend(apiKey, model string, dim int, timeout time.Duration) *OpenAIBackend {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIBackend{apiKey: apiKey, model: model, dim: dim, timeout: timeout}
}

// WithBaseURL points the backend at a compatible endpoint.
func (b *OpenAIBackend) WithBaseURL(u string) *OpenAIBackend {
	b.baseURL = u
	return b
}

func (b *OpenAIBackend) Name() string { return ModeOpenAI }

// Load builds the client. A missing API key makes the backend unavailable.
func (b *OpenAIBackend) Load(context.Context) error {
	if b.apiKey == "" {
		return unavailable(b.Name(), errors.New("OPENAI_API_KEY is not set"))
	}
	opts := []option.RequestOption{
		option.WithAPIKey(b.apiKey),
		option.WithMaxRetries(0),
	}
	if b.timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(b.timeout))
	}
	if b.baseURL != "" {
		opts = append(opts, option.WithBaseURL(b.baseURL))
	}
	client := openai.NewClient(opts...)
	b.client = &client
	return nil
}

func (b *OpenAIBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	if b.client == nil {
		return nil, unavailable(b.Name(), errors.New("not loaded"))
	}
	resp, err := b.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model:      openai.EmbeddingModel(b.model),
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Dimensions: openai.Int(int64(b.dim)),
	})
	if err != nil {
		return nil, unavailable(b.Name(), err)
	}
	if len(resp.Data) == 0 {
		return nil, unavailable(b.Name(), errors.New("empty embedding response"))
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, x := range raw {
		vec[i] = float32(x)
	}
	return vec, nil
}
