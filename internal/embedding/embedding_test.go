package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"scout/internal/config"
	scouterrors "scout/internal/errors"
	"scout/internal/slogutil"
)

type fakeBackend struct {
	name    string
	loadErr error
	embErr  error
	vec     []float32
	loads   int
	embeds  int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Load(context.Context) error {
	f.loads++
	return f.loadErr
}

func (f *fakeBackend) Embed(context.Context, string) ([]float32, error) {
	f.embeds++
	return f.vec, f.embErr
}

func constant(dim int, x float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = x
	}
	return v
}

func l2(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEmbed_BlankTextIsZeroVector(t *testing.T) {
	svc := New(DefaultDim, slogutil.NewDiscardLogger())
	for _, text := range []string{"", "   ", "\n\t"} {
		v := svc.Embed(context.Background(), text)
		if len(v) != DefaultDim {
			t.Fatalf("len = %d, want %d", len(v), DefaultDim)
		}
		for i, x := range v {
			if x != 0 {
				t.Fatalf("Embed(%q)[%d] = %v, want 0", text, i, x)
			}
		}
	}
}

func TestEmbed_HashingFallback(t *testing.T) {
	svc := New(DefaultDim, slogutil.NewDiscardLogger())
	v := svc.Embed(context.Background(), "a tiny grammar toolkit")
	if len(v) != DefaultDim {
		t.Fatalf("len = %d, want %d", len(v), DefaultDim)
	}
	if n := l2(v); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", n)
	}
	for _, x := range v {
		if x < 0 || math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			t.Fatalf("invalid component %v", x)
		}
	}

	again := svc.Embed(context.Background(), "a tiny grammar toolkit")
	if !reflect.DeepEqual(v, again) {
		t.Error("hashing embedding is not deterministic")
	}
}

func TestEmbed_BackendOrder(t *testing.T) {
	logger := slogutil.NewDiscardLogger()
	want := constant(4, 0.5)

	tests := []struct {
		name     string
		backends []*fakeBackend
		wantHash bool
	}{
		{
			name:     "first healthy backend wins",
			backends: []*fakeBackend{{name: "one", vec: want}, {name: "two", vec: constant(4, 0.9)}},
		},
		{
			name:     "load failure falls through",
			backends: []*fakeBackend{{name: "one", loadErr: errors.New("down")}, {name: "two", vec: want}},
		},
		{
			name:     "inference failure falls through",
			backends: []*fakeBackend{{name: "one", embErr: errors.New("boom")}, {name: "two", vec: want}},
		},
		{
			name:     "wrong width falls through",
			backends: []*fakeBackend{{name: "one", vec: constant(3, 1)}, {name: "two", vec: want}},
		},
		{
			name:     "all fail uses hashing",
			backends: []*fakeBackend{{name: "one", loadErr: errors.New("down")}},
			wantHash: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := make([]Backend, len(tt.backends))
			for i, b := range tt.backends {
				bs[i] = b
			}
			svc := New(4, logger, bs...)
			got := svc.Embed(context.Background(), "grammar agent")
			if tt.wantHash {
				hv, _ := NewHashingBackend(4).Embed(context.Background(), "grammar agent")
				if !reflect.DeepEqual(got, hv) {
					t.Errorf("Embed = %v, want hashing result %v", got, hv)
				}
				return
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Embed = %v, want %v", got, want)
			}
		})
	}
}

func TestEmbed_LoadsBackendOnce(t *testing.T) {
	failing := &fakeBackend{name: "down", loadErr: errors.New("no server")}
	healthy := &fakeBackend{name: "up", vec: constant(8, 1)}
	svc := New(8, slogutil.NewDiscardLogger(), failing, healthy)

	for i := 0; i < 3; i++ {
		svc.Embed(context.Background(), "some text")
	}
	if failing.loads != 1 {
		t.Errorf("failing backend loaded %d times, want 1", failing.loads)
	}
	if healthy.loads != 1 {
		t.Errorf("healthy backend loaded %d times, want 1", healthy.loads)
	}
	if healthy.embeds != 3 {
		t.Errorf("healthy backend embedded %d times, want 3", healthy.embeds)
	}
	if failing.embeds != 0 {
		t.Errorf("failing backend should never embed")
	}
}

func TestNewFromConfig(t *testing.T) {
	logger := slogutil.NewDiscardLogger()
	base := config.DefaultConfig().Embedder

	tests := []struct {
		name    string
		mode    string
		wantErr bool
		want    []string
	}{
		{"auto uses preference list", "auto", false, []string{"ollama", "hash"}},
		{"empty is auto", "", false, []string{"ollama", "hash"}},
		{"hash only", "hash", false, []string{"hash"}},
		{"openai only", "OpenAI", false, []string{"openai", "hash"}},
		{"unknown mode", "hf", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Mode = tt.mode
			svc, err := NewFromConfig(cfg, time.Second, logger)
			if tt.wantErr {
				if !scouterrors.Is(err, scouterrors.ValidationError) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromConfig failed: %v", err)
			}
			if got := svc.Backends(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Backends() = %v, want %v", got, tt.want)
			}
			if svc.Dim() != DefaultDim {
				t.Errorf("Dim() = %d, want %d", svc.Dim(), DefaultDim)
			}
		})
	}
}

func TestNewFromConfig_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig().Embedder
	cfg.Backends = []string{"ollama", "bert"}
	if _, err := NewFromConfig(cfg, time.Second, slogutil.NewDiscardLogger()); !scouterrors.Is(err, scouterrors.ValidationError) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	v := []float32{0, 1, -1.5, 3.25e-7, float32(math.MaxFloat32)}
	b := ToBlob(v)
	if len(b) != 4*len(v) {
		t.Fatalf("blob length = %d, want %d", len(b), 4*len(v))
	}
	got, err := FromBlob(b, len(v))
	if err != nil {
		t.Fatalf("FromBlob failed: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %v, want %v", got, v)
	}

	// 1.0 little-endian
	if !reflect.DeepEqual(ToBlob([]float32{1})[:4], []byte{0x00, 0x00, 0x80, 0x3f}) {
		t.Errorf("unexpected byte order: % x", ToBlob([]float32{1}))
	}
}

func TestFromBlob_Short(t *testing.T) {
	_, err := FromBlob(make([]byte, 10), 3)
	if !scouterrors.Is(err, scouterrors.ValidationError) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestOpenAIBackend(t *testing.T) {
	var gotDims float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotDims, _ = body["dimensions"].(float64)

		emb := make([]float64, 4)
		for i := range emb {
			emb[i] = 0.5
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data":   []any{map[string]any{"object": "embedding", "index": 0, "embedding": emb}},
			"usage":  map[string]any{"prompt_tokens": 2, "total_tokens": 2},
		})
	}))
	defer srv.Close()

	b := NewOpenAIBackend("test-key", "", 4, 5*time.Second).WithBaseURL(srv.URL + "/v1/")
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	v, err := b.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if !reflect.DeepEqual(v, constant(4, 0.5)) {
		t.Errorf("Embed = %v", v)
	}
	if gotDims != 4 {
		t.Errorf("requested dimensions = %v, want 4", gotDims)
	}
}

func TestOpenAIBackend_MissingKey(t *testing.T) {
	b := NewOpenAIBackend("", "", DefaultDim, time.Second)
	err := b.Load(context.Background())
	if !scouterrors.Is(err, scouterrors.EmbeddingBackendUnavailable) {
		t.Errorf("expected backend unavailable, got %v", err)
	}
}

func TestOllamaBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case "/api/embed":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":      DefaultOllamaModel,
				"embeddings": [][]float32{constant(4, 0.25)},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := New(4, slogutil.NewDiscardLogger(), NewOllamaBackend(srv.URL, "", 5*time.Second))
	v := svc.Embed(context.Background(), "hello world")
	if !reflect.DeepEqual(v, constant(4, 0.25)) {
		t.Errorf("Embed = %v, want ollama vector", v)
	}
}

func TestOllamaBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b := NewOllamaBackend(url, "", time.Second)
	if err := b.Load(context.Background()); !scouterrors.Is(err, scouterrors.EmbeddingBackendUnavailable) {
		t.Errorf("expected backend unavailable, got %v", err)
	}
}
