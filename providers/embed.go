package providers

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videoInsight/core"
)

// Embedder turns text into a fixed-dimension vector. Implementations must
// be deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

type OpenAIEmbedder struct {
	cli   *openai.Client
	model string
	dim   int
}

func NewOpenAIEmbedder(cli *openai.Client, model string, dim int) *OpenAIEmbedder {
	if dim <= 0 {
		dim = 1536
	}
	return &OpenAIEmbedder{cli: cli, model: model, dim: dim}
}

func (e *OpenAIEmbedder) Dim() int { return e.dim }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{strings.ToLower(text)},
	})
	if err != nil {
		return nil, core.WrapError(err, core.CodeTransientBackend, "embedding request failed")
	}
	if len(resp.Data) == 0 {
		return nil, core.NewError(core.CodeTransientBackend, "no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}

// HashEmbedder is the offline fallback: bag-of-words hashed into a fixed
// number of buckets, L2-normalized. Deterministic and dependency-free, so
// the indexer and chat engine keep working without an API key.
type HashEmbedder struct {
	Dimension int
}

func (e HashEmbedder) Dim() int {
	if e.Dimension <= 0 {
		return 256
	}
	return e.Dimension
}

func (e HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := e.Dim()
	vec := make([]float32, dim)
	for _, tok := range core.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(dim)]++
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec, nil
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
