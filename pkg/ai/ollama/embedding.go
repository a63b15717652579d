package ollama

import (
	"context"
	"fmt"

	"casethread/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateEmbeddings creates one embedding vector per input string in a single
// request to the configured embedding model, preserving input order.
func (c *Client) GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: inputs,
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(ctx, req)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	if len(res.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(res.Embeddings), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for i, v := range res.Embeddings {
		vec := make([]float32, len(v))
		copy(vec, v)
		out[i] = vec
	}
	return out, nil
}
