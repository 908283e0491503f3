package image

import (
	"context"

	"photoedit/internal/providers/genai"
)

// GeminiTransformer adapts the genai client to the Transformer contract.
type GeminiTransformer struct {
	client *genai.Client
}

func NewGeminiTransformer(client *genai.Client) *GeminiTransformer {
	return &GeminiTransformer{client: client}
}

func (g *GeminiTransformer) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	result, err := g.client.EditImage(ctx, genai.EditRequest{
		ImageData:   req.Source.Data,
		ImageMIME:   req.Source.MIME,
		Instruction: BuildInstruction(req),
		RequestID:   req.RequestID,
	})
	if err != nil {
		return nil, Classify(err)
	}
	return &Result{Data: result.Data, MIME: result.MIME}, nil
}

var _ Transformer = (*GeminiTransformer)(nil)
