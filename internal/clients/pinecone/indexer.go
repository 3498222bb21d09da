package pinecone

import (
	"context"
	"fmt"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/services"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

const (
	chunkRunes   = 1200
	chunkOverlap = 150
	upsertBatch  = 64
)

// Embedder is the embedding half of the indexing pipeline; the OpenAI client
// satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer chunks extracted text, embeds the chunks, and upserts them into
// Pinecone. Implements services.Indexer, driving progress from 60 to 100 as
// batches land.
type Indexer struct {
	log      *logger.Logger
	client   Client
	embedder Embedder
}

func NewIndexer(baseLog *logger.Logger, client Client, embedder Embedder) *Indexer {
	return &Indexer{
		log:      baseLog.With("client", "PineconeIndexer"),
		client:   client,
		embedder: embedder,
	}
}

func (ix *Indexer) Index(ctx context.Context, res *services.AnalysisResult, asset *types.KnowledgeAsset, correlationID string, onProgress func(percent int)) (int, error) {
	if onProgress == nil {
		onProgress = func(int) {}
	}

	texts := chunkText(res.RawText)
	for _, vf := range res.VisualFindings {
		if vf != "" {
			texts = append(texts, vf)
		}
	}
	if len(texts) == 0 {
		return 0, fmt.Errorf("nothing to index for asset %s", asset.ID)
	}

	total := len(texts)
	done := 0
	for start := 0; start < total; start += upsertBatch {
		end := start + upsertBatch
		if end > total {
			end = total
		}
		batch := texts[start:end]

		vectors, err := ix.embedder.Embed(ctx, batch)
		if err != nil {
			return 0, fmt.Errorf("embed batch %d: %w", start/upsertBatch, err)
		}

		upsert := UpsertRequest{Vectors: make([]Vector, 0, len(batch))}
		for i, vec := range vectors {
			upsert.Vectors = append(upsert.Vectors, Vector{
				ID:     fmt.Sprintf("%s:%d", asset.ID, start+i),
				Values: vec,
				Metadata: map[string]string{
					"tenant_id":      asset.TenantID.String(),
					"asset_id":       asset.ID.String(),
					"correlation_id": correlationID,
					"filename":       asset.Filename,
					"language":       res.DetectedLanguage,
				},
			})
		}
		if _, err := ix.client.Upsert(ctx, upsert); err != nil {
			return 0, fmt.Errorf("upsert batch %d: %w", start/upsertBatch, err)
		}

		done = end
		onProgress(60 + (40*done)/total)
	}

	ix.log.Info("Asset indexed", "asset_id", asset.ID, "chunks", total)
	return total, nil
}

// chunkText splits on rune boundaries with a fixed overlap so no chunk loses
// sentence context at its edges.
func chunkText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var out []string
	step := chunkRunes - chunkOverlap
	for start := 0; start < len(runes); start += step {
		end := start + chunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
