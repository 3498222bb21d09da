package services

import (
	"context"

	"github.com/tessera-ai/knowledge-backend/internal/types"
)

// AnalysisResult is everything the analysis engine can tell us about a
// document. Classification fields may be empty when the engine cannot
// determine them.
type AnalysisResult struct {
	RawText          string   `json:"raw_text"`
	VisualFindings   []string `json:"visual_findings,omitempty"`
	DocumentContext  string   `json:"document_context,omitempty"`
	DetectedModel    string   `json:"detected_model,omitempty"`
	DetectedIndustry string   `json:"detected_industry,omitempty"`
	DetectedLanguage string   `json:"detected_language,omitempty"`
}

// AnalysisEngine performs content understanding. External collaborator;
// opaque beyond this contract.
type AnalysisEngine interface {
	Analyze(ctx context.Context, data []byte, asset *types.KnowledgeAsset, correlationID string) (*AnalysisResult, error)
}

// Indexer stores searchable chunks for an analyzed document and returns the
// chunk count. It drives progress from 60 to 100 through onProgress.
type Indexer interface {
	Index(ctx context.Context, res *AnalysisResult, asset *types.KnowledgeAsset, correlationID string, onProgress func(percent int)) (int, error)
}
