package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/services"
	"github.com/tessera-ai/knowledge-backend/internal/types"
	"github.com/tessera-ai/knowledge-backend/internal/utils"
)

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// Client talks to the OpenAI API directly over HTTP. It implements
// services.AnalysisEngine and exposes Embed for the indexer.
type Client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger) (*Client, error) {
	cfg := Config{
		APIKey:         utils.GetEnv("OPENAI_API_KEY", "", log),
		BaseURL:        utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1", log),
		Model:          utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log),
		EmbeddingModel: utils.GetEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small", log),
		Timeout:        time.Duration(utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 120, log)) * time.Second,
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return &Client{
		log:  log.With("client", "OpenAIClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

const analysisInstruction = `You are a document analysis service for a knowledge base.
Given the document content, respond with a single JSON object with keys:
raw_text (full extracted text), visual_findings (array of strings describing
figures/tables/diagrams), document_context (one-paragraph summary),
detected_model (product model identifiers found, or empty),
detected_industry, detected_language (ISO 639-1). No other output.`

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Analyze implements services.AnalysisEngine.
func (c *Client) Analyze(ctx context.Context, data []byte, asset *types.KnowledgeAsset, correlationID string) (*services.AnalysisResult, error) {
	content := documentContent(data, asset.Filename)

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: analysisInstruction},
			{Role: "user", Content: content},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("openai: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty response")
	}

	var out services.AnalysisResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("openai: bad analysis JSON: %w", err)
	}
	c.log.Debug("Analysis response parsed",
		"correlation_id", correlationID,
		"text_len", len(out.RawText),
		"language", out.DetectedLanguage,
	)
	return &out, nil
}

// documentContent renders the uploaded bytes for the model: UTF-8 documents
// go in as text, binary formats as a base64 block with the filename for
// format hints. Oversized inputs are truncated; the model only needs enough
// to classify and extract.
func documentContent(data []byte, filename string) string {
	const maxInline = 256 << 10
	if utf8.Valid(data) {
		text := string(data)
		if len(text) > maxInline {
			text = text[:maxInline]
		}
		return fmt.Sprintf("Document %q:\n\n%s", filename, text)
	}
	if len(data) > maxInline {
		data = data[:maxInline]
	}
	return fmt.Sprintf("Document %q (base64):\n\n%s", filename, base64.StdEncoding.EncodeToString(data))
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embeddingResponse
	if err := c.post(ctx, "/embeddings", embeddingRequest{Model: c.cfg.EmbeddingModel, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("openai embeddings: %s", resp.Error.Message)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai response read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("openai %s: status %d: %s", path, resp.StatusCode, truncate(string(respBody), 500))
	}
	return json.Unmarshal(respBody, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
