package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/utils"
)

type Config struct {
	APIKey     string
	APIVersion string
	BaseURL    string
	IndexHost  string
	Namespace  string
	Timeout    time.Duration
}

type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type UpsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type UpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Client speaks to the Pinecone data plane directly over HTTP.
type Client interface {
	Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error)
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := Config{
		APIKey:     utils.GetEnv("PINECONE_API_KEY", "", log),
		APIVersion: utils.GetEnv("PINECONE_API_VERSION", "2025-10", log),
		BaseURL:    utils.GetEnv("PINECONE_BASE_URL", "https://api.pinecone.io", log),
		IndexHost:  utils.GetEnv("PINECONE_INDEX_HOST", "", log),
		Namespace:  utils.GetEnv("PINECONE_NAMESPACE", "", log),
		Timeout:    time.Duration(utils.GetEnvAsInt("PINECONE_TIMEOUT_SECONDS", 30, log)) * time.Second,
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing PINECONE_API_KEY")
	}
	if strings.TrimSpace(cfg.IndexHost) == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_HOST")
	}
	return &client{
		log:  log.With("client", "PineconeClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *client) Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error) {
	if req.Namespace == "" {
		req.Namespace = c.cfg.Namespace
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	host := c.cfg.IndexHost
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(host, "/")+"/vectors/upsert", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Api-Key", c.cfg.APIKey)
	httpReq.Header.Set("X-Pinecone-API-Version", c.cfg.APIVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pinecone upsert: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pinecone upsert read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("pinecone upsert: status %d: %s", resp.StatusCode, string(respBody))
	}
	var out UpsertResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("pinecone upsert decode: %w", err)
	}
	return &out, nil
}
