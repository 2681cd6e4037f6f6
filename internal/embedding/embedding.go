// Package embedding turns chunk text into fixed-dimension vectors through an
// OpenAI-compatible embeddings endpoint such as LM Studio.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/site-ingest/internal/types"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is LM Studio's local OpenAI-compatible endpoint.
	DefaultBaseURL = "http://localhost:1234/v1"
	// DefaultModel is the default embedding model.
	DefaultModel = "BAAI/bge-base-en-v1.5"
	// DefaultDimension matches DefaultModel.
	DefaultDimension = 768
	// DefaultConcurrency bounds in-flight embedding requests.
	DefaultConcurrency = 4
	// DefaultBatchSize is the number of texts sent per request.
	DefaultBatchSize = 32
)

// Embedder produces one vector per input text. A zero vector marks a text
// that could not be embedded; it is not an error.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config configures an OpenAI-compatible embedder.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Dimension   int
	Concurrency int
	BatchSize   int
	Timeout     time.Duration
}

// Client embeds texts in batches with bounded concurrency.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger logrus.FieldLogger
}

// NewClient creates an embedding client, filling unset fields with defaults.
func NewClient(cfg Config, logger logrus.FieldLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout > 0 {
		apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger,
	}
}

// Dimension returns the vector length produced by the client.
func (c *Client) Dimension() int {
	return c.cfg.Dimension
}

// Embed returns one vector per text, in input order. Empty texts and texts in
// a batch whose request fails get a zero vector. Only cancellation of ctx is
// returned as an error.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		start := start
		end := min(start+c.cfg.BatchSize, len(texts))
		g.Go(func() error {
			c.embedBatch(gctx, texts[start:end], vectors[start:end])
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// embedBatch fills out, which has the same length as texts.
func (c *Client) embedBatch(ctx context.Context, texts []string, out [][]float32) {
	inputs := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = c.zero()
			embedFallbackTotal.WithLabelValues("empty").Inc()
			continue
		}
		inputs = append(inputs, text)
		positions = append(positions, i)
	}
	if len(inputs) == 0 {
		return
	}

	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(c.cfg.Model),
	})
	embedDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		err = c.check(resp, len(inputs))
	}
	if err != nil {
		embedCallsTotal.WithLabelValues("error").Inc()
		c.logger.WithError(err).WithField("batch_size", len(inputs)).Warn("embedding request failed, using zero vectors")
		for _, pos := range positions {
			out[pos] = c.zero()
			embedFallbackTotal.WithLabelValues("error").Inc()
		}
		return
	}
	embedCallsTotal.WithLabelValues("success").Inc()

	for _, d := range resp.Data {
		out[positions[d.Index]] = d.Embedding
	}
}

func (c *Client) check(resp openai.EmbeddingResponse, want int) error {
	if len(resp.Data) != want {
		return fmt.Errorf("embedding mismatch: %d inputs, %d vectors", want, len(resp.Data))
	}
	seen := make([]bool, want)
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= want || seen[d.Index] {
			return fmt.Errorf("embedding response has invalid index %d", d.Index)
		}
		seen[d.Index] = true
		if len(d.Embedding) != c.cfg.Dimension {
			return fmt.Errorf("embedding dimension %d, expected %d", len(d.Embedding), c.cfg.Dimension)
		}
	}
	return nil
}

func (c *Client) zero() []float32 {
	return make([]float32, c.cfg.Dimension)
}

// IsZero reports whether v is the could-not-embed signal.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// ChunkText returns the text embedded for a chunk, optionally prefixed
// with its title.
func ChunkText(chunk types.ContentChunk, withTitle bool) string {
	if withTitle && chunk.Title != "" {
		return chunk.Title + "\n\n" + chunk.Content
	}
	return chunk.Content
}

// EmbedChunks embeds every chunk and stores the vector on it.
func EmbedChunks(ctx context.Context, e Embedder, chunks []types.ContentChunk, withTitle bool) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = ChunkText(chunk, withTitle)
	}
	vectors, err := e.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}
