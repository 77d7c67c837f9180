// Package provider implements the completion provider: a Groq-hosted
// (OpenAI-compatible) chat completions client behind the domain.Completer
// contract.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"warelay/internal/domain"
	"warelay/internal/metrics"
)

const defaultGroqAPIBase = "https://api.groq.com/openai/v1"

// FallbackReply is returned whenever a completion cannot be produced. A chat
// relay must always answer the user's turn rather than drop it silently.
const FallbackReply = "Sorry, I was unable to process your request right now."

// systemPrompt is the fixed persona sent with every request. Each request is
// independent; no conversation history is kept.
const systemPrompt = "You are a friendly and helpful virtual assistant for WhatsApp."

// Groq implements domain.Completer against the Groq chat completions API.
type Groq struct {
	apiKey      string
	apiBase     string
	model       string
	maxTokens   int
	temperature float64
	topK        int
	retriever   domain.Retriever
	client      *http.Client
	logger      *slog.Logger
}

type GroqConfig struct {
	APIKey      string
	APIBase     string
	Model       string
	MaxTokens   int
	Temperature float64
	SearchTopK  int
	Retriever   domain.Retriever // optional context enrichment
	Timeout     time.Duration
	Logger      *slog.Logger
}

func NewGroq(cfg GroqConfig) *Groq {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultGroqAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = "llama3-8b-8192"
	}
	if cfg.SearchTopK <= 0 {
		cfg.SearchTopK = 3
	}
	return &Groq{
		apiKey:      cfg.APIKey,
		apiBase:     cfg.APIBase,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topK:        cfg.SearchTopK,
		retriever:   cfg.Retriever,
		client:      SharedHTTPClient(cfg.Timeout),
		logger:      cfg.Logger,
	}
}

// Generate produces a reply for one user turn. It never returns an error:
// any internal fault is logged and the fixed fallback reply is returned
// instead, so the dispatcher always has something to deliver.
func (g *Groq) Generate(ctx context.Context, prompt string, userID string) string {
	full := g.buildPrompt(ctx, prompt, userID)

	metrics.ProviderRequestsTotal.Inc()
	start := time.Now()
	reply, err := g.chat(ctx, []domain.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: full},
	})
	metrics.ProviderLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderFailuresTotal.Inc()
		g.logger.Error("completion request failed", "user", userID, "err", err)
		return FallbackReply
	}
	if reply == "" {
		metrics.ProviderFailuresTotal.Inc()
		g.logger.Error("completion returned empty content", "user", userID)
		return FallbackReply
	}

	g.logger.Info("completion generated", "user", userID, "reply_len", len(reply))
	return reply
}

// buildPrompt prefixes the user message with retrieved context when the
// knowledge base has anything relevant. Retrieval failures are swallowed
// here and treated as "no context".
func (g *Groq) buildPrompt(ctx context.Context, prompt string, userID string) string {
	if g.retriever == nil {
		return "User: " + prompt
	}

	snippets, err := g.retriever.Search(ctx, prompt, g.topK)
	if err != nil {
		g.logger.Warn("knowledge search failed, continuing without context", "user", userID, "err", err)
		snippets = nil
	}
	if len(snippets) == 0 {
		return "User: " + prompt
	}

	texts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		if s.Text != "" {
			texts = append(texts, s.Text)
		}
	}
	if len(texts) == 0 {
		return "User: " + prompt
	}

	var sb strings.Builder
	sb.WriteString("Relevant context:\n")
	sb.WriteString(strings.Join(texts, "\n"))
	sb.WriteString("\n\nUsing the context above if it is relevant, and your general knowledge, answer the following question:\nUser: ")
	sb.WriteString(prompt)
	return sb.String()
}

// Healthy probes the models endpoint to verify reachability and credentials.
func (g *Groq) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", g.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("groq not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("groq: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("groq returned %d", resp.StatusCode)
	}
	return nil
}

type groqRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	Stream      bool             `json:"stream"`
}

type groqResponse struct {
	Choices []groqChoice `json:"choices"`
	Usage   domain.Usage `json:"usage"`
}

type groqChoice struct {
	Message      domain.Message `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

// chat performs one chat completions round-trip with retry on transient
// failures.
func (g *Groq) chat(ctx context.Context, messages []domain.Message) (string, error) {
	body := groqRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   false,
	}
	if g.maxTokens > 0 {
		body.MaxTokens = g.maxTokens
	}
	if g.temperature > 0 {
		body.Temperature = &g.temperature
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	buildReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", g.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		return req, nil
	}

	resp, err := doWithRetry(ctx, g.client, buildReq, g.logger)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("groq %d: %s", resp.StatusCode, string(respBody))
	}

	var gr groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(gr.Choices) == 0 {
		return "", fmt.Errorf("groq: response contained no choices")
	}

	return gr.Choices[0].Message.Content, nil
}
