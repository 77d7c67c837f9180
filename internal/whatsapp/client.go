package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"warelay/internal/config"
	"warelay/internal/metrics"
)

const defaultGraphBase = "https://graph.facebook.com"

// Client sends text messages through the Cloud API per-recipient message
// endpoint. It implements domain.Sender.
type Client struct {
	cfg     config.WhatsAppConfig
	logger  *slog.Logger
	client  *http.Client
	baseURL string
}

type ClientConfig struct {
	Config  config.WhatsAppConfig
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := cfg.Config.GraphBaseURL
	if base == "" {
		base = defaultGraphBase
	}
	return &Client{
		cfg:     cfg.Config,
		logger:  cfg.Logger,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: base,
	}
}

// SendText issues one authenticated POST to the messages endpoint. A non-2xx
// response or transport error is returned to the caller; no retry is made,
// the platform owns redelivery semantics.
func (c *Client) SendText(ctx context.Context, to string, text string) error {
	if c.cfg.PhoneNumberID == "" || c.cfg.AccessToken == "" {
		return fmt.Errorf("whatsapp: phoneNumberId or accessToken not configured")
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.cfg.APIVersion, c.cfg.PhoneNumberID)

	payload := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             Text{Body: text},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	metrics.DeliveriesTotal.Inc()
	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.DeliveryLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DeliveryFailuresTotal.Inc()
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		metrics.DeliveryFailuresTotal.Inc()
		return fmt.Errorf("whatsapp API %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info("whatsapp message sent", "to", to, "text_len", len(text))
	return nil
}
